// Package config handles configuration loading for relay.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for relay.
type Config struct {
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Inbox      InboxConfig      `mapstructure:"inbox"`
	Log        LogConfig        `mapstructure:"log"`
	// WorkersFile points at the worker roster YAML. Empty means the
	// built-in roster.
	WorkersFile string `mapstructure:"workers_file"`
}

// ClassifierConfig selects and configures the message classifier.
type ClassifierConfig struct {
	// Provider is one of anthropic, openai, static.
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	// UseAWSBedrock routes Anthropic calls through AWS Bedrock.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
	// BaseURL overrides the OpenAI endpoint, for compatible servers.
	BaseURL string `mapstructure:"base_url"`
	// OpenAIAPIKey is the key used when provider is openai.
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
}

// EngineConfig holds dispatch loop settings.
type EngineConfig struct {
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	EventBuffer      int           `mapstructure:"event_buffer"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// NATSConfig holds message bus settings.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	// SubjectPrefix prefixes the inbound and event subjects.
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// JournalConfig holds event journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// InboxConfig holds the file-drop message source settings.
type InboxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// DebugFile receives verbose engine traces when set.
	DebugFile string `mapstructure:"debug_file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, RELAY_NATS_URL)
// 2. Project config (.relay.yaml in current directory or parent)
// 3. User config (~/.config/relay/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("classifier.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("classifier.openai_api_key", "OPENAI_API_KEY")
	v.BindEnv("nats.url", "RELAY_NATS_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Classifier.APIKey = os.ExpandEnv(cfg.Classifier.APIKey)
	cfg.Classifier.OpenAIAPIKey = os.ExpandEnv(cfg.Classifier.OpenAIAPIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Classifier.APIKey = os.ExpandEnv(cfg.Classifier.APIKey)
	cfg.Classifier.OpenAIAPIKey = os.ExpandEnv(cfg.Classifier.OpenAIAPIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("classifier.provider", "anthropic")
	v.SetDefault("classifier.model", "")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.use_aws_bedrock", false)

	v.SetDefault("engine.dispatch_interval", "2s")
	v.SetDefault("engine.event_buffer", 256)

	v.SetDefault("server.listen", ":8700")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject_prefix", "relay")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "")

	v.SetDefault("inbox.enabled", false)
	v.SetDefault("inbox.dir", "inbox")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug_file", "")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{Provider: "anthropic"},
		Engine: EngineConfig{
			DispatchInterval: 2 * time.Second,
			EventBuffer:      256,
		},
		Server:  ServerConfig{Listen: ":8700"},
		NATS:    NATSConfig{URL: "nats://127.0.0.1:4222", SubjectPrefix: "relay"},
		Journal: JournalConfig{Enabled: true},
		Inbox:   InboxConfig{Dir: "inbox"},
		Log:     LogConfig{Level: "info"},
	}
}

// getUserConfigDir returns the XDG config directory for relay.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "relay")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "relay")
	}
	return filepath.Join(home, ".config", "relay")
}

// findProjectConfig searches for .relay.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".relay.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
