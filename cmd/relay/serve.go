package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbplatform/relay/internal/classifier"
	"github.com/jbplatform/relay/internal/config"
	"github.com/jbplatform/relay/internal/ingest"
	"github.com/jbplatform/relay/internal/journal"
	"github.com/jbplatform/relay/internal/orchestrator"
	"github.com/jbplatform/relay/internal/registry"
	"github.com/jbplatform/relay/internal/router"
	"github.com/jbplatform/relay/internal/server"
	"github.com/jbplatform/relay/internal/worker"
	"github.com/jbplatform/relay/pkg/logger"
)

const httpShutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the routing engine and HTTP API",
	Long: `Start the dispatch loop, the HTTP API, and the enabled ingest
adapters (NATS subscriber, inbox watcher). The engine runs until
interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", cfg.Log.Level, err)
	}
	logger.Init(level)

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	cls, err := buildClassifier(cfg)
	if err != nil {
		return err
	}

	engineOpts := []orchestrator.Option{
		orchestrator.WithInterval(cfg.Engine.DispatchInterval),
		orchestrator.WithEventBuffer(cfg.Engine.EventBuffer),
	}
	if cfg.Log.DebugFile != "" {
		dl, err := orchestrator.NewDebugLogger(cfg.Log.DebugFile)
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		engineOpts = append(engineOpts, orchestrator.WithLogger(dl))
	}

	engine := orchestrator.New(reg, router.New(reg, cls), engineOpts...)
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var j *journal.Journal
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = journal.DefaultPath()
		}
		j, err = journal.Open(path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
	}

	var bus *ingest.Bus
	if cfg.NATS.Enabled {
		bus, err = ingest.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, engine)
		if err != nil {
			return err
		}
		defer bus.Close()
		if err := bus.Start(ctx); err != nil {
			return err
		}
	}

	// Single consumer of the event stream, fanning out to the journal and
	// the bus.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-engine.Events():
				if !ok {
					return
				}
				if j != nil {
					_ = j.Append(ev)
				}
				if bus != nil {
					bus.PublishEvent(ev)
				}
			}
		}
	}()

	if cfg.Inbox.Enabled {
		inbox, err := ingest.NewInbox(cfg.Inbox.Dir, engine)
		if err != nil {
			return err
		}
		go func() { _ = inbox.Run(ctx) }()
	}

	httpSrv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: server.SetupRouter(server.NewHandler(engine, j)),
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.New("server").WithError(err).Error("http server stopped")
			stop()
		}
	}()

	fmt.Printf("%s relay listening on %s (workers: %d, classifier: %s)\n",
		color.GreenString("✓"), cfg.Server.Listen, reg.Count(), cfg.Classifier.Provider)

	err = engine.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	if errors.Is(err, context.Canceled) {
		fmt.Printf("%s relay stopped\n", color.YellowString("•"))
		return nil
	}
	return err
}

// loadConfig honors the --config flag, falling back to the XDG lookup.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// buildRegistry loads the worker roster and registers a specialist for
// each profile.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	profiles := config.DefaultRoster()
	if cfg.WorkersFile != "" {
		loaded, err := config.LoadRoster(cfg.WorkersFile)
		if err != nil {
			return nil, err
		}
		profiles = loaded
	}

	reg := registry.New()
	for _, p := range profiles {
		reg.Register(worker.NewSpecialist(p))
	}
	return reg, nil
}

// buildClassifier constructs the configured classifier backend.
func buildClassifier(cfg *config.Config) (classifier.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "anthropic":
		return classifier.NewAnthropic(classifier.AnthropicConfig{
			Model:         anthropic.Model(cfg.Classifier.Model),
			APIKey:        cfg.Classifier.APIKey,
			UseAWSBedrock: cfg.Classifier.UseAWSBedrock,
			AWSRegion:     cfg.Classifier.AWSRegion,
			AWSProfile:    cfg.Classifier.AWSProfile,
		})
	case "openai":
		return classifier.NewOpenAI(classifier.OpenAIConfig{
			Model:   openai.ChatModel(cfg.Classifier.Model),
			APIKey:  cfg.Classifier.OpenAIAPIKey,
			BaseURL: cfg.Classifier.BaseURL,
		})
	case "static":
		return classifier.NewStatic(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q (want anthropic, openai, or static)", cfg.Classifier.Provider)
	}
}
