package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Task orchestration & routing engine",
	Long: `Relay routes inbound business messages (email, SMS, WhatsApp, social,
web forms) to capacity-limited specialist workers through an LLM
classifier, four priority queues, and a decision-driven task lifecycle.

Start the engine with 'relay serve', then submit messages over HTTP,
NATS, or the inbox directory and inspect tasks with 'relay status' and
'relay watch'.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (defaults to XDG lookup)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
