package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jbplatform/relay/internal/tui"
)

var (
	watchAddr    string
	watchRefresh time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live terminal view of queues and workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(watchAddr, watchRefresh)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "http://127.0.0.1:8700", "Base URL of the running engine")
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", time.Second, "Poll interval")
}
