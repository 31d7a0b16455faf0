package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jbplatform/relay/internal/tui"
	"github.com/jbplatform/relay/pkg/models"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depths and worker metrics",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://127.0.0.1:8700", "Base URL of the running engine")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := tui.NewStatusClient(statusAddr)

	qs, err := client.FetchQueue()
	if err != nil {
		return fmt.Errorf("engine unreachable at %s: %w", statusAddr, err)
	}

	if qs.Running {
		fmt.Printf("%s dispatch loop running\n\n", color.GreenString("✓"))
	} else {
		fmt.Printf("%s dispatch loop stopped\n\n", color.YellowString("⚠"))
	}

	fmt.Println("Queues:")
	for _, p := range models.Priorities {
		n := qs.Pending[p]
		line := fmt.Sprintf("  %-8s %d", p, n)
		if p == models.PriorityUrgent && n > 0 {
			line = color.RedString(line)
		}
		fmt.Println(line)
	}
	fmt.Printf("  %-8s %d\n", "inflight", qs.InFlight)
	fmt.Printf("  %-8s %d\n", "done", qs.Completed)
	if qs.DroppedEvents > 0 {
		fmt.Println(color.YellowString("  dropped events: %d", qs.DroppedEvents))
	}

	ss, err := client.FetchSystem()
	if err != nil {
		return fmt.Errorf("fetch worker metrics: %w", err)
	}
	if len(ss.Workers) == 0 {
		fmt.Println("\nNo tasks processed yet.")
		return nil
	}

	fmt.Println("\nWorkers:")
	for _, id := range models.WorkerIDs {
		ws, ok := ss.Workers[id]
		if !ok {
			continue
		}
		fmt.Printf("  %-12s completed=%-4d failed=%-4d success=%3.0f%% avg=%s\n",
			id, ws.Completed, ws.Failed, ws.SuccessRate*100, ws.AvgLatency)
	}
	return nil
}
