package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	submitAddr     string
	submitChannel  string
	submitFrom     string
	submitFromName string
	submitSubject  string
	submitProperty string
	submitContact  string
)

var submitCmd = &cobra.Command{
	Use:   "submit <body>",
	Short: "Submit an inbound message to a running engine",
	Long: `Submit a message over the HTTP API and print the routing receipt.

Example:
  relay submit --channel email --from tenant@example.com \
    --subject "Boiler broken" "The boiler in flat 2 is leaking."`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitAddr, "addr", "http://127.0.0.1:8700", "Base URL of the running engine")
	submitCmd.Flags().StringVar(&submitChannel, "channel", "web", "Message channel (email, sms, whatsapp, social, web)")
	submitCmd.Flags().StringVar(&submitFrom, "from", "cli", "Sender address")
	submitCmd.Flags().StringVar(&submitFromName, "from-name", "", "Sender display name")
	submitCmd.Flags().StringVar(&submitSubject, "subject", "", "Message subject")
	submitCmd.Flags().StringVar(&submitProperty, "property", "", "Related property id")
	submitCmd.Flags().StringVar(&submitContact, "contact", "", "Related contact id")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	payload := map[string]interface{}{
		"channel":     submitChannel,
		"from":        submitFrom,
		"from_name":   submitFromName,
		"subject":     submitSubject,
		"body":        strings.Join(args, " "),
		"timestamp":   time.Now().Format(time.RFC3339),
		"property_id": submitProperty,
		"contact_id":  submitContact,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(submitAddr+"/api/v1/messages", "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	defer resp.Body.Close()

	var receipt struct {
		TaskID  string `json:"task_id"`
		Status  string `json:"status"`
		Routing struct {
			MessageKind       string  `json:"message_kind"`
			AssignTo          string  `json:"assign_to"`
			Priority          string  `json:"priority"`
			Confidence        float64 `json:"confidence"`
			SuggestedTaskKind string  `json:"suggested_task_kind"`
		} `json:"routing"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("submission rejected (%d): %s", resp.StatusCode, receipt.Error)
	}

	fmt.Printf("%s task %s created\n", color.GreenString("✓"), color.CyanString(receipt.TaskID))
	fmt.Printf("  kind:     %s\n", receipt.Routing.SuggestedTaskKind)
	fmt.Printf("  worker:   %s\n", receipt.Routing.AssignTo)
	fmt.Printf("  priority: %s\n", receipt.Routing.Priority)
	fmt.Printf("  confidence: %.2f\n", receipt.Routing.Confidence)
	return nil
}
