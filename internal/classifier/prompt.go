package classifier

import (
	"fmt"
	"strings"

	"github.com/jbplatform/relay/pkg/models"
)

const systemPrompt = `You are the routing desk of a property management office.
Classify the inbound message and assign it to a specialist.
Return JSON only, no prose.`

// buildPrompt renders the message and the closed vocabularies the model must
// choose from. The schema mirrors models.RoutingDecision.
func buildPrompt(msg models.InboundMessage) string {
	var b strings.Builder
	b.WriteString("JSON schema:\n")
	b.WriteString(`{"message_kind":"...","assign_to":"...","priority":"...","reasoning":"short","confidence":0.0,"suggested_task_kind":"..."}`)
	b.WriteString("\n\nAllowed values:\n")
	b.WriteString("- message_kind: inquiry, maintenance_report, lead, offer, complaint, general\n")
	b.WriteString("- assign_to: sales, rentals, maintenance, marketing, leadgen, admin\n")
	b.WriteString("- priority: urgent, high, medium, low\n")
	b.WriteString("- suggested_task_kind: respond_to_inquiry, schedule_viewing, process_offer, create_maintenance_ticket, dispatch_contractor, follow_up_lead, generate_valuation, draft_listing, qualify_lead, escalate_to_human\n")
	b.WriteString("\nRules:\n")
	b.WriteString("- Safety hazards (gas, leaks, no heating or hot water) are urgent.\n")
	b.WriteString("- If uncertain, assign_to admin with medium priority and low confidence.\n")
	b.WriteString("- Confidence is between 0 and 1.\n\n")
	b.WriteString("Message:\n")
	fmt.Fprintf(&b, "channel: %s\n", msg.Channel)
	fmt.Fprintf(&b, "from: %s", msg.From)
	if msg.FromName != "" {
		fmt.Fprintf(&b, " (%s)", msg.FromName)
	}
	b.WriteString("\n")
	if msg.Subject != "" {
		fmt.Fprintf(&b, "subject: %s\n", msg.Subject)
	}
	if msg.PropertyID != "" {
		fmt.Fprintf(&b, "property: %s\n", msg.PropertyID)
	}
	fmt.Fprintf(&b, "body: %s\n", msg.Body)
	return b.String()
}
