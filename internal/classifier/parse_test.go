package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/jbplatform/relay/pkg/models"
)

func TestParseRoutingDecision(t *testing.T) {
	text := `Here is the routing:
{"message_kind":"maintenance_report","assign_to":"maintenance","priority":"urgent","reasoning":"no hot water","confidence":0.92,"suggested_task_kind":"create_maintenance_ticket"}`

	d, err := parseRoutingDecision(text)
	if err != nil {
		t.Fatalf("parseRoutingDecision: %v", err)
	}
	if d.AssignTo != models.WorkerMaintenance {
		t.Errorf("assign_to = %s, want maintenance", d.AssignTo)
	}
	if d.Priority != models.PriorityUrgent {
		t.Errorf("priority = %s, want urgent", d.Priority)
	}
	if d.SuggestedTaskKind != models.TaskKindCreateMaintenanceTicket {
		t.Errorf("suggested_task_kind = %s", d.SuggestedTaskKind)
	}
	if d.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", d.Confidence)
	}
}

func TestParseFillsMissingFields(t *testing.T) {
	// Sparse but valid output: only the fields the model bothered with.
	d, err := parseRoutingDecision(`{"assign_to":"sales","suggested_task_kind":"process_offer"}`)
	if err != nil {
		t.Fatalf("parseRoutingDecision: %v", err)
	}
	if d.AssignTo != models.WorkerSales {
		t.Errorf("assign_to = %s, want sales", d.AssignTo)
	}
	if d.Priority != models.PriorityMedium {
		t.Errorf("omitted priority should default to medium, got %s", d.Priority)
	}
	if d.MessageKind != models.MessageKindGeneral {
		t.Errorf("omitted message_kind should default to general, got %s", d.MessageKind)
	}
}

func TestParseRejectsUnknownEnums(t *testing.T) {
	cases := []string{
		`{"assign_to":"butler","suggested_task_kind":"respond_to_inquiry"}`,
		`{"assign_to":"sales","priority":"asap","suggested_task_kind":"respond_to_inquiry"}`,
		`{"assign_to":"sales","suggested_task_kind":"paint_fence"}`,
		`{"assign_to":"sales","confidence":1.5,"suggested_task_kind":"respond_to_inquiry"}`,
	}
	for _, text := range cases {
		if _, err := parseRoutingDecision(text); !errors.Is(err, ErrUnusableOutput) {
			t.Errorf("parseRoutingDecision(%s) error = %v, want ErrUnusableOutput", text, err)
		}
	}
}

func TestParseRejectsNonJSON(t *testing.T) {
	for _, text := range []string{"", "I cannot classify this.", "{not json]"} {
		if _, err := parseRoutingDecision(text); !errors.Is(err, ErrUnusableOutput) {
			t.Errorf("parseRoutingDecision(%q) error = %v, want ErrUnusableOutput", text, err)
		}
	}
}

func TestStaticClassifier(t *testing.T) {
	c := NewStatic()

	d, err := c.Classify(context.Background(), models.InboundMessage{
		Channel: models.ChannelEmail,
		Body:    "No hot water since this morning",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.AssignTo != models.WorkerMaintenance {
		t.Errorf("assign_to = %s, want maintenance", d.AssignTo)
	}
	if d.Priority != models.PriorityUrgent {
		t.Errorf("priority = %s, want urgent", d.Priority)
	}
	if d.SuggestedTaskKind != models.TaskKindCreateMaintenanceTicket {
		t.Errorf("suggested_task_kind = %s", d.SuggestedTaskKind)
	}
}

func TestStaticClassifierFallsBack(t *testing.T) {
	c := NewStatic()

	d, err := c.Classify(context.Background(), models.InboundMessage{Body: "hello there"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.AssignTo != models.WorkerAdmin {
		t.Errorf("unmatched message should go to admin, got %s", d.AssignTo)
	}
	if d != Fallback() {
		t.Errorf("unmatched message should produce the shared fallback")
	}
}
