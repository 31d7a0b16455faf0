package classifier

import (
	"context"
	"strings"

	"github.com/jbplatform/relay/pkg/models"
)

// Static is a keyword-rule classifier. It is the default backend when no
// API key is configured and the stub used throughout the tests; it never
// calls out and never fails.
type Static struct{}

// NewStatic creates the rule-based classifier.
func NewStatic() *Static { return &Static{} }

type rule struct {
	keywords []string
	decision models.RoutingDecision
}

var rules = []rule{
	{
		keywords: []string{"gas", "leak", "flood", "no hot water", "no heating", "broken boiler"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindMaintenanceReport,
			AssignTo:          models.WorkerMaintenance,
			Priority:          models.PriorityUrgent,
			Reasoning:         "hazard keywords",
			Confidence:        0.9,
			SuggestedTaskKind: models.TaskKindCreateMaintenanceTicket,
		},
	},
	{
		keywords: []string{"repair", "broken", "not working", "maintenance", "fix"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindMaintenanceReport,
			AssignTo:          models.WorkerMaintenance,
			Priority:          models.PriorityHigh,
			Reasoning:         "maintenance keywords",
			Confidence:        0.75,
			SuggestedTaskKind: models.TaskKindCreateMaintenanceTicket,
		},
	},
	{
		keywords: []string{"offer", "bid", "asking price"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindOffer,
			AssignTo:          models.WorkerSales,
			Priority:          models.PriorityHigh,
			Reasoning:         "offer keywords",
			Confidence:        0.8,
			SuggestedTaskKind: models.TaskKindProcessOffer,
		},
	},
	{
		keywords: []string{"valuation", "how much is my", "worth"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindLead,
			AssignTo:          models.WorkerSales,
			Priority:          models.PriorityMedium,
			Reasoning:         "valuation keywords",
			Confidence:        0.7,
			SuggestedTaskKind: models.TaskKindGenerateValuation,
		},
	},
	{
		keywords: []string{"viewing", "visit", "see the flat", "see the property"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindInquiry,
			AssignTo:          models.WorkerRentals,
			Priority:          models.PriorityMedium,
			Reasoning:         "viewing keywords",
			Confidence:        0.7,
			SuggestedTaskKind: models.TaskKindScheduleViewing,
		},
	},
	{
		keywords: []string{"interested in", "available", "to rent", "for sale"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindLead,
			AssignTo:          models.WorkerLeadGen,
			Priority:          models.PriorityMedium,
			Reasoning:         "lead keywords",
			Confidence:        0.65,
			SuggestedTaskKind: models.TaskKindQualifyLead,
		},
	},
	{
		keywords: []string{"complaint", "unacceptable", "disappointed"},
		decision: models.RoutingDecision{
			MessageKind:       models.MessageKindComplaint,
			AssignTo:          models.WorkerAdmin,
			Priority:          models.PriorityHigh,
			Reasoning:         "complaint keywords",
			Confidence:        0.7,
			SuggestedTaskKind: models.TaskKindEscalateToHuman,
		},
	},
}

// Classify matches the first rule whose keywords appear in the subject or
// body; with no match the office admin fallback applies.
func (s *Static) Classify(_ context.Context, msg models.InboundMessage) (models.RoutingDecision, error) {
	text := strings.ToLower(msg.Subject + " " + msg.Body)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.decision, nil
			}
		}
	}
	return Fallback(), nil
}
