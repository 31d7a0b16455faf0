// Package classifier turns an inbound business message into a routing
// decision. The LLM-backed implementations are best-effort: any failure or
// unusable output surfaces as an error, and the router substitutes its
// deterministic fallback so classification can never block task creation.
package classifier

import (
	"context"
	"errors"

	"github.com/jbplatform/relay/pkg/models"
)

// ErrUnusableOutput indicates the model replied but the reply could not be
// turned into a routing decision.
var ErrUnusableOutput = errors.New("classifier output unusable")

// Classifier produces a routing decision for an inbound message.
type Classifier interface {
	Classify(ctx context.Context, msg models.InboundMessage) (models.RoutingDecision, error)
}

// Fallback is the deterministic routing applied when classification fails.
// It must never error: the office admin picks up whatever the classifier
// could not place.
func Fallback() models.RoutingDecision {
	return models.RoutingDecision{
		MessageKind:       models.MessageKindGeneral,
		AssignTo:          models.WorkerAdmin,
		Priority:          models.PriorityMedium,
		Reasoning:         "classification unavailable, routed to office admin",
		Confidence:        0.1,
		SuggestedTaskKind: models.TaskKindRespondToInquiry,
	}
}
