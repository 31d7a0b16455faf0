package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jbplatform/relay/pkg/models"
)

// Specialist is a built-in rule-driven worker. The engine only depends on
// the Worker contract; the rules here are deliberately small stand-ins for
// the real business heuristics, which live outside the core.
type Specialist struct {
	profile Profile
	decide  func(task *models.Task, tc *TaskContext) (*models.Decision, error)
}

// NewSpecialist builds the built-in handler for the profile's identity.
// Unknown identities get the generic admin behavior.
func NewSpecialist(profile Profile) *Specialist {
	s := &Specialist{profile: profile}
	switch profile.ID {
	case models.WorkerMaintenance:
		s.decide = decideMaintenance
	case models.WorkerSales:
		s.decide = decideSales
	case models.WorkerRentals:
		s.decide = decideRentals
	case models.WorkerMarketing:
		s.decide = decideMarketing
	case models.WorkerLeadGen:
		s.decide = decideLeadGen
	default:
		s.decide = decideAdmin
	}
	return s
}

// ID returns the worker identity.
func (s *Specialist) ID() models.WorkerID { return s.profile.ID }

// CanHandle reports whether the profile's capability set includes kind.
func (s *Specialist) CanHandle(kind models.TaskKind) bool { return s.profile.CanHandle(kind) }

// IsActive reports whether the worker is enabled and inside operating hours.
func (s *Specialist) IsActive(now time.Time) bool { return s.profile.Active(now) }

// MaxConcurrent returns the profile's concurrency ceiling.
func (s *Specialist) MaxConcurrent() int { return s.profile.MaxConcurrentTasks }

// Profile returns the registration entry backing this worker.
func (s *Specialist) Profile() Profile { return s.profile }

// ProcessTask produces one decision for the task.
func (s *Specialist) ProcessTask(ctx context.Context, task *models.Task, tc *TaskContext) (*models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.CanHandle(task.Kind) {
		return nil, fmt.Errorf("worker %s cannot handle task kind %s", s.profile.ID, task.Kind)
	}
	return s.decide(task, tc)
}

func body(task *models.Task) string {
	if task.Input.Message == nil {
		return ""
	}
	return strings.ToLower(task.Input.Message.Body)
}

func decideMaintenance(task *models.Task, _ *TaskContext) (*models.Decision, error) {
	switch task.Kind {
	case models.TaskKindCreateMaintenanceTicket:
		d := &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "maintenance ticket opened",
			Confidence: 0.9,
		}
		// Hazards get a contractor on site without waiting for triage.
		if txt := body(task); strings.Contains(txt, "gas") || strings.Contains(txt, "leak") || strings.Contains(txt, "flood") || strings.Contains(txt, "no hot water") {
			d.CreateTasks = []models.TaskSpec{{
				Kind:     models.TaskKindDispatchContractor,
				Priority: models.PriorityUrgent,
				Input:    task.Input,
			}}
		}
		return d, nil
	case models.TaskKindDispatchContractor:
		return &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "contractor dispatched",
			Confidence: 0.85,
		}, nil
	default:
		return &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "handled by maintenance desk",
			Confidence: 0.6,
		}, nil
	}
}

func decideSales(task *models.Task, _ *TaskContext) (*models.Decision, error) {
	switch task.Kind {
	case models.TaskKindProcessOffer:
		if strings.Contains(body(task), "withdraw") {
			return &models.Decision{
				Action:           models.ActionEscalate,
				Reasoning:        "offer withdrawal needs a negotiator",
				EscalationReason: "buyer is withdrawing an offer",
				Confidence:       0.7,
			}, nil
		}
		return &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "offer logged and acknowledged",
			Confidence: 0.8,
		}, nil
	case models.TaskKindGenerateValuation:
		return &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "valuation prepared and sent",
			Confidence: 0.8,
			CreateTasks: []models.TaskSpec{{
				Kind:     models.TaskKindFollowUpLead,
				AssignTo: models.WorkerLeadGen,
				Input:    task.Input,
			}},
		}, nil
	default:
		return &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "sales inquiry answered",
			Confidence: 0.75,
		}, nil
	}
}

func decideRentals(task *models.Task, _ *TaskContext) (*models.Decision, error) {
	if task.Kind == models.TaskKindScheduleViewing {
		return &models.Decision{
			Action:     models.ActionComplete,
			Reasoning:  "viewing slot booked and confirmed",
			Confidence: 0.85,
		}, nil
	}
	// Maintenance matters reported to the rentals desk belong elsewhere.
	if task.Kind == models.TaskKindCreateMaintenanceTicket {
		return &models.Decision{
			Action:     models.ActionDelegate,
			DelegateTo: models.WorkerMaintenance,
			Reasoning:  "maintenance report routed to the maintenance desk",
			Confidence: 0.9,
		}, nil
	}
	return &models.Decision{
		Action:     models.ActionComplete,
		Reasoning:  "rental inquiry answered",
		Confidence: 0.75,
	}, nil
}

func decideMarketing(task *models.Task, _ *TaskContext) (*models.Decision, error) {
	return &models.Decision{
		Action:     models.ActionComplete,
		Reasoning:  "listing copy drafted",
		Confidence: 0.7,
	}, nil
}

func decideLeadGen(task *models.Task, _ *TaskContext) (*models.Decision, error) {
	if task.Kind == models.TaskKindQualifyLead && body(task) == "" {
		// Nothing to score yet; wait for the contact to say more.
		return &models.Decision{
			Action:     models.ActionWait,
			Reasoning:  "no message content to qualify, waiting for a reply",
			Confidence: 0.5,
		}, nil
	}
	return &models.Decision{
		Action:     models.ActionComplete,
		Reasoning:  "lead scored and scheduled for follow-up",
		Confidence: 0.7,
	}, nil
}

func decideAdmin(task *models.Task, _ *TaskContext) (*models.Decision, error) {
	if task.Kind == models.TaskKindEscalateToHuman {
		return &models.Decision{
			Action:           models.ActionEscalate,
			Reasoning:        "flagged for the office manager",
			EscalationReason: "task explicitly requested human handling",
			Confidence:       0.9,
		}, nil
	}
	return &models.Decision{
		Action:     models.ActionComplete,
		Reasoning:  "acknowledged by the office admin",
		Confidence: 0.6,
	}, nil
}
