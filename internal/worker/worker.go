// Package worker defines the contract every specialist handler implements
// and the built-in handlers for the office roster.
package worker

import (
	"context"
	"time"

	"github.com/jbplatform/relay/pkg/models"
)

// TaskContext is the resolved context bundle handed to a worker alongside a
// task: contact and property references plus the conversation so far.
// Workers receive it read-only; they never touch orchestrator state.
type TaskContext struct {
	// Contact is the resolved contact record, if any.
	Contact *Contact
	// Property is the resolved property record, if any.
	Property *Property
	// Transcript holds prior messages in the conversation, oldest first.
	Transcript []models.InboundMessage
}

// Contact is a minimal contact record resolved for a task.
type Contact struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Property is a minimal property record resolved for a task.
type Property struct {
	ID      string
	Address string
	Kind    string // sale, rental
}

// Worker is the contract every specialist handler implements. ProcessTask
// must be safe to invoke concurrently up to MaxConcurrent times; the
// orchestrator never dispatches beyond that.
type Worker interface {
	// ID returns the worker's identity.
	ID() models.WorkerID
	// CanHandle reports whether the worker accepts tasks of the given kind.
	CanHandle(kind models.TaskKind) bool
	// IsActive reports whether the worker is enabled and inside its
	// operating-hours window at the given instant.
	IsActive(now time.Time) bool
	// MaxConcurrent is the hard ceiling on simultaneously in-progress tasks.
	MaxConcurrent() int
	// ProcessTask produces exactly one decision for the task, or fails.
	ProcessTask(ctx context.Context, task *models.Task, tc *TaskContext) (*models.Decision, error)
}

// Profile is a worker registration entry: identity, capability set,
// operating hours, and concurrency ceiling. Profiles are loaded from the
// roster file and attached to the built-in handlers.
type Profile struct {
	// ID is the worker identity this profile describes.
	ID models.WorkerID `yaml:"id"`
	// Kinds lists the task kinds the worker accepts.
	Kinds []models.TaskKind `yaml:"kinds"`
	// Channels lists the channels the worker can reply on.
	Channels []models.Channel `yaml:"channels"`
	// Hours is the operating-hours window. Zero value means always on.
	Hours Hours `yaml:"hours"`
	// MaxConcurrentTasks caps simultaneously in-progress tasks.
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`
	// Enabled gates the worker independently of hours.
	Enabled bool `yaml:"enabled"`
}

// CanHandle reports whether the profile's capability set includes kind.
func (p *Profile) CanHandle(kind models.TaskKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Active reports whether the profile is enabled and now falls inside the
// operating-hours window.
func (p *Profile) Active(now time.Time) bool {
	if !p.Enabled {
		return false
	}
	return p.Hours.Contains(now)
}
