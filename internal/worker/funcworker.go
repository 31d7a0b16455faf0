package worker

import (
	"context"
	"time"

	"github.com/jbplatform/relay/pkg/models"
)

// FuncWorker is a scriptable worker used by tests across packages. Every
// field is optional; unset fields fall back to permissive defaults.
type FuncWorker struct {
	// WorkerID is the identity this worker reports.
	WorkerID models.WorkerID
	// Kinds restricts CanHandle. Empty means every kind.
	Kinds []models.TaskKind
	// Active overrides IsActive. Nil means always active.
	Active func(now time.Time) bool
	// Concurrency is the MaxConcurrent value. Zero means 1.
	Concurrency int
	// Process produces the decision. Nil means a plain complete.
	Process func(ctx context.Context, task *models.Task, tc *TaskContext) (*models.Decision, error)

	// Calls counts ProcessTask invocations.
	Calls int
}

// ID returns the scripted identity.
func (f *FuncWorker) ID() models.WorkerID { return f.WorkerID }

// CanHandle checks the scripted kind set.
func (f *FuncWorker) CanHandle(kind models.TaskKind) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsActive runs the scripted activity check.
func (f *FuncWorker) IsActive(now time.Time) bool {
	if f.Active == nil {
		return true
	}
	return f.Active(now)
}

// MaxConcurrent returns the scripted ceiling.
func (f *FuncWorker) MaxConcurrent() int {
	if f.Concurrency <= 0 {
		return 1
	}
	return f.Concurrency
}

// ProcessTask runs the scripted handler.
func (f *FuncWorker) ProcessTask(ctx context.Context, task *models.Task, tc *TaskContext) (*models.Decision, error) {
	f.Calls++
	if f.Process == nil {
		return &models.Decision{Action: models.ActionComplete}, nil
	}
	return f.Process(ctx, task, tc)
}
