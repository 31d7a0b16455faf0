// Package orchestrator owns the priority queues, the in-flight set, the
// completed log, and the dispatch cycle that moves tasks between them.
package orchestrator

import (
	"time"

	"github.com/jbplatform/relay/pkg/models"
)

// EventType represents the type of engine lifecycle event.
type EventType string

const (
	// EventTaskCreated indicates a task was created and queued.
	EventTaskCreated EventType = "task_created"
	// EventTaskDispatched indicates a task was popped and is being processed.
	EventTaskDispatched EventType = "task_dispatched"
	// EventTaskCompleted indicates a task reached completed.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a processing attempt failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskRetried indicates a failed task was re-queued for another attempt.
	EventTaskRetried EventType = "task_retried"
	// EventTaskDelegated indicates a task was reassigned to another worker.
	EventTaskDelegated EventType = "task_delegated"
	// EventTaskWaiting indicates a task was parked awaiting an external response.
	EventTaskWaiting EventType = "task_waiting"
	// EventTaskEscalated indicates a task was handed off to a human. Terminal.
	EventTaskEscalated EventType = "task_escalated"
	// EventTaskProgress indicates a continuing decision was recorded.
	EventTaskProgress EventType = "task_progress"
	// EventSubtaskSpawned indicates a decision expanded into a child task.
	EventSubtaskSpawned EventType = "subtask_spawned"
	// EventTaskRequeued indicates an external trigger put a parked task back in rotation.
	EventTaskRequeued EventType = "task_requeued"
)

// Event is one entry in the engine's append-only lifecycle stream. The
// dispatch loop writes an event after every state transition; consumers
// (journal, NATS publisher, dashboards) subscribe to the stream instead of
// registering listeners on the engine.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// TaskID is the id of the task the event concerns.
	TaskID string `json:"task_id"`
	// ParentID is the parent task id, for subtask events.
	ParentID string `json:"parent_id,omitempty"`
	// Kind is the task's kind.
	Kind models.TaskKind `json:"kind,omitempty"`
	// Priority is the task's priority.
	Priority models.Priority `json:"priority,omitempty"`
	// Worker is the worker the task was assigned to when the event fired.
	Worker models.WorkerID `json:"worker,omitempty"`
	// Status is the task's status after the transition.
	Status models.TaskStatus `json:"status,omitempty"`
	// Attempts is the task's failed-attempt count at event time.
	Attempts int `json:"attempts,omitempty"`
	// Message provides additional context.
	Message string `json:"message,omitempty"`
	// Error holds failure details for failure events.
	Error string `json:"error,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}
