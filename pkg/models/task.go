package models

import "time"

// TaskStatus represents the current state of a task in its lifecycle.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued and waiting for dispatch.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusAssigned indicates the task has been reassigned and is about to re-enter the queue.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInProgress indicates a worker is currently processing the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusAwaitingResponse indicates the task is parked until an external trigger re-queues it.
	TaskStatusAwaitingResponse TaskStatus = "awaiting_response"
	// TaskStatusCompleted indicates the task finished successfully. Terminal.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the most recent processing attempt failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusEscalated indicates the task was handed off to a human. Terminal.
	TaskStatusEscalated TaskStatus = "escalated"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusAwaitingResponse, TaskStatusCompleted, TaskStatusFailed,
		TaskStatusEscalated:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses a task can never leave.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusEscalated
}

// TaskKind identifies the type of work a task carries.
type TaskKind string

const (
	TaskKindRespondToInquiry        TaskKind = "respond_to_inquiry"
	TaskKindScheduleViewing         TaskKind = "schedule_viewing"
	TaskKindProcessOffer            TaskKind = "process_offer"
	TaskKindCreateMaintenanceTicket TaskKind = "create_maintenance_ticket"
	TaskKindDispatchContractor      TaskKind = "dispatch_contractor"
	TaskKindFollowUpLead            TaskKind = "follow_up_lead"
	TaskKindGenerateValuation       TaskKind = "generate_valuation"
	TaskKindDraftListing            TaskKind = "draft_listing"
	TaskKindQualifyLead             TaskKind = "qualify_lead"
	TaskKindEscalateToHuman         TaskKind = "escalate_to_human"
)

// Valid returns true if the kind is a known value.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindRespondToInquiry, TaskKindScheduleViewing, TaskKindProcessOffer,
		TaskKindCreateMaintenanceTicket, TaskKindDispatchContractor,
		TaskKindFollowUpLead, TaskKindGenerateValuation, TaskKindDraftListing,
		TaskKindQualifyLead, TaskKindEscalateToHuman:
		return true
	default:
		return false
	}
}

// Priority orders tasks across the four dispatch queues.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists all priorities in dispatch order, highest first.
// The dispatch cycle iterates this slice; urgent always preempts high,
// high preempts medium, medium preempts low.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// DefaultMaxAttempts is the retry budget applied to tasks that don't declare one.
const DefaultMaxAttempts = 3

// TaskInput is the opaque payload a worker needs to process a task.
// The orchestrator never interprets it.
type TaskInput struct {
	// Message is the inbound message that originated the task, if any.
	Message *InboundMessage `json:"message,omitempty"`
	// PropertyID references the property the task concerns, if known.
	PropertyID string `json:"property_id,omitempty"`
	// ContactID references the contact the task concerns, if known.
	ContactID string `json:"contact_id,omitempty"`
	// Note carries free-form instructions for spawned sub-tasks.
	Note string `json:"note,omitempty"`
}

// Task represents one unit of work tracked through the lifecycle state machine.
type Task struct {
	// ID is the unique identifier for this task. Immutable.
	ID string `json:"id"`
	// Kind is the type of work this task carries.
	Kind TaskKind `json:"kind"`
	// Priority selects the dispatch queue. Fixed at creation; changes only on explicit re-routing.
	Priority Priority `json:"priority"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// AssignedWorker is the worker currently responsible for the task.
	AssignedWorker WorkerID `json:"assigned_worker"`
	// AssignedBy records which component produced the assignment. Audit only.
	AssignedBy string `json:"assigned_by,omitempty"`
	// Input is the opaque payload handed to the worker.
	Input TaskInput `json:"input"`
	// Output is the last decision applied to this task, for audit and replay.
	Output *Decision `json:"output,omitempty"`
	// ParentTaskID links a spawned sub-task to its originating task.
	ParentTaskID string `json:"parent_task_id,omitempty"`
	// ChildTaskIDs lists sub-tasks spawned by this task's decisions.
	ChildTaskIDs []string `json:"child_task_ids,omitempty"`
	// Attempts counts failed processing attempts so far.
	Attempts int `json:"attempts"`
	// MaxAttempts is the retry budget before escalation.
	MaxAttempts int `json:"max_attempts"`
	// LastError holds the most recent processing error, if any.
	LastError string `json:"last_error,omitempty"`
	// EscalationReason explains why the task was escalated, if it was.
	EscalationReason string `json:"escalation_reason,omitempty"`
	// CreatedAt is when the task was created. Immutable.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is bumped on every state change.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is set once, when the task reaches completed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the task. Snapshots handed to callers must
// not alias the tracked task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Output = t.Output.Clone()
	if t.ChildTaskIDs != nil {
		out.ChildTaskIDs = append([]string(nil), t.ChildTaskIDs...)
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		out.CompletedAt = &ts
	}
	if t.Input.Message != nil {
		msg := *t.Input.Message
		out.Input.Message = &msg
	}
	return &out
}
