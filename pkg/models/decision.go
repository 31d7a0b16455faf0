package models

import "fmt"

// DecisionAction is the closed set of outcomes a worker can return.
type DecisionAction string

const (
	// ActionRespond records that a reply was sent; the task continues.
	ActionRespond DecisionAction = "respond"
	// ActionSchedule records that an appointment was booked; the task continues.
	ActionSchedule DecisionAction = "schedule"
	// ActionCreateTask records a side record creation; the task continues.
	ActionCreateTask DecisionAction = "create_task"
	// ActionUpdateRecord records a data update; the task continues.
	ActionUpdateRecord DecisionAction = "update_record"
	// ActionSendDocument records a document delivery; the task continues.
	ActionSendDocument DecisionAction = "send_document"
	// ActionEscalate hands the task off to a human. Requires EscalationReason.
	ActionEscalate DecisionAction = "escalate"
	// ActionDelegate reassigns the task to another worker. Requires DelegateTo.
	ActionDelegate DecisionAction = "delegate"
	// ActionWait parks the task until an external trigger re-queues it.
	ActionWait DecisionAction = "wait"
	// ActionComplete finishes the task successfully.
	ActionComplete DecisionAction = "complete"
)

// Valid returns true if the action is a known value.
func (a DecisionAction) Valid() bool {
	switch a {
	case ActionRespond, ActionSchedule, ActionCreateTask, ActionUpdateRecord,
		ActionSendDocument, ActionEscalate, ActionDelegate, ActionWait,
		ActionComplete:
		return true
	default:
		return false
	}
}

// Continues returns true for actions that leave the task in progress.
func (a DecisionAction) Continues() bool {
	switch a {
	case ActionRespond, ActionSchedule, ActionCreateTask, ActionUpdateRecord,
		ActionSendDocument:
		return true
	default:
		return false
	}
}

// TaskSpec is a partial task specification a decision can spawn as a child
// of the current task. Unset fields inherit from the parent.
type TaskSpec struct {
	// Kind is the kind of the child task. Required.
	Kind TaskKind `json:"kind"`
	// Priority of the child task. Defaults to the parent's priority.
	Priority Priority `json:"priority,omitempty"`
	// AssignTo names the worker for the child. Defaults to the parent's worker.
	AssignTo WorkerID `json:"assign_to,omitempty"`
	// Input is the payload for the child task.
	Input TaskInput `json:"input"`
}

// Decision is the structured outcome a worker returns for a task. It is the
// sole channel through which a worker communicates intent back to the core.
type Decision struct {
	// Action is what the worker did or needs done.
	Action DecisionAction `json:"action"`
	// Reasoning explains the decision. Audit only, never control flow.
	Reasoning string `json:"reasoning,omitempty"`
	// Confidence is the worker's self-reported confidence in [0,1]. Audit only.
	Confidence float64 `json:"confidence,omitempty"`
	// DelegateTo names the new worker. Required when Action is delegate.
	DelegateTo WorkerID `json:"delegate_to,omitempty"`
	// EscalationReason is required when Action is escalate.
	EscalationReason string `json:"escalation_reason,omitempty"`
	// CreateTasks holds child task specifications to spawn.
	CreateTasks []TaskSpec `json:"create_tasks,omitempty"`
}

// Clone returns a deep copy of the decision. Nil in, nil out.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	out := *d
	if d.CreateTasks != nil {
		out.CreateTasks = append([]TaskSpec(nil), d.CreateTasks...)
	}
	return &out
}

// Validate checks that the action is known and that its required fields are
// present. The per-action requirements replace "is this field set for this
// action" checks scattered through the callers.
func (d *Decision) Validate() error {
	if !d.Action.Valid() {
		return fmt.Errorf("unknown decision action %q", d.Action)
	}
	switch d.Action {
	case ActionDelegate:
		if !d.DelegateTo.Valid() {
			return fmt.Errorf("delegate decision requires a valid delegate_to, got %q", d.DelegateTo)
		}
	case ActionEscalate:
		if d.EscalationReason == "" {
			return fmt.Errorf("escalate decision requires an escalation_reason")
		}
	}
	for i, spec := range d.CreateTasks {
		if !spec.Kind.Valid() {
			return fmt.Errorf("create_tasks[%d]: unknown task kind %q", i, spec.Kind)
		}
		if spec.Priority != "" && !spec.Priority.Valid() {
			return fmt.Errorf("create_tasks[%d]: unknown priority %q", i, spec.Priority)
		}
		if spec.AssignTo != "" && !spec.AssignTo.Valid() {
			return fmt.Errorf("create_tasks[%d]: unknown worker %q", i, spec.AssignTo)
		}
	}
	return nil
}
