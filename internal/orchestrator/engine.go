package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jbplatform/relay/internal/registry"
	"github.com/jbplatform/relay/internal/router"
	"github.com/jbplatform/relay/pkg/models"
)

// ErrTaskNotFound indicates no task exists with the requested id.
var ErrTaskNotFound = errors.New("task not found")

// ErrNotParked indicates a requeue request for a task that is not parked.
var ErrNotParked = errors.New("task is not parked")

// DefaultDispatchInterval is the wall-clock period between dispatch cycles.
const DefaultDispatchInterval = 2 * time.Second

// SubmissionReceipt is the synchronous reply to a message submission. All
// later processing is visible only through the inspection surface.
type SubmissionReceipt struct {
	// TaskID is the id of the created task.
	TaskID string `json:"task_id"`
	// Status is the task's status at submission time (always pending).
	Status models.TaskStatus `json:"status"`
	// Routing is the classifier's (or fallback's) routing decision.
	Routing models.RoutingDecision `json:"routing"`
}

// QueueStatus is the read-only queue-level view of the engine.
type QueueStatus struct {
	// Pending counts queued tasks per priority tier.
	Pending map[models.Priority]int `json:"pending"`
	// InFlight counts tasks in the in-flight set (in_progress and parked).
	InFlight int `json:"in_flight"`
	// Completed counts tasks in the completed log.
	Completed int `json:"completed"`
	// Running reports whether the dispatch loop is active.
	Running bool `json:"running"`
	// DroppedEvents counts lifecycle events dropped by the emitter.
	DroppedEvents uint64 `json:"dropped_events"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithInterval sets the dispatch interval.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides child-task id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithLogger sets the file-backed debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEventBuffer sets the emitter's channel buffer size.
func WithEventBuffer(n int) Option {
	return func(e *Engine) { e.emitter = NewEventEmitter(n) }
}

// Engine owns the four priority queues, the in-flight set, and the
// completed log, and runs the dispatch cycle over them. Engines are
// constructed explicitly and several can coexist in one process; there is
// no package-level instance.
//
// Every task lives in exactly one of the three containers at any time:
// a priority queue, the in-flight set, or the completed log.
type Engine struct {
	registry *registry.Registry
	router   *router.Router

	// mu guards queues, inflight, completed, metrics, and processing.
	// Workers never touch this state; they only see a task and a context
	// bundle and hand back a decision, which is what keeps the
	// single-writer dispatch loop correct.
	mu        sync.RWMutex
	queues    *taskQueues
	inflight  map[string]*models.Task
	completed []*models.Task
	byID      map[string]*models.Task // completed log index
	metrics   map[models.WorkerID]*workerMetrics
	// processing is the id of the task currently inside a worker call,
	// empty between cycles. Requeue refuses to touch it.
	processing string

	emitter  *EventEmitter
	logger   *DebugLogger
	now      func() time.Time
	newID    func() string
	interval time.Duration
	running  atomic.Bool
}

// New creates an Engine over the given registry and router.
func New(reg *registry.Registry, rt *router.Router, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		router:   rt,
		queues:   newTaskQueues(),
		inflight: make(map[string]*models.Task),
		byID:     make(map[string]*models.Task),
		metrics:  make(map[models.WorkerID]*workerMetrics),
		emitter:  NewEventEmitter(256),
		logger:   NopLogger(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String()[:8] },
		interval: DefaultDispatchInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	setPackageLogger(e.logger)
	return e
}

// Events returns the engine's lifecycle event stream.
func (e *Engine) Events() <-chan Event {
	return e.emitter.Events()
}

// Submit accepts an inbound message: classify, create, enqueue. The receipt
// is the only synchronous answer the caller ever gets; retries and
// escalations surface through the inspection surface, never as a second
// response.
func (e *Engine) Submit(ctx context.Context, msg models.InboundMessage) (*SubmissionReceipt, error) {
	rd := e.router.Classify(ctx, msg)
	task := e.router.CreateTask(msg, rd)

	e.mu.Lock()
	e.queues.push(task)
	e.mu.Unlock()

	e.logger.Log("[engine] task %s created from message %s: kind=%s worker=%s priority=%s",
		task.ID, msg.ID, task.Kind, task.AssignedWorker, task.Priority)
	e.emit(EventTaskCreated, task, "")

	return &SubmissionReceipt{
		TaskID:  task.ID,
		Status:  task.Status,
		Routing: rd,
	}, nil
}

// Enqueue adds an externally constructed task to its priority queue.
func (e *Engine) Enqueue(task *models.Task) error {
	if !task.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", task.Priority)
	}
	if !task.Kind.Valid() {
		return fmt.Errorf("invalid task kind %q", task.Kind)
	}
	if task.Status != models.TaskStatusPending {
		return fmt.Errorf("only pending tasks can be enqueued, got %q", task.Status)
	}
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = models.DefaultMaxAttempts
	}

	e.mu.Lock()
	e.queues.push(task)
	e.mu.Unlock()

	e.emit(EventTaskCreated, task, "")
	return nil
}

// Cycle runs one dispatch cycle: pick the highest-priority task whose
// worker is registered and under capacity, process it, and apply the
// resulting decision. Exactly one task is processed per invocation, which
// bounds per-cycle latency; throughput scales with cycle frequency, not
// batch size. Returns true if a task was processed.
func (e *Engine) Cycle(ctx context.Context) bool {
	task := e.pickTask()
	if task == nil {
		return false
	}

	e.emit(EventTaskDispatched, task, "")
	e.logger.Log("[engine] dispatching task %s to %s", task.ID, task.AssignedWorker)

	start := e.now()
	decision, err := e.route(ctx, task)
	latency := e.now().Sub(start)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.processing = ""
	if err != nil {
		e.failLocked(task, err)
		return true
	}
	e.applyLocked(task, decision, latency)
	return true
}

// pickTask selects and pops the next dispatchable task, marking it
// in_progress and moving it to the in-flight set. Tiers are checked in
// fixed order; a tier whose head can't be dispatched (unknown worker is
// fine, capacity is not) is skipped, leaving the task queued.
func (e *Engine) pickTask() *models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range models.Priorities {
		head := e.queues.head(p)
		if head == nil {
			continue
		}

		// Unknown workers don't block dispatch: the router falls back to
		// the office admin. Capacity is only enforceable for registered
		// workers.
		if w, ok := e.registry.Lookup(head.AssignedWorker); ok {
			if e.inflightCountLocked(w.ID()) >= w.MaxConcurrent() {
				debugLog("[engine] %s tier head %s skipped: worker %s at capacity", p, head.ID, w.ID())
				continue
			}
		}

		task := e.queues.pop(p)
		e.markLocked(task, models.TaskStatusInProgress)
		e.inflight[task.ID] = task
		e.processing = task.ID
		return task
	}
	return nil
}

// route invokes the router and resolves escalate decisions through the
// escalation path before they come back to the transition table.
func (e *Engine) route(ctx context.Context, task *models.Task) (*models.Decision, error) {
	decision, err := e.router.RouteTask(ctx, task)
	if err != nil {
		return nil, err
	}
	if decision.Action == models.ActionEscalate {
		return e.router.HandleEscalation(ctx, task, decision.EscalationReason)
	}
	return decision, nil
}

// applyLocked advances the task per the decision. Caller holds e.mu.
func (e *Engine) applyLocked(task *models.Task, d *models.Decision, latency time.Duration) {
	task.Output = d

	switch {
	case d.Action == models.ActionComplete:
		e.markLocked(task, models.TaskStatusCompleted)
		completedAt := task.UpdatedAt
		task.CompletedAt = &completedAt
		e.retireLocked(task)
		e.metricsFor(task.AssignedWorker).recordSuccess(latency)
		e.emit(EventTaskCompleted, task, d.Reasoning)

	case d.Action == models.ActionEscalate:
		task.EscalationReason = d.EscalationReason
		e.markLocked(task, models.TaskStatusEscalated)
		e.retireLocked(task)
		e.metricsFor(task.AssignedWorker).recordFailure()
		e.emit(EventTaskEscalated, task, d.EscalationReason)

	case d.Action == models.ActionDelegate:
		// The router may already have swapped the assignee during
		// escalation handling; a plain delegate does it here.
		task.AssignedBy = string(task.AssignedWorker)
		task.AssignedWorker = d.DelegateTo
		e.markLocked(task, models.TaskStatusAssigned)
		e.emit(EventTaskDelegated, task, d.Reasoning)
		// Re-enqueue at the task's own priority, back through pending.
		delete(e.inflight, task.ID)
		e.markLocked(task, models.TaskStatusPending)
		e.queues.push(task)

	case d.Action == models.ActionWait:
		// Parked: stays in the in-flight set but out of dispatch rotation
		// until an external trigger requeues it. There is no timeout; that
		// is a known limitation, not an oversight.
		e.markLocked(task, models.TaskStatusAwaitingResponse)
		e.emit(EventTaskWaiting, task, d.Reasoning)

	default:
		// Continuing actions: the side effect is recorded and the task
		// stays in_progress in the in-flight set, holding its capacity
		// slot, until a later decision or an external requeue moves it.
		task.UpdatedAt = e.now()
		e.emit(EventTaskProgress, task, string(d.Action)+": "+d.Reasoning)
	}

	e.expandLocked(task, d.CreateTasks)
}

// failLocked applies retry policy to a processing error. Caller holds e.mu.
func (e *Engine) failLocked(task *models.Task, err error) {
	task.Attempts++
	task.LastError = err.Error()
	e.markLocked(task, models.TaskStatusFailed)
	e.metricsFor(task.AssignedWorker).recordFailure()
	e.emit(EventTaskFailed, task, err.Error())
	e.logger.Log("[engine] task %s attempt %d/%d failed: %v", task.ID, task.Attempts, task.MaxAttempts, err)

	if task.Attempts < task.MaxAttempts {
		// Back to the pending queue at the task's original priority.
		delete(e.inflight, task.ID)
		e.markLocked(task, models.TaskStatusPending)
		e.queues.push(task)
		e.emit(EventTaskRetried, task, "")
		return
	}

	task.EscalationReason = fmt.Sprintf("failed after %d attempts: %v", task.Attempts, err)
	e.markLocked(task, models.TaskStatusEscalated)
	e.retireLocked(task)
	e.emit(EventTaskEscalated, task, task.EscalationReason)
}

// expandLocked spawns child tasks for a decision's createTasks specs.
// Caller holds e.mu.
func (e *Engine) expandLocked(parent *models.Task, specs []models.TaskSpec) {
	for _, spec := range specs {
		child := &models.Task{
			ID:             e.newID(),
			Kind:           spec.Kind,
			Priority:       spec.Priority,
			Status:         models.TaskStatusPending,
			AssignedWorker: spec.AssignTo,
			AssignedBy:     string(parent.AssignedWorker),
			Input:          spec.Input,
			ParentTaskID:   parent.ID,
			MaxAttempts:    models.DefaultMaxAttempts,
			CreatedAt:      e.now(),
			UpdatedAt:      e.now(),
		}
		if child.Priority == "" {
			child.Priority = parent.Priority
		}
		if child.AssignedWorker == "" {
			child.AssignedWorker = parent.AssignedWorker
		}
		parent.ChildTaskIDs = append(parent.ChildTaskIDs, child.ID)
		e.queues.push(child)
		e.emit(EventSubtaskSpawned, child, "spawned by "+parent.ID)
		e.logger.Log("[engine] task %s spawned child %s (kind=%s)", parent.ID, child.ID, child.Kind)
	}
}

// Requeue puts a parked task (awaiting_response, or in_progress after a
// continuing decision) back into its priority queue. This is the external
// trigger the state machine relies on; the engine itself never wakes
// parked tasks up.
func (e *Engine) Requeue(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == e.processing {
		return fmt.Errorf("%w: task %s is being processed", ErrNotParked, id)
	}
	task, ok := e.inflight[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status != models.TaskStatusAwaitingResponse && task.Status != models.TaskStatusInProgress {
		return fmt.Errorf("%w: task %s has status %s", ErrNotParked, id, task.Status)
	}

	delete(e.inflight, id)
	e.markLocked(task, models.TaskStatusPending)
	e.queues.push(task)
	e.emit(EventTaskRequeued, task, "")
	return nil
}

// GetTask returns a snapshot of the task with the given id, searching the
// in-flight set, the completed log, then the queues. Task ids are unique
// across all three. The copy is taken under the lock so callers can read
// or marshal it while the dispatch loop keeps mutating the tracked task.
func (e *Engine) GetTask(id string) (*models.Task, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if task, ok := e.inflight[id]; ok {
		return task.Clone(), nil
	}
	if task, ok := e.byID[id]; ok {
		return task.Clone(), nil
	}
	if task := e.queues.find(id); task != nil {
		return task.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// QueueStatus returns queue-level counts and the running flag.
func (e *Engine) QueueStatus() QueueStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return QueueStatus{
		Pending:       e.queues.counts(),
		InFlight:      len(e.inflight),
		Completed:     len(e.completed),
		Running:       e.running.Load(),
		DroppedEvents: e.emitter.DroppedCount(),
	}
}

// SystemStatus returns per-worker metrics.
func (e *Engine) SystemStatus() SystemStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := SystemStatus{Workers: make(map[models.WorkerID]WorkerStats, len(e.metrics))}
	for id, m := range e.metrics {
		out.Workers[id] = m.stats()
	}
	return out
}

// CompletedTasks returns a snapshot of the completed log, oldest first.
// The tasks are copies taken under the lock.
func (e *Engine) CompletedTasks() []*models.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*models.Task, len(e.completed))
	for i, task := range e.completed {
		out[i] = task.Clone()
	}
	return out
}

// markLocked sets the status and bumps updatedAt. Caller holds e.mu.
func (e *Engine) markLocked(task *models.Task, status models.TaskStatus) {
	task.Status = status
	task.UpdatedAt = e.now()
}

// retireLocked moves a terminal task from the in-flight set to the
// completed log. Caller holds e.mu.
func (e *Engine) retireLocked(task *models.Task) {
	delete(e.inflight, task.ID)
	e.completed = append(e.completed, task)
	e.byID[task.ID] = task
}

// inflightCountLocked counts in_progress tasks assigned to the worker.
// Parked tasks (awaiting_response) do not hold a capacity slot. Caller
// holds e.mu.
func (e *Engine) inflightCountLocked(id models.WorkerID) int {
	n := 0
	for _, task := range e.inflight {
		if task.AssignedWorker == id && task.Status == models.TaskStatusInProgress {
			n++
		}
	}
	return n
}

func (e *Engine) metricsFor(id models.WorkerID) *workerMetrics {
	m, ok := e.metrics[id]
	if !ok {
		m = &workerMetrics{}
		e.metrics[id] = m
	}
	return m
}

func (e *Engine) emit(t EventType, task *models.Task, message string) {
	e.emitter.Emit(Event{
		Type:      t,
		TaskID:    task.ID,
		ParentID:  task.ParentTaskID,
		Kind:      task.Kind,
		Priority:  task.Priority,
		Worker:    task.AssignedWorker,
		Status:    task.Status,
		Attempts:  task.Attempts,
		Message:   message,
		Error:     task.LastError,
		Timestamp: e.now(),
	})
}
