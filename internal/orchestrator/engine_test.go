package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jbplatform/relay/internal/registry"
	"github.com/jbplatform/relay/internal/router"
	"github.com/jbplatform/relay/internal/worker"
	"github.com/jbplatform/relay/pkg/models"
)

type stubClassifier struct {
	rd  models.RoutingDecision
	err error
}

func (s stubClassifier) Classify(context.Context, models.InboundMessage) (models.RoutingDecision, error) {
	return s.rd, s.err
}

var testClock = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, reg *registry.Registry, cls stubClassifier) *Engine {
	t.Helper()
	now := func() time.Time { return testClock }
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}
	rt := router.New(reg, cls, router.WithClock(now), router.WithIDGenerator(gen))
	e := New(reg, rt, WithClock(now), WithIDGenerator(gen))
	t.Cleanup(e.Close)
	return e
}

func pendingTask(id string, kind models.TaskKind, p models.Priority, w models.WorkerID) *models.Task {
	return &models.Task{
		ID:             id,
		Kind:           kind,
		Priority:       p,
		Status:         models.TaskStatusPending,
		AssignedWorker: w,
		MaxAttempts:    models.DefaultMaxAttempts,
		CreatedAt:      testClock,
		UpdatedAt:      testClock,
	}
}

func TestSubmitCreatesPendingTask(t *testing.T) {
	reg := registry.New()
	cls := stubClassifier{rd: models.RoutingDecision{
		MessageKind:       models.MessageKindInquiry,
		AssignTo:          models.WorkerRentals,
		Priority:          models.PriorityMedium,
		Confidence:        0.9,
		SuggestedTaskKind: models.TaskKindRespondToInquiry,
	}}
	e := newTestEngine(t, reg, cls)

	receipt, err := e.Submit(context.Background(), models.InboundMessage{
		ID:      "msg-1",
		Channel: models.ChannelEmail,
		From:    "tenant@example.com",
		Body:    "Is the flat on Elm Street still available?",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.Status != models.TaskStatusPending {
		t.Errorf("receipt status = %s, want pending", receipt.Status)
	}
	if receipt.Routing.AssignTo != models.WorkerRentals {
		t.Errorf("routing assignTo = %s, want rentals", receipt.Routing.AssignTo)
	}

	task, err := e.GetTask(receipt.TaskID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("task status = %s, want pending", task.Status)
	}
	if task.AssignedBy != router.AssignedByRouter {
		t.Errorf("assignedBy = %q, want %q", task.AssignedBy, router.AssignedByRouter)
	}
	if task.Input.Message == nil || task.Input.Message.ID != "msg-1" {
		t.Error("task input should carry the originating message")
	}
	if got := e.QueueStatus().Pending[models.PriorityMedium]; got != 1 {
		t.Errorf("medium queue = %d, want 1", got)
	}
}

func TestSubmitFallsBackOnClassifierError(t *testing.T) {
	reg := registry.New()
	e := newTestEngine(t, reg, stubClassifier{err: errors.New("model unavailable")})

	receipt, err := e.Submit(context.Background(), models.InboundMessage{ID: "msg-2", Body: "hello"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.Routing.AssignTo != models.WorkerAdmin {
		t.Errorf("fallback assignTo = %s, want admin", receipt.Routing.AssignTo)
	}
	if receipt.Routing.Priority != models.PriorityMedium {
		t.Errorf("fallback priority = %s, want medium", receipt.Routing.Priority)
	}
}

func TestCycleCompletesTask(t *testing.T) {
	reg := registry.New()
	w := &worker.FuncWorker{WorkerID: models.WorkerRentals}
	reg.Register(w)
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("t1", models.TaskKindRespondToInquiry, models.PriorityMedium, models.WorkerRentals)
	if err := e.Enqueue(task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if !e.Cycle(context.Background()) {
		t.Fatal("Cycle should have processed a task")
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("completedAt should be set on a completed task")
	}
	if w.Calls != 1 {
		t.Errorf("worker calls = %d, want 1", w.Calls)
	}

	got, err := e.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask after completion: %v", err)
	}
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("completed log status = %s", got.Status)
	}

	stats := e.SystemStatus().Workers[models.WorkerRentals]
	if stats.Completed != 1 || stats.SuccessRate != 1.0 {
		t.Errorf("stats = %+v, want 1 completed at 100%%", stats)
	}

	if e.Cycle(context.Background()) {
		t.Error("second Cycle should find nothing to dispatch")
	}
}

func TestCyclePriorityOrdering(t *testing.T) {
	reg := registry.New()
	var order []string
	reg.Register(&worker.FuncWorker{
		WorkerID:    models.WorkerMaintenance,
		Concurrency: 10,
		Process: func(_ context.Context, task *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			order = append(order, task.ID)
			return &models.Decision{Action: models.ActionComplete}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	// Enqueued low first: tier order must win over arrival order across
	// tiers, while FIFO holds within a tier.
	_ = e.Enqueue(pendingTask("low-1", models.TaskKindCreateMaintenanceTicket, models.PriorityLow, models.WorkerMaintenance))
	_ = e.Enqueue(pendingTask("urgent-1", models.TaskKindDispatchContractor, models.PriorityUrgent, models.WorkerMaintenance))
	_ = e.Enqueue(pendingTask("urgent-2", models.TaskKindDispatchContractor, models.PriorityUrgent, models.WorkerMaintenance))
	_ = e.Enqueue(pendingTask("high-1", models.TaskKindCreateMaintenanceTicket, models.PriorityHigh, models.WorkerMaintenance))

	for e.Cycle(context.Background()) {
	}

	want := []string{"urgent-1", "urgent-2", "high-1", "low-1"}
	if len(order) != len(want) {
		t.Fatalf("processed %d tasks, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("dispatch order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestCycleSkipsWorkerAtCapacity(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerSales,
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			// Continuing action: the task stays in_progress and keeps its
			// capacity slot.
			return &models.Decision{Action: models.ActionRespond, Reasoning: "sent reply"}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	_ = e.Enqueue(pendingTask("s1", models.TaskKindProcessOffer, models.PriorityHigh, models.WorkerSales))
	_ = e.Enqueue(pendingTask("s2", models.TaskKindProcessOffer, models.PriorityHigh, models.WorkerSales))

	if !e.Cycle(context.Background()) {
		t.Fatal("first Cycle should dispatch s1")
	}
	s1, _ := e.GetTask("s1")
	if s1.Status != models.TaskStatusInProgress {
		t.Fatalf("s1 status = %s, want in_progress after a continuing action", s1.Status)
	}

	// s1 occupies the only slot, so s2 stays queued.
	if e.Cycle(context.Background()) {
		t.Error("Cycle should skip a tier whose worker is at capacity")
	}
	if got := e.QueueStatus().Pending[models.PriorityHigh]; got != 1 {
		t.Errorf("high queue = %d, want 1 (s2 still queued)", got)
	}
}

func TestRetryThenSucceed(t *testing.T) {
	reg := registry.New()
	calls := 0
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerLeadGen,
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("CRM timeout")
			}
			return &models.Decision{Action: models.ActionComplete}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("l1", models.TaskKindFollowUpLead, models.PriorityMedium, models.WorkerLeadGen)
	_ = e.Enqueue(task)

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusPending {
		t.Fatalf("status after failure = %s, want pending (requeued)", task.Status)
	}
	if task.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", task.Attempts)
	}
	if !strings.Contains(task.LastError, "CRM timeout") {
		t.Errorf("lastError = %q, want the worker error preserved", task.LastError)
	}

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status after retry = %s, want completed", task.Status)
	}
	if task.Attempts != 1 {
		t.Errorf("attempts after success = %d, want 1 (failures only)", task.Attempts)
	}
}

func TestRetryExhaustionEscalates(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerMarketing,
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			return nil, errors.New("template renderer down")
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("m1", models.TaskKindDraftListing, models.PriorityLow, models.WorkerMarketing)
	task.MaxAttempts = 2
	_ = e.Enqueue(task)

	e.Cycle(context.Background())
	e.Cycle(context.Background())

	if task.Status != models.TaskStatusEscalated {
		t.Fatalf("status = %s, want escalated after exhausting attempts", task.Status)
	}
	if task.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", task.Attempts)
	}
	want := "failed after 2 attempts"
	if !strings.Contains(task.EscalationReason, want) {
		t.Errorf("escalationReason = %q, want it to contain %q", task.EscalationReason, want)
	}
	if !strings.Contains(task.EscalationReason, "template renderer down") {
		t.Errorf("escalationReason = %q, want the last error included", task.EscalationReason)
	}

	// Terminal: nothing left to dispatch, task findable in the log.
	if e.Cycle(context.Background()) {
		t.Error("no further cycles should process the escalated task")
	}
	if got, _ := e.GetTask("m1"); got == nil || got.Status != models.TaskStatusEscalated {
		t.Error("escalated task should remain inspectable")
	}
}

func TestChildTaskExpansion(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID:    models.WorkerMaintenance,
		Concurrency: 5,
		Process: func(_ context.Context, task *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			if task.Kind == models.TaskKindDispatchContractor {
				return &models.Decision{Action: models.ActionComplete}, nil
			}
			return &models.Decision{
				Action:    models.ActionComplete,
				Reasoning: "ticket filed, contractor needed",
				CreateTasks: []models.TaskSpec{{
					Kind:     models.TaskKindDispatchContractor,
					Priority: models.PriorityUrgent,
					AssignTo: models.WorkerMaintenance,
					Input:    models.TaskInput{Note: "burst pipe, unit 4B"},
				}},
			}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	parent := pendingTask("p1", models.TaskKindCreateMaintenanceTicket, models.PriorityHigh, models.WorkerMaintenance)
	_ = e.Enqueue(parent)

	e.Cycle(context.Background())
	if len(parent.ChildTaskIDs) != 1 {
		t.Fatalf("childTaskIDs = %v, want exactly one child", parent.ChildTaskIDs)
	}
	childID := parent.ChildTaskIDs[0]

	child, err := e.GetTask(childID)
	if err != nil {
		t.Fatalf("GetTask(child): %v", err)
	}
	if child.ParentTaskID != "p1" {
		t.Errorf("parentTaskID = %q, want p1", child.ParentTaskID)
	}
	if child.Priority != models.PriorityUrgent {
		t.Errorf("child priority = %s, want urgent", child.Priority)
	}
	if child.Input.Note != "burst pipe, unit 4B" {
		t.Errorf("child input note = %q", child.Input.Note)
	}
	if child.AssignedBy != string(models.WorkerMaintenance) {
		t.Errorf("child assignedBy = %q, want the spawning worker", child.AssignedBy)
	}

	// Child is independently dispatchable; parent completing first is fine.
	// GetTask returns snapshots, so re-fetch after the cycle.
	e.Cycle(context.Background())
	child, err = e.GetTask(childID)
	if err != nil {
		t.Fatalf("GetTask(child) after cycle: %v", err)
	}
	if child.Status != models.TaskStatusCompleted {
		t.Errorf("child status = %s, want completed", child.Status)
	}
}

func TestDelegateReassignsAndRequeues(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerRentals,
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			return &models.Decision{
				Action:     models.ActionDelegate,
				Reasoning:  "repair request, not a tenancy question",
				DelegateTo: models.WorkerMaintenance,
			}, nil
		},
	})
	maint := &worker.FuncWorker{WorkerID: models.WorkerMaintenance}
	reg.Register(maint)
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("d1", models.TaskKindCreateMaintenanceTicket, models.PriorityHigh, models.WorkerRentals)
	_ = e.Enqueue(task)

	e.Cycle(context.Background())
	if task.AssignedWorker != models.WorkerMaintenance {
		t.Fatalf("assignedWorker = %s, want maintenance", task.AssignedWorker)
	}
	if task.AssignedBy != string(models.WorkerRentals) {
		t.Errorf("assignedBy = %q, want the delegating worker", task.AssignedBy)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("status = %s, want pending (requeued for new assignee)", task.Status)
	}

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status after second cycle = %s, want completed", task.Status)
	}
	if maint.Calls != 1 {
		t.Errorf("maintenance calls = %d, want 1", maint.Calls)
	}
}

func TestWaitParksUntilRequeued(t *testing.T) {
	reg := registry.New()
	calls := 0
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerLeadGen,
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			calls++
			if calls == 1 {
				return &models.Decision{Action: models.ActionWait, Reasoning: "waiting for budget details"}, nil
			}
			return &models.Decision{Action: models.ActionComplete}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("w1", models.TaskKindQualifyLead, models.PriorityMedium, models.WorkerLeadGen)
	_ = e.Enqueue(task)

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusAwaitingResponse {
		t.Fatalf("status = %s, want awaiting_response", task.Status)
	}

	// Parked tasks never wake up on their own.
	if e.Cycle(context.Background()) {
		t.Error("a parked task must not be redispatched without a trigger")
	}

	if err := e.Requeue("w1"); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("status after requeue = %s, want pending", task.Status)
	}

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed after the reply arrived", task.Status)
	}
}

func TestRequeueRejectsNonParkedTasks(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{WorkerID: models.WorkerAdmin})
	e := newTestEngine(t, reg, stubClassifier{})

	if err := e.Requeue("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Requeue(missing) = %v, want ErrTaskNotFound", err)
	}

	task := pendingTask("a1", models.TaskKindRespondToInquiry, models.PriorityLow, models.WorkerAdmin)
	_ = e.Enqueue(task)
	e.Cycle(context.Background())

	// Completed tasks live in the log, not the in-flight set.
	if err := e.Requeue("a1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Requeue(completed) = %v, want ErrTaskNotFound", err)
	}
}

func TestEscalationReassignsToAlternate(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerSales,
		Kinds:    []models.TaskKind{models.TaskKindProcessOffer},
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			return &models.Decision{
				Action:           models.ActionEscalate,
				EscalationReason: "offer terms outside negotiation mandate",
			}, nil
		},
	})
	admin := &worker.FuncWorker{WorkerID: models.WorkerAdmin}
	reg.Register(admin)
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("e1", models.TaskKindProcessOffer, models.PriorityHigh, models.WorkerSales)
	_ = e.Enqueue(task)

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed via the alternate", task.Status)
	}
	if task.AssignedWorker != models.WorkerAdmin {
		t.Errorf("assignedWorker = %s, want admin after reassignment", task.AssignedWorker)
	}
	if admin.Calls != 1 {
		t.Errorf("admin calls = %d, want 1", admin.Calls)
	}
}

func TestEscalationWithoutAlternateGoesTerminal(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerSales,
		Process: func(_ context.Context, _ *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			return &models.Decision{
				Action:           models.ActionEscalate,
				EscalationReason: "seller withdrew the property",
			}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("e2", models.TaskKindProcessOffer, models.PriorityHigh, models.WorkerSales)
	_ = e.Enqueue(task)

	e.Cycle(context.Background())
	if task.Status != models.TaskStatusEscalated {
		t.Fatalf("status = %s, want escalated", task.Status)
	}
	if task.EscalationReason != "seller withdrew the property" {
		t.Errorf("escalationReason = %q", task.EscalationReason)
	}
	stats := e.SystemStatus().Workers[models.WorkerSales]
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
}

func TestEveryTaskLivesInExactlyOnePlace(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{WorkerID: models.WorkerRentals, Concurrency: 2})
	e := newTestEngine(t, reg, stubClassifier{})

	for i := 0; i < 5; i++ {
		_ = e.Enqueue(pendingTask(fmt.Sprintf("n%d", i), models.TaskKindScheduleViewing, models.PriorityMedium, models.WorkerRentals))
	}

	check := func(when string) {
		qs := e.QueueStatus()
		queued := 0
		for _, n := range qs.Pending {
			queued += n
		}
		if got := queued + qs.InFlight + qs.Completed; got != 5 {
			t.Errorf("%s: queued=%d inflight=%d completed=%d, total %d, want 5", when, queued, qs.InFlight, qs.Completed, got)
		}
	}

	check("initial")
	e.Cycle(context.Background())
	check("after one cycle")
	for e.Cycle(context.Background()) {
	}
	check("after drain")
}

func TestEnqueueValidation(t *testing.T) {
	e := newTestEngine(t, registry.New(), stubClassifier{})

	if err := e.Enqueue(&models.Task{ID: "x", Kind: models.TaskKindQualifyLead, Priority: "asap", Status: models.TaskStatusPending}); err == nil {
		t.Error("invalid priority should be rejected")
	}
	if err := e.Enqueue(&models.Task{ID: "x", Kind: "make_coffee", Priority: models.PriorityLow, Status: models.TaskStatusPending}); err == nil {
		t.Error("invalid kind should be rejected")
	}
	if err := e.Enqueue(&models.Task{ID: "x", Kind: models.TaskKindQualifyLead, Priority: models.PriorityLow, Status: models.TaskStatusCompleted}); err == nil {
		t.Error("non-pending status should be rejected")
	}

	task := &models.Task{ID: "ok", Kind: models.TaskKindQualifyLead, Priority: models.PriorityLow, Status: models.TaskStatusPending}
	if err := e.Enqueue(task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if task.MaxAttempts != models.DefaultMaxAttempts {
		t.Errorf("maxAttempts defaulted to %d, want %d", task.MaxAttempts, models.DefaultMaxAttempts)
	}
}

func TestLifecycleEventsEmitted(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{WorkerID: models.WorkerAdmin})
	e := newTestEngine(t, reg, stubClassifier{})

	task := pendingTask("ev1", models.TaskKindRespondToInquiry, models.PriorityLow, models.WorkerAdmin)
	_ = e.Enqueue(task)
	e.Cycle(context.Background())

	seen := make(map[EventType]bool)
drain:
	for {
		select {
		case ev := <-e.Events():
			seen[ev.Type] = true
			if ev.TaskID != "ev1" {
				t.Errorf("event task id = %q, want ev1", ev.TaskID)
			}
		default:
			break drain
		}
	}

	for _, want := range []EventType{EventTaskCreated, EventTaskDispatched, EventTaskCompleted} {
		if !seen[want] {
			t.Errorf("missing %s event", want)
		}
	}
	if e.QueueStatus().DroppedEvents != 0 {
		t.Errorf("dropped = %d, want 0", e.QueueStatus().DroppedEvents)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{WorkerID: models.WorkerAdmin})
	e := newTestEngine(t, reg, stubClassifier{})
	e.interval = time.Millisecond

	_ = e.Enqueue(pendingTask("r1", models.TaskKindRespondToInquiry, models.PriorityLow, models.WorkerAdmin))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for e.QueueStatus().Completed == 0 {
		select {
		case <-deadline:
			t.Fatal("task never completed under the dispatch loop")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if e.QueueStatus().Running {
		t.Error("running flag should clear after the loop exits")
	}
}

func TestCycleDispatchesUnknownWorkerHead(t *testing.T) {
	reg := registry.New()
	admin := &worker.FuncWorker{WorkerID: models.WorkerAdmin}
	reg.Register(admin)
	e := newTestEngine(t, reg, stubClassifier{})

	// marketing is not registered; the head must not sit in the queue forever.
	_ = e.Enqueue(pendingTask("u1", models.TaskKindDraftListing, models.PriorityMedium, models.WorkerMarketing))

	if !e.Cycle(context.Background()) {
		t.Fatal("Cycle should dispatch a head whose worker is unregistered")
	}
	got, err := e.GetTask("u1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed via the office admin", got.Status)
	}
	if admin.Calls != 1 {
		t.Errorf("admin calls = %d, want 1 (orphaned assignments land on the admin)", admin.Calls)
	}
}

// Snapshot accessors must hand out copies: the HTTP handlers marshal tasks
// on their own goroutines while the dispatch loop keeps mutating the
// tracked structs under the engine lock.
func TestGetTaskSnapshotsDuringDispatch(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerAdmin,
		Process: func(_ context.Context, task *models.Task, _ *worker.TaskContext) (*models.Decision, error) {
			if task.ParentTaskID != "" {
				return &models.Decision{Action: models.ActionComplete}, nil
			}
			return &models.Decision{
				Action:      models.ActionCreateTask,
				Reasoning:   "logged a follow-up",
				CreateTasks: []models.TaskSpec{{Kind: models.TaskKindRespondToInquiry}},
			}, nil
		},
	})
	e := newTestEngine(t, reg, stubClassifier{})

	_ = e.Enqueue(pendingTask("p1", models.TaskKindRespondToInquiry, models.PriorityHigh, models.WorkerAdmin))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if task, err := e.GetTask("p1"); err == nil {
				if _, err := json.Marshal(task); err != nil {
					t.Errorf("marshal snapshot: %v", err)
					return
				}
			}
			for _, c := range e.CompletedTasks() {
				if _, err := json.Marshal(c); err != nil {
					t.Errorf("marshal completed task: %v", err)
					return
				}
			}
		}
	}()

	// Each round parks p1 with a fresh child appended, then requeues it,
	// so ChildTaskIDs and Output churn while the reader marshals.
	for i := 0; i < 50; i++ {
		e.Cycle(context.Background())
		_ = e.Requeue("p1")
	}
	<-done

	snap, err := e.GetTask("p1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	snap.Status = models.TaskStatusEscalated
	snap.ChildTaskIDs = append(snap.ChildTaskIDs, "rogue")
	if snap.Output != nil {
		snap.Output.Reasoning = "tampered"
	}

	again, err := e.GetTask("p1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if again.Status == models.TaskStatusEscalated {
		t.Error("writes to a snapshot must not reach the tracked task")
	}
	for _, id := range again.ChildTaskIDs {
		if id == "rogue" {
			t.Error("snapshot ChildTaskIDs must not alias the tracked slice")
		}
	}
	if again.Output != nil && again.Output.Reasoning == "tampered" {
		t.Error("snapshot Output must not alias the tracked decision")
	}
}

func TestRunDispatchesOneTaskPerTick(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{WorkerID: models.WorkerAdmin, Concurrency: 5})
	e := newTestEngine(t, reg, stubClassifier{})
	e.interval = 25 * time.Millisecond

	for i := 1; i <= 3; i++ {
		_ = e.Enqueue(pendingTask(fmt.Sprintf("b%d", i), models.TaskKindRespondToInquiry, models.PriorityLow, models.WorkerAdmin))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	start := time.Now()
	deadline := time.After(2 * time.Second)
	for e.QueueStatus().Completed < 3 {
		select {
		case <-deadline:
			t.Fatal("burst never drained")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The second and third tasks each need their own tick, so draining a
	// burst of three takes at least two intervals.
	if elapsed := time.Since(start); elapsed < 2*e.interval {
		t.Errorf("burst of 3 drained in %s, want at least %s", elapsed, 2*e.interval)
	}
}
