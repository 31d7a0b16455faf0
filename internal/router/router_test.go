package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jbplatform/relay/internal/classifier"
	"github.com/jbplatform/relay/internal/registry"
	"github.com/jbplatform/relay/internal/worker"
	"github.com/jbplatform/relay/pkg/models"
)

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, models.InboundMessage) (models.RoutingDecision, error) {
	return models.RoutingDecision{}, errors.New("model timeout")
}

func newTestRouter(reg *registry.Registry) *Router {
	return New(reg, classifier.NewStatic(),
		WithClock(func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }),
	)
}

func TestClassifyFallbackNeverFails(t *testing.T) {
	r := New(registry.New(), failingClassifier{})

	rd := r.Classify(context.Background(), models.InboundMessage{Body: "anything"})
	if rd.AssignTo != models.WorkerAdmin {
		t.Errorf("fallback assign_to = %s, want admin", rd.AssignTo)
	}
	if rd.Priority != models.PriorityMedium {
		t.Errorf("fallback priority = %s, want medium", rd.Priority)
	}
	if rd.Confidence >= 0.5 {
		t.Errorf("fallback confidence should be low, got %v", rd.Confidence)
	}
}

type sloppyClassifier struct{}

func (sloppyClassifier) Classify(context.Context, models.InboundMessage) (models.RoutingDecision, error) {
	return models.RoutingDecision{AssignTo: "janitor", Priority: "asap"}, nil
}

func TestClassifyFallbackOnOutOfRangeFields(t *testing.T) {
	r := New(registry.New(), sloppyClassifier{})

	rd := r.Classify(context.Background(), models.InboundMessage{Body: "anything"})
	if rd.AssignTo != models.WorkerAdmin || rd.Priority != models.PriorityMedium {
		t.Errorf("out-of-range routing should be replaced by the fallback, got %+v", rd)
	}
}

func TestCreateTask(t *testing.T) {
	r := newTestRouter(registry.New())

	msg := models.InboundMessage{
		ID:      "m1",
		Channel: models.ChannelEmail,
		Body:    "No hot water since this morning",
	}
	rd := r.Classify(context.Background(), msg)
	task := r.CreateTask(msg, rd)

	if task.ID == "" {
		t.Error("task id should be generated")
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	if task.Priority != models.PriorityUrgent {
		t.Errorf("priority = %s, want urgent", task.Priority)
	}
	if task.AssignedWorker != models.WorkerMaintenance {
		t.Errorf("assigned_worker = %s, want maintenance", task.AssignedWorker)
	}
	if task.AssignedBy != AssignedByRouter {
		t.Errorf("assigned_by = %s, want router", task.AssignedBy)
	}
	if task.MaxAttempts != models.DefaultMaxAttempts {
		t.Errorf("max_attempts = %d, want %d", task.MaxAttempts, models.DefaultMaxAttempts)
	}
	if task.Input.Message == nil || task.Input.Message.ID != "m1" {
		t.Error("task input should carry the original message")
	}
}

func TestRouteTaskActiveWorker(t *testing.T) {
	reg := registry.New()
	w := &worker.FuncWorker{
		WorkerID: models.WorkerMaintenance,
		Process: func(context.Context, *models.Task, *worker.TaskContext) (*models.Decision, error) {
			return &models.Decision{Action: models.ActionComplete, Reasoning: "done"}, nil
		},
	}
	reg.Register(w)
	r := newTestRouter(reg)

	task := &models.Task{ID: "t1", Kind: models.TaskKindCreateMaintenanceTicket, AssignedWorker: models.WorkerMaintenance}
	d, err := r.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	if d.Action != models.ActionComplete {
		t.Errorf("action = %s, want complete", d.Action)
	}
	if w.Calls != 1 {
		t.Errorf("worker called %d times, want 1", w.Calls)
	}
}

func TestRouteTaskOfflineWorkerWaits(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerMaintenance,
		Active:   func(time.Time) bool { return false },
	})
	r := newTestRouter(reg)

	task := &models.Task{ID: "t1", Kind: models.TaskKindCreateMaintenanceTicket, AssignedWorker: models.WorkerMaintenance}
	d, err := r.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	if d.Action != models.ActionWait {
		t.Fatalf("action = %s, want wait for an offline worker", d.Action)
	}
	if d.Reasoning == "" {
		t.Error("wait decision should explain the offline worker")
	}
}

func TestRouteTaskUnknownWorkerFallsBackToAdmin(t *testing.T) {
	reg := registry.New()
	admin := &worker.FuncWorker{WorkerID: models.WorkerAdmin}
	reg.Register(admin)
	r := newTestRouter(reg)

	task := &models.Task{ID: "t1", Kind: models.TaskKindRespondToInquiry, AssignedWorker: models.WorkerSales}
	d, err := r.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	if d.Action != models.ActionComplete {
		t.Errorf("action = %s, want complete from the admin fallback", d.Action)
	}
	if admin.Calls != 1 {
		t.Errorf("admin called %d times, want 1", admin.Calls)
	}
}

func TestRouteTaskNoWorkerNoAdminEscalates(t *testing.T) {
	r := newTestRouter(registry.New())

	task := &models.Task{ID: "t1", Kind: models.TaskKindRespondToInquiry, AssignedWorker: models.WorkerSales}
	d, err := r.RouteTask(context.Background(), task)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	if d.Action != models.ActionEscalate {
		t.Fatalf("action = %s, want escalate with an empty registry", d.Action)
	}
	if d.EscalationReason == "" {
		t.Error("escalate decision should carry a reason")
	}
}

func TestRouteTaskWorkerErrorPropagates(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerMaintenance,
		Process: func(context.Context, *models.Task, *worker.TaskContext) (*models.Decision, error) {
			return nil, errors.New("crm unavailable")
		},
	})
	r := newTestRouter(reg)

	task := &models.Task{ID: "t1", AssignedWorker: models.WorkerMaintenance}
	if _, err := r.RouteTask(context.Background(), task); err == nil {
		t.Fatal("expected the worker error to propagate")
	}
}

func TestRouteTaskInvalidDecisionIsError(t *testing.T) {
	reg := registry.New()
	reg.Register(&worker.FuncWorker{
		WorkerID: models.WorkerMaintenance,
		Process: func(context.Context, *models.Task, *worker.TaskContext) (*models.Decision, error) {
			return &models.Decision{Action: models.ActionDelegate}, nil // missing target
		},
	})
	r := newTestRouter(reg)

	task := &models.Task{ID: "t1", AssignedWorker: models.WorkerMaintenance}
	if _, err := r.RouteTask(context.Background(), task); err == nil {
		t.Fatal("expected an invalid decision to surface as an error")
	}
}

func TestHandleEscalationReassigns(t *testing.T) {
	reg := registry.New()
	alt := &worker.FuncWorker{
		WorkerID: models.WorkerAdmin,
		Kinds:    []models.TaskKind{models.TaskKindProcessOffer},
	}
	reg.Register(alt)
	r := newTestRouter(reg)

	task := &models.Task{ID: "t1", Kind: models.TaskKindProcessOffer, AssignedWorker: models.WorkerSales}
	d, err := r.HandleEscalation(context.Background(), task, "buyer is withdrawing an offer")
	if err != nil {
		t.Fatalf("HandleEscalation: %v", err)
	}
	if task.AssignedWorker != models.WorkerAdmin {
		t.Errorf("task should be reassigned to admin, got %s", task.AssignedWorker)
	}
	if d.Action != models.ActionComplete {
		t.Errorf("action = %s, want complete from the alternate", d.Action)
	}
	if alt.Calls != 1 {
		t.Errorf("alternate called %d times, want 1", alt.Calls)
	}
}

func TestHandleEscalationNoAlternate(t *testing.T) {
	r := newTestRouter(registry.New())

	task := &models.Task{ID: "t1", Kind: models.TaskKindProcessOffer, AssignedWorker: models.WorkerSales}
	d, err := r.HandleEscalation(context.Background(), task, "nobody can price this")
	if err != nil {
		t.Fatalf("HandleEscalation: %v", err)
	}
	if d.Action != models.ActionEscalate {
		t.Fatalf("action = %s, want escalate for a human", d.Action)
	}
	if d.EscalationReason != "nobody can price this" {
		t.Errorf("escalation reason = %q", d.EscalationReason)
	}
}
