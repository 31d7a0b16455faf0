// Package router turns inbound messages into tasks and dispatches tasks to
// workers. It owns the classifier; classification failure is absorbed here
// and never blocks task creation.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jbplatform/relay/internal/classifier"
	"github.com/jbplatform/relay/internal/registry"
	"github.com/jbplatform/relay/internal/worker"
	"github.com/jbplatform/relay/pkg/logger"
	"github.com/jbplatform/relay/pkg/models"
)

// AssignedByRouter is the audit tag for assignments made by the router.
const AssignedByRouter = "router"

// ContextResolver builds the context bundle a worker receives with a task.
type ContextResolver interface {
	Resolve(ctx context.Context, task *models.Task) (*worker.TaskContext, error)
}

// nopResolver returns an empty context bundle. Resolution backends (CRM,
// conversation store) plug in through ContextResolver; the engine runs
// without one.
type nopResolver struct{}

func (nopResolver) Resolve(context.Context, *models.Task) (*worker.TaskContext, error) {
	return &worker.TaskContext{}, nil
}

// Option customizes a Router.
type Option func(*Router)

// WithContextResolver sets the context resolver.
func WithContextResolver(r ContextResolver) Option {
	return func(rt *Router) { rt.resolver = r }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(rt *Router) { rt.now = now }
}

// WithIDGenerator overrides task id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(rt *Router) { rt.newID = gen }
}

// Router classifies messages, creates tasks, and routes tasks to workers.
type Router struct {
	registry   *registry.Registry
	classifier classifier.Classifier
	resolver   ContextResolver
	now        func() time.Time
	newID      func() string
	log        *logger.Logger
}

// New creates a Router over the given registry and classifier.
func New(reg *registry.Registry, cls classifier.Classifier, opts ...Option) *Router {
	r := &Router{
		registry:   reg,
		classifier: cls,
		resolver:   nopResolver{},
		now:        time.Now,
		newID:      func() string { return uuid.New().String()[:8] },
		log:        logger.New("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify obtains a routing decision for the message. It never fails: on
// classifier error or unusable output the deterministic fallback applies,
// so classification can never block task creation.
func (r *Router) Classify(ctx context.Context, msg models.InboundMessage) models.RoutingDecision {
	decision, err := r.classifier.Classify(ctx, msg)
	if err != nil {
		r.log.WithError(err).WithField("message_id", msg.ID).Warn("classification failed, using fallback routing")
		return classifier.Fallback()
	}
	if !decision.AssignTo.Valid() || !decision.Priority.Valid() || !decision.SuggestedTaskKind.Valid() {
		r.log.WithField("message_id", msg.ID).Warn("classifier returned out-of-range fields, using fallback routing")
		return classifier.Fallback()
	}
	return decision
}

// CreateTask maps a message and its routing decision into a new pending task.
func (r *Router) CreateTask(msg models.InboundMessage, rd models.RoutingDecision) *models.Task {
	now := r.now()
	return &models.Task{
		ID:             r.newID(),
		Kind:           rd.SuggestedTaskKind,
		Priority:       rd.Priority,
		Status:         models.TaskStatusPending,
		AssignedWorker: rd.AssignTo,
		AssignedBy:     AssignedByRouter,
		Input: models.TaskInput{
			Message:    &msg,
			PropertyID: msg.PropertyID,
			ContactID:  msg.ContactID,
		},
		MaxAttempts: models.DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RouteTask dispatches one task to its assigned worker and returns the
// worker's decision unchanged. The three registry outcomes map to three
// recoveries: unknown worker falls back to the office admin, an offline
// worker yields a synthetic wait decision, and only an actual processing
// failure surfaces as an error (feeding the orchestrator's retry policy).
func (r *Router) RouteTask(ctx context.Context, task *models.Task) (*models.Decision, error) {
	w, ok := r.registry.Lookup(task.AssignedWorker)
	if !ok {
		return r.routeFallback(ctx, task)
	}

	if !w.IsActive(r.now()) {
		return &models.Decision{
			Action:    models.ActionWait,
			Reasoning: fmt.Sprintf("worker %s is outside operating hours or disabled, task stays queued for a later trigger", task.AssignedWorker),
		}, nil
	}

	return r.process(ctx, w, task)
}

// routeFallback handles tasks whose assignee is not registered: the office
// admin picks them up directly. With no admin registered either, the task
// is bound for a human.
func (r *Router) routeFallback(ctx context.Context, task *models.Task) (*models.Decision, error) {
	r.log.WithTask(task.ID).Warnf("no worker registered for %s, handling via office admin", task.AssignedWorker)

	admin, ok := r.registry.Lookup(models.WorkerAdmin)
	if !ok || !admin.IsActive(r.now()) {
		return &models.Decision{
			Action:           models.ActionEscalate,
			Reasoning:        "assigned worker unknown and no office admin available",
			EscalationReason: fmt.Sprintf("no worker registered for %s", task.AssignedWorker),
		}, nil
	}
	return r.process(ctx, admin, task)
}

// process invokes the worker and validates the returned decision. A worker
// answering with a malformed decision is treated the same as a worker that
// errored: the retry policy owns both.
func (r *Router) process(ctx context.Context, w worker.Worker, task *models.Task) (*models.Decision, error) {
	tc, err := r.resolver.Resolve(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("resolve task context: %w", err)
	}

	decision, err := w.ProcessTask(ctx, task, tc)
	if err != nil {
		return nil, fmt.Errorf("worker %s: %w", w.ID(), err)
	}
	if decision == nil {
		return nil, fmt.Errorf("worker %s returned no decision", w.ID())
	}
	if err := decision.Validate(); err != nil {
		return nil, fmt.Errorf("worker %s returned invalid decision: %w", w.ID(), err)
	}
	return decision, nil
}

// HandleEscalation reacts to an escalate decision: any other active worker
// that can handle the task's kind takes it over; with none available the
// returned decision is escalate, bound for a human operator. A second
// escalation from the alternate is not re-routed, which keeps handoff
// chains finite.
func (r *Router) HandleEscalation(ctx context.Context, task *models.Task, reason string) (*models.Decision, error) {
	alt, ok := r.registry.ActiveAlternate(task.Kind, task.AssignedWorker, r.now())
	if !ok {
		return &models.Decision{
			Action:           models.ActionEscalate,
			Reasoning:        "no alternate worker available, handing off to a human",
			EscalationReason: reason,
		}, nil
	}

	r.log.WithTask(task.ID).Infof("escalation reassigned from %s to %s", task.AssignedWorker, alt.ID())
	previous := task.AssignedWorker
	task.AssignedWorker = alt.ID()
	task.AssignedBy = AssignedByRouter

	decision, err := r.RouteTask(ctx, task)
	if err != nil {
		return nil, err
	}
	if decision.Action == models.ActionEscalate {
		decision.Reasoning = fmt.Sprintf("alternate %s escalated as well (originally %s)", alt.ID(), previous)
	}
	return decision, nil
}
