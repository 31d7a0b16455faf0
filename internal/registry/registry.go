// Package registry holds the set of known workers keyed by identity.
// It is read by the router for lookup and by the orchestrator for capacity
// checks; only the process wiring code writes to it.
package registry

import (
	"sync"
	"time"

	"github.com/jbplatform/relay/internal/worker"
	"github.com/jbplatform/relay/pkg/models"
)

// Registry provides thread-safe storage and retrieval of workers.
type Registry struct {
	// workers maps worker identities to instances.
	workers map[models.WorkerID]worker.Worker
	// mu protects all fields.
	mu sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		workers: make(map[models.WorkerID]worker.Worker),
	}
}

// Register adds a worker keyed by its identity. Registering the same
// identity again replaces the previous entry.
func (r *Registry) Register(w worker.Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.ID()] = w
}

// Unregister removes a worker. Removing an unknown identity is a no-op.
func (r *Registry) Unregister(id models.WorkerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, id)
}

// Lookup retrieves a worker by identity. The boolean is false when no
// worker is registered under the identity.
func (r *Registry) Lookup(id models.WorkerID) (worker.Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	return w, ok
}

// ActiveAlternate returns an active worker other than exclude that can
// handle the given kind, or false when none qualifies. Iteration order is
// fixed by the closed identity set so the choice is deterministic.
func (r *Registry) ActiveAlternate(kind models.TaskKind, exclude models.WorkerID, now time.Time) (worker.Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range models.WorkerIDs {
		if id == exclude {
			continue
		}
		w, ok := r.workers[id]
		if !ok {
			continue
		}
		if w.CanHandle(kind) && w.IsActive(now) {
			return w, true
		}
	}
	return nil, false
}

// All returns a snapshot of all registered workers.
func (r *Registry) All() []worker.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make([]worker.Worker, 0, len(r.workers))
	for _, id := range models.WorkerIDs {
		if w, ok := r.workers[id]; ok {
			workers = append(workers, w)
		}
	}
	return workers
}

// Count returns the number of registered workers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
