package orchestrator

import (
	"time"

	"github.com/jbplatform/relay/pkg/models"
)

// workerMetrics accumulates per-worker outcomes. Guarded by the engine's
// mutex like the rest of the dispatch state.
type workerMetrics struct {
	completed    int
	failed       int
	totalLatency time.Duration
}

// WorkerStats is the read-only per-worker view returned by SystemStatus.
type WorkerStats struct {
	// Completed counts tasks this worker finished successfully.
	Completed int `json:"completed"`
	// Failed counts failed attempts and terminal escalations.
	Failed int `json:"failed"`
	// AvgLatency is the mean processing time of completed tasks.
	AvgLatency time.Duration `json:"avg_latency_ns"`
	// SuccessRate is completed / (completed + failed), 0 with no data.
	SuccessRate float64 `json:"success_rate"`
}

// SystemStatus aggregates per-worker metrics for observability.
type SystemStatus struct {
	Workers map[models.WorkerID]WorkerStats `json:"workers"`
}

func (m *workerMetrics) recordSuccess(latency time.Duration) {
	m.completed++
	m.totalLatency += latency
}

func (m *workerMetrics) recordFailure() {
	m.failed++
}

func (m *workerMetrics) stats() WorkerStats {
	s := WorkerStats{Completed: m.completed, Failed: m.failed}
	if m.completed > 0 {
		s.AvgLatency = m.totalLatency / time.Duration(m.completed)
	}
	if total := m.completed + m.failed; total > 0 {
		s.SuccessRate = float64(m.completed) / float64(total)
	}
	return s
}
