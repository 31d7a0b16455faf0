package orchestrator

import (
	"context"
	"time"
)

// Run drives the dispatch loop until the context is cancelled. Exactly one
// cycle fires per interval, so throughput scales with cycle frequency and a
// burst never monopolizes the loop. An empty cycle is cheap, so there is no
// backoff. Run returns the context's error once the loop stops.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	defer e.running.Store(false)

	e.logger.Log("[engine] dispatch loop started, interval=%s", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Log("[engine] dispatch loop stopped: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			e.Cycle(ctx)
		}
	}
}

// Close releases the engine's event channel and debug log file.
func (e *Engine) Close() {
	e.emitter.Close()
	e.logger.Close()
}
