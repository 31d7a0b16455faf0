// Package tui provides the terminal status watcher for a running relay
// instance. It polls the HTTP API and renders queue depths and per-worker
// metrics.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jbplatform/relay/internal/orchestrator"
)

// StatusClient fetches engine status from the relay HTTP API.
type StatusClient struct {
	base string
	http *http.Client
}

// NewStatusClient creates a client for the given base URL, e.g.
// "http://127.0.0.1:8700".
func NewStatusClient(base string) *StatusClient {
	return &StatusClient{
		base: base,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchQueue returns the queue-level engine view.
func (c *StatusClient) FetchQueue() (orchestrator.QueueStatus, error) {
	var qs orchestrator.QueueStatus
	return qs, c.getJSON("/api/v1/status", &qs)
}

// FetchSystem returns per-worker metrics.
func (c *StatusClient) FetchSystem() (orchestrator.SystemStatus, error) {
	var ss orchestrator.SystemStatus
	return ss, c.getJSON("/api/v1/system", &ss)
}

func (c *StatusClient) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
