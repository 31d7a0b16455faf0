// Package journal persists the engine's lifecycle event stream to SQLite.
// The journal is append-only: the engine's in-memory state is authoritative
// and is never rebuilt from here, the journal exists for audit and
// after-the-fact inspection of task histories.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jbplatform/relay/internal/orchestrator"
	"github.com/jbplatform/relay/pkg/models"
)

// Journal wraps an SQLite database holding the task event log.
type Journal struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// Entry is one journaled lifecycle event.
type Entry struct {
	ID        int64                  `json:"id"`
	Type      orchestrator.EventType `json:"type"`
	TaskID    string                 `json:"task_id"`
	ParentID  string                 `json:"parent_id,omitempty"`
	Kind      models.TaskKind        `json:"kind"`
	Priority  models.Priority        `json:"priority"`
	Worker    models.WorkerID        `json:"worker"`
	Status    models.TaskStatus      `json:"status"`
	Attempts  int                    `json:"attempts"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// DefaultPath returns the journal location under the user's data directory.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "relay", "journal.db")
}

// Open opens the journal database at the given path, creating parent
// directories and the schema as needed. WAL mode is enabled so status
// queries don't block the append path.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	j := &Journal{conn: conn, path: path}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.conn.Close()
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) migrate() error {
	_, err := j.conn.Exec(`
		CREATE TABLE IF NOT EXISTS task_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			task_id TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			priority TEXT NOT NULL,
			worker TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create task_events table: %w", err)
	}

	_, err = j.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_task_events_task_id ON task_events(task_id)`)
	if err != nil {
		return fmt.Errorf("create task_events index: %w", err)
	}
	return nil
}

// Append writes one event to the journal.
func (j *Journal) Append(ev orchestrator.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.conn.Exec(`
		INSERT INTO task_events (type, task_id, parent_id, kind, priority, worker, status, attempts, message, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(ev.Type), ev.TaskID, ev.ParentID, string(ev.Kind), string(ev.Priority),
		string(ev.Worker), string(ev.Status), ev.Attempts, ev.Message, ev.Error,
		ev.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Consume drains the event stream into the journal until the context is
// cancelled or the channel closes. Append failures are counted and the
// consumer keeps going; a broken journal must not stall the engine.
func (j *Journal) Consume(ctx context.Context, events <-chan orchestrator.Event) (failed int) {
	for {
		select {
		case <-ctx.Done():
			return failed
		case ev, ok := <-events:
			if !ok {
				return failed
			}
			if err := j.Append(ev); err != nil {
				failed++
			}
		}
	}
}

// TaskHistory returns all journaled events for one task, oldest first.
func (j *Journal) TaskHistory(taskID string) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.conn.Query(`
		SELECT id, type, task_id, parent_id, kind, priority, worker, status, attempts, message, error, timestamp
		FROM task_events WHERE task_id = ? ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query task history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Recent returns the newest journaled events, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.conn.Query(`
		SELECT id, type, task_id, parent_id, kind, priority, worker, status, attempts, message, error, timestamp
		FROM task_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountByType returns how many events of each type have been journaled.
func (j *Journal) CountByType() (map[orchestrator.EventType]int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.conn.Query(`SELECT type, COUNT(*) FROM task_events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[orchestrator.EventType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[orchestrator.EventType(typ)] = n
	}
	return counts, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ, kind, priority, worker, status, ts string
		if err := rows.Scan(&e.ID, &typ, &e.TaskID, &e.ParentID, &kind, &priority,
			&worker, &status, &e.Attempts, &e.Message, &e.Error, &ts); err != nil {
			return nil, err
		}
		e.Type = orchestrator.EventType(typ)
		e.Kind = models.TaskKind(kind)
		e.Priority = models.Priority(priority)
		e.Worker = models.WorkerID(worker)
		e.Status = models.TaskStatus(status)
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse event timestamp: %w", err)
		}
		e.Timestamp = t
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
