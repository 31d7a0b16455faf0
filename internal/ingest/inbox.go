package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/jbplatform/relay/pkg/logger"
)

// Inbox watches a directory for dropped *.json message files and submits
// them to the engine. Processed files are renamed with a .done suffix so
// a crash never double-submits and failures stay visible as .err files.
type Inbox struct {
	dir     string
	engine  Submitter
	watcher *fsnotify.Watcher
	log     *logger.Logger
}

// NewInbox creates the inbox directory if needed and sets up the watcher.
func NewInbox(dir string, engine Submitter) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch inbox %s: %w", dir, err)
	}

	return &Inbox{
		dir:     dir,
		engine:  engine,
		watcher: watcher,
		log:     logger.New("ingest.inbox"),
	}, nil
}

// Run processes files until the context is cancelled. Files already
// present at startup are picked up first, then the watcher takes over.
func (ib *Inbox) Run(ctx context.Context) error {
	defer ib.watcher.Close()

	if err := ib.sweep(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-ib.watcher.Events:
			if !ok {
				return nil
			}
			// Writers typically create then write; acting on both Create
			// and Write and skipping empty files covers either order.
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			ib.handleFile(ctx, event.Name)
		case err, ok := <-ib.watcher.Errors:
			if !ok {
				return nil
			}
			ib.log.WithError(err).Warn("inbox watcher error")
		}
	}
}

// sweep submits message files that were already in the directory.
func (ib *Inbox) sweep(ctx context.Context) error {
	entries, err := os.ReadDir(ib.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ib.handleFile(ctx, filepath.Join(ib.dir, entry.Name()))
	}
	return nil
}

func (ib *Inbox) handleFile(ctx context.Context, path string) {
	if !strings.HasSuffix(path, ".json") {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return
	}

	msg, err := decodeInboundMessage(data)
	if err != nil {
		ib.log.WithError(err).WithField("file", path).Warn("rejecting inbox file")
		_ = os.Rename(path, path+".err")
		return
	}

	receipt, err := ib.engine.Submit(ctx, msg)
	if err != nil {
		ib.log.WithError(err).WithField("file", path).Error("inbox submission failed")
		_ = os.Rename(path, path+".err")
		return
	}

	ib.log.WithTask(receipt.TaskID).WithField("file", path).Info("message submitted from inbox")
	_ = os.Rename(path, path+".done")
}
