// Package watch keeps an index synchronized with a live file tree using
// filesystem notifications with debounced batching.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is a coalesced file operation.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Event is a debounced file change.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Watcher watches a directory tree recursively. fsnotify does not recurse,
// so every subdirectory is registered, including ones created while
// watching.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	skip      func(path string) bool
	errs      chan error
}

// New creates a watcher. skip filters paths (directories and files); a nil
// skip watches everything.
func New(debounce time.Duration, skip func(path string) bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}
	if skip == nil {
		skip = func(string) bool { return false }
	}
	return &Watcher{
		fsw:       fsw,
		debouncer: NewDebouncer(debounce),
		skip:      skip,
		errs:      make(chan error, 10),
	}, nil
}

// Start registers the tree under root and begins translating raw events.
// Runs until the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skip(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.skip(ev.Name) {
		return
	}

	now := time.Now()
	switch {
	case ev.Has(fsnotify.Create):
		// New directories need their own watch before events arrive.
		if err := w.fsw.Add(ev.Name); err == nil {
			slog.Debug("watching new path", slog.String("path", ev.Name))
		}
		w.debouncer.Add(Event{Path: ev.Name, Op: OpCreate, Time: now})
	case ev.Has(fsnotify.Write):
		w.debouncer.Add(Event{Path: ev.Name, Op: OpModify, Time: now})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.debouncer.Add(Event{Path: ev.Name, Op: OpDelete, Time: now})
	}
}

// Batches returns debounced event batches.
func (w *Watcher) Batches() <-chan []Event {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Stop releases the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.debouncer.Stop()
	return w.fsw.Close()
}
