package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid file events so a save storm becomes one
// reindex per file. Events for the same path within the window merge:
//   - create + modify = create
//   - create + delete = nothing
//   - modify + delete = delete
//   - delete + create = modify
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	timer   *time.Timer
	output  chan []Event
	stopped bool
}

type pendingEvent struct {
	event   Event
	firstOp Op
}

// NewDebouncer creates a debouncer emitting batches after the window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []Event, 10),
	}
}

// Add queues an event, coalescing with any pending event for the path.
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		merged, drop := coalesce(existing.firstOp, event)
		if drop {
			delete(d.pending, event.Path)
		} else {
			existing.event = merged
		}
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, firstOp: event.Op}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges a new event into a pending one. drop reports that the
// pair cancels out.
func coalesce(firstOp Op, next Event) (Event, bool) {
	switch {
	case firstOp == OpCreate && next.Op == OpModify:
		next.Op = OpCreate
		return next, false
	case firstOp == OpCreate && next.Op == OpDelete:
		return Event{}, true
	case firstOp == OpDelete && next.Op == OpCreate:
		next.Op = OpModify
		return next, false
	default:
		return next, false
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]Event, 0, len(d.pending))
	for _, pe := range d.pending {
		events = append(events, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch", slog.Int("batch", len(events)))
	}
}

// Output returns the batch channel. Closed by Stop.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Stop halts the debouncer. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
