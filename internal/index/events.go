package index

// EventType identifies an indexing progress event.
type EventType string

const (
	EventStart         EventType = "index:start"
	EventFilesFound    EventType = "index:files_found"
	EventFileProcessed EventType = "index:file_processed"
	EventComplete      EventType = "index:complete"
)

// Event is an observable indexing side effect. Events are informational
// only; no component may rely on them for correctness.
type Event struct {
	Type      EventType
	Path      string // file path for file_processed
	Files     int    // discovered file count for files_found
	Processed int    // files processed so far
	Total     int    // total files in this run
}

// emitter is a minimal synchronous callback list.
type emitter struct {
	listeners []func(Event)
}

func (e *emitter) subscribe(fn func(Event)) {
	e.listeners = append(e.listeners, fn)
}

func (e *emitter) emit(ev Event) {
	for _, fn := range e.listeners {
		fn(ev)
	}
}
