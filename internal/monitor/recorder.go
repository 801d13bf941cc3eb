package monitor

import (
	"sync"

	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/notify"
)

// Sink receives history-changed events.
type Sink interface {
	Publish(notify.Event)
}

// Recorder is the only path that inserts into the history and emits
// notifications. Insert and publish happen under one lock, so events leave in
// insertion order and a listener that lists the history on receipt always
// sees the new entry.
type Recorder struct {
	mu    sync.Mutex
	store *history.Store
	sink  Sink
}

// NewRecorder returns a Recorder. sink may be nil.
func NewRecorder(store *history.Store, sink Sink) *Recorder {
	return &Recorder{store: store, sink: sink}
}

// Record inserts content and, if it was added, publishes the event.
func (r *Recorder) Record(content string) (history.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.store.Insert(content)
	if !ok {
		return e, false
	}
	if r.sink != nil {
		r.sink.Publish(notify.Event{
			Name:    notify.EventHistoryChanged,
			Content: e.Content,
			Entry:   e,
		})
	}
	return e, true
}
