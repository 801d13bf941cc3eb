// Package tracker wires the clipboard history core together and exposes the
// operations the command layer consumes.
//
// All state (history, suppression gate, notification broker) is owned by a
// Tracker built once at startup; nothing is process-global.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/monitor"
	"go.klb.dev/copymate/internal/notify"
	"go.klb.dev/copymate/internal/suppress"
)

var (
	// ErrEmptyContent is returned when asked to copy blank text.
	ErrEmptyContent = errors.New("content is empty")

	// ErrClosed is wrapped in an AccessError once the tracker is closed.
	ErrClosed = errors.New("tracker closed")
)

// AccessError reports that shared state could not be accessed.
type AccessError struct {
	Op  string
	Err error
}

func (e *AccessError) Error() string { return fmt.Sprintf("%s: state access failed: %v", e.Op, e.Err) }

func (e *AccessError) Unwrap() error { return e.Err }

// Config tunes a Tracker. Zero values select the defaults.
type Config struct {
	Capacity             int
	Interval             time.Duration
	DisarmOnWriteFailure bool
	Clock                func() time.Time
}

// Status is a point-in-time summary for the status command.
type Status struct {
	Backend              string `json:"backend"`
	Monitoring           bool   `json:"monitoring"`
	IntervalMS           int64  `json:"interval_ms"`
	Entries              int    `json:"entries"`
	Capacity             int    `json:"capacity"`
	SuppressionArmed     bool   `json:"suppression_armed"`
	DisarmOnWriteFailure bool   `json:"disarm_on_write_failure"`
	Listeners            int    `json:"listeners"`
}

// Tracker owns the history core for one session.
type Tracker struct {
	backend clip.Backend
	cfg     Config

	store  *history.Store
	gate   *suppress.Gate
	broker *notify.Broker
	rec    *monitor.Recorder
	mon    *monitor.Monitor
	ctl    *Controller

	closed atomic.Bool
}

// New builds a Tracker over backend. The caller keeps ownership of backend.
func New(backend clip.Backend, cfg Config) *Tracker {
	store := history.New(history.WithCapacity(cfg.Capacity), history.WithClock(cfg.Clock))
	gate := &suppress.Gate{}
	broker := notify.NewBroker()
	rec := monitor.NewRecorder(store, broker)

	return &Tracker{
		backend: backend,
		cfg:     cfg,
		store:   store,
		gate:    gate,
		broker:  broker,
		rec:     rec,
		mon:     monitor.New(backend, gate, rec, cfg.Interval),
		ctl:     NewController(gate, backend, cfg.DisarmOnWriteFailure),
	}
}

// History returns the entries, newest first.
func (t *Tracker) History() ([]history.Entry, error) {
	var out []history.Entry
	err := t.guard("get history", func() error {
		out = t.store.List()
		return nil
	})
	return out, err
}

// Add records content directly, bypassing the monitor. Listeners are
// notified like for a monitored change.
func (t *Tracker) Add(content string) (bool, error) {
	var added bool
	err := t.guard("add history item", func() error {
		_, added = t.rec.Record(content)
		return nil
	})
	return added, err
}

// StartMonitoring starts the clipboard monitor. Calling it again is a no-op
// that reports false.
func (t *Tracker) StartMonitoring(ctx context.Context) (bool, error) {
	var started bool
	err := t.guard("start monitoring", func() error {
		started = t.mon.Start(ctx)
		if !started {
			slog.Debug("clipboard monitor already started")
		}
		return nil
	})
	return started, err
}

// Copy writes content to the clipboard without it being recorded as a user
// copy.
func (t *Tracker) Copy(content string) error {
	return t.guard("copy", func() error {
		if err := t.ctl.Copy(content); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		return nil
	})
}

// Clear empties the history.
func (t *Tracker) Clear() error {
	return t.guard("clear history", func() error {
		t.store.Clear()
		slog.Info("history cleared")
		return nil
	})
}

// CurrentText reads the clipboard as it is right now.
func (t *Tracker) CurrentText() (string, error) {
	var text string
	err := t.guard("read clipboard", func() error {
		var err error
		text, err = t.backend.ReadText()
		return err
	})
	return text, err
}

// Status summarises the tracker.
func (t *Tracker) Status() Status {
	return Status{
		Backend:              t.backend.Name(),
		Monitoring:           t.mon.Running(),
		IntervalMS:           t.mon.Interval().Milliseconds(),
		Entries:              t.store.Len(),
		Capacity:             t.store.Capacity(),
		SuppressionArmed:     t.gate.Armed(),
		DisarmOnWriteFailure: t.cfg.DisarmOnWriteFailure,
		Listeners:            t.broker.Len(),
	}
}

// Subscribe registers a buffered channel listener under id.
func (t *Tracker) Subscribe(id string, buffer int) *notify.Chan {
	l := notify.NewChan(id, buffer)
	t.broker.Register(l)
	return l
}

// Listen registers an arbitrary listener.
func (t *Tracker) Listen(l notify.Listener) { t.broker.Register(l) }

// Unsubscribe removes a listener.
func (t *Tracker) Unsubscribe(l notify.Listener) { t.broker.Unregister(l) }

// Monitor exposes the underlying monitor.
func (t *Tracker) Monitor() *monitor.Monitor { return t.mon }

// Close rejects further operations. It does not stop the monitor; cancel the
// context passed to StartMonitoring for that.
func (t *Tracker) Close() { t.closed.Store(true) }

func (t *Tracker) guard(op string, fn func() error) (err error) {
	if t.closed.Load() {
		return &AccessError{Op: op, Err: ErrClosed}
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("operation failed", "op", op, "panic", r)
			err = &AccessError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}
