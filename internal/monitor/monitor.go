// Package monitor polls the system clipboard and records genuine user copies
// into the history.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/logging"
	"go.klb.dev/copymate/internal/suppress"
)

// DefaultInterval is the pause between two clipboard reads.
const DefaultInterval = 500 * time.Millisecond

// Reader is the clipboard read primitive the monitor consumes.
type Reader interface {
	ReadText() (string, error)
}

// Outcome describes what a single poll did.
type Outcome int

const (
	OutcomeReadFailed Outcome = iota
	OutcomeUnchanged
	OutcomeBlank
	OutcomeSuppressed
	OutcomeDuplicate
	OutcomeRecorded
	OutcomePanicked
)

var outcomeNames = [...]string{
	OutcomeReadFailed: "read-failed",
	OutcomeUnchanged:  "unchanged",
	OutcomeBlank:      "blank",
	OutcomeSuppressed: "suppressed",
	OutcomeDuplicate:  "duplicate",
	OutcomeRecorded:   "recorded",
	OutcomePanicked:   "panicked",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Monitor is the polling loop. It is started at most once; once its context
// is cancelled it stays stopped.
type Monitor struct {
	reader   Reader
	gate     *suppress.Gate
	rec      *Recorder
	interval time.Duration

	started atomic.Bool
	running atomic.Bool
	done    chan struct{}

	mu   sync.Mutex // serialises polls
	last string
}

// New creates a monitor but does not start it. interval <= 0 selects
// DefaultInterval.
func New(reader Reader, gate *suppress.Gate, rec *Recorder, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		reader:   reader,
		gate:     gate,
		rec:      rec,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the loop in its own goroutine. It reports false, and does
// nothing, if the monitor was already started.
func (m *Monitor) Start(ctx context.Context) bool {
	if !m.started.CompareAndSwap(false, true) {
		return false
	}
	m.running.Store(true)
	go m.run(ctx)
	return true
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool { return m.running.Load() }

// Done is closed when the loop exits. It never closes for a monitor that was
// not started.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Interval returns the poll interval.
func (m *Monitor) Interval() time.Duration { return m.interval }

// LastObserved returns the last clipboard value the monitor accepted as seen.
func (m *Monitor) LastObserved() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	defer m.running.Store(false)

	slog.Info("clipboard monitor started", "interval", m.interval)
	for {
		// The sleep always runs to completion; cancellation is observed
		// once per iteration, after it.
		time.Sleep(m.interval)
		if ctx.Err() != nil {
			slog.Info("clipboard monitor stopped")
			return
		}
		m.Poll()
	}
}

// Poll performs one evaluation of the clipboard: read, compare with the last
// observed value, consult the gate, and record. It never panics.
func (m *Monitor) Poll() (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("clipboard poll failed", "panic", r)
			out = OutcomePanicked
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	text, err := m.reader.ReadText()
	if err != nil {
		if !errors.Is(err, clip.ErrEmpty) {
			slog.Debug("clipboard read failed", "err", err)
		}
		return OutcomeReadFailed
	}
	if text == m.last {
		return OutcomeUnchanged
	}
	if strings.TrimSpace(text) == "" {
		return OutcomeBlank
	}

	if m.gate.CheckAndClear() {
		m.last = text
		slog.Debug("ignoring clipboard change made by copymate", "preview", logging.Preview(text, 50))
		return OutcomeSuppressed
	}

	e, ok := m.rec.Record(text)
	m.last = text
	if !ok {
		return OutcomeDuplicate
	}
	slog.Info("clipboard change recorded", "id", e.ID, "chars", len([]rune(text)))
	slog.Debug("clipboard item", "preview", logging.Preview(text, 120))
	return OutcomeRecorded
}
