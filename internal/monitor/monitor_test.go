package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/monitor"
	"go.klb.dev/copymate/internal/notify"
	"go.klb.dev/copymate/internal/suppress"
)

type fixture struct {
	cb     *clip.Memory
	gate   *suppress.Gate
	store  *history.Store
	events *notify.Chan
	mon    *monitor.Monitor
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		cb:     clip.NewMemory(),
		gate:   &suppress.Gate{},
		store:  history.New(),
		events: notify.NewChan("test", 16),
	}
	broker := notify.NewBroker()
	broker.Register(f.events)
	rec := monitor.NewRecorder(f.store, broker)
	f.mon = monitor.New(f.cb, f.gate, rec, interval)
	return f
}

func (f *fixture) contents() []string {
	var out []string
	for _, e := range f.store.List() {
		out = append(out, e.Content)
	}
	return out
}

func TestPoll_RecordsNewValueAndNotifies(t *testing.T) {
	f := newFixture(t, 0)
	f.cb.Set("hello")

	assert.Equal(t, monitor.OutcomeRecorded, f.mon.Poll())
	assert.Equal(t, []string{"hello"}, f.contents())
	require.Len(t, f.events.Events(), 1)
	ev := <-f.events.Events()
	assert.Equal(t, notify.EventHistoryChanged, ev.Name)
	assert.Equal(t, "hello", ev.Content)
	assert.Equal(t, "hello", f.mon.LastObserved())
}

func TestPoll_UnchangedValueIsIgnored(t *testing.T) {
	f := newFixture(t, 0)
	f.cb.Set("hello")
	f.mon.Poll()
	<-f.events.Events()

	assert.Equal(t, monitor.OutcomeUnchanged, f.mon.Poll())
	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, f.events.Events())
}

func TestPoll_ReadFailureHasNoSideEffects(t *testing.T) {
	f := newFixture(t, 0)
	f.cb.Set("hello")
	f.cb.FailReads(errors.New("denied"))
	f.gate.Arm()

	assert.Equal(t, monitor.OutcomeReadFailed, f.mon.Poll())
	assert.Zero(t, f.store.Len())
	assert.True(t, f.gate.Armed(), "gate must not be consumed by a failed read")
	assert.Empty(t, f.mon.LastObserved())
}

func TestPoll_EmptyClipboard(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, monitor.OutcomeReadFailed, f.mon.Poll())
	assert.Zero(t, f.store.Len())
}

func TestPoll_BlankValueIsIgnored(t *testing.T) {
	f := newFixture(t, 0)
	f.cb.Set("   \n")
	f.gate.Arm()

	assert.Equal(t, monitor.OutcomeBlank, f.mon.Poll())
	assert.Zero(t, f.store.Len())
	assert.True(t, f.gate.Armed())
	assert.Empty(t, f.mon.LastObserved())
}

func TestPoll_SuppressedChangeThenGenuineChange(t *testing.T) {
	f := newFixture(t, 0)
	f.gate.Arm()
	f.cb.Set("x")

	assert.Equal(t, monitor.OutcomeSuppressed, f.mon.Poll())
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.events.Events())
	assert.Equal(t, "x", f.mon.LastObserved())
	assert.False(t, f.gate.Armed())

	f.cb.Set("y")
	assert.Equal(t, monitor.OutcomeRecorded, f.mon.Poll())
	assert.Equal(t, []string{"y"}, f.contents())
	require.Len(t, f.events.Events(), 1)
	assert.Equal(t, "y", (<-f.events.Events()).Content)
}

func TestPoll_DuplicateOfFrontUpdatesLastObserved(t *testing.T) {
	f := newFixture(t, 0)
	f.store.Insert("same")
	f.cb.Set("same")

	assert.Equal(t, monitor.OutcomeDuplicate, f.mon.Poll())
	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, f.events.Events())
	assert.Equal(t, "same", f.mon.LastObserved())
	assert.Equal(t, monitor.OutcomeUnchanged, f.mon.Poll())
}

type panicReader struct{}

func (panicReader) ReadText() (string, error) { panic("backend exploded") }

func TestPoll_RecoversFromPanic(t *testing.T) {
	store := history.New()
	mon := monitor.New(panicReader{}, &suppress.Gate{}, monitor.NewRecorder(store, nil), 0)

	var out monitor.Outcome
	assert.NotPanics(t, func() { out = mon.Poll() })
	assert.Equal(t, monitor.OutcomePanicked, out)
	assert.Equal(t, "panicked", out.String())
}

func TestNew_DefaultInterval(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, monitor.DefaultInterval, f.mon.Interval())
}

func TestStart_IsIdempotent(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.True(t, f.mon.Start(ctx))
	assert.False(t, f.mon.Start(ctx))
	assert.True(t, f.mon.Running())

	f.cb.Set("one")
	require.Eventually(t, func() bool { return f.store.Len() == 1 }, time.Second, time.Millisecond)

	// A second loop would show up as a duplicate event.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.events.Events(), 1)
}

func TestStart_StopsOnCancel(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, f.mon.Start(ctx))
	cancel()

	select {
	case <-f.mon.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.False(t, f.mon.Running())
	assert.False(t, f.mon.Start(context.Background()), "a stopped monitor is not restarted")
}

func TestStart_ObservesSequenceOfCopies(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.True(t, f.mon.Start(ctx))

	for _, v := range []string{"a", "b", "a"} {
		f.cb.Set(v)
		want := v
		require.Eventually(t, func() bool {
			front, ok := f.store.Front()
			return ok && front.Content == want && f.mon.LastObserved() == want
		}, time.Second, time.Millisecond)
	}

	assert.Equal(t, []string{"a", "b", "a"}, f.contents())
}

// frontCheck records, at delivery time, whether each event's entry is
// already the newest one in the store.
type frontCheck struct {
	store *history.Store

	mu         sync.Mutex
	seen       int
	mismatches int
}

func (f *frontCheck) ID() string { return "check" }

func (f *frontCheck) Send(ev notify.Event) {
	front, ok := f.store.Front()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen++
	if !ok || front != ev.Entry {
		f.mismatches++
	}
}

func TestRecorder_EventsFollowInsertionOrder(t *testing.T) {
	store := history.New(history.WithCapacity(1000))
	broker := notify.NewBroker()
	events := notify.NewChan("order", 1000)
	broker.Register(events)
	check := &frontCheck{store: store}
	broker.Register(check)

	rec := monitor.NewRecorder(store, broker)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rec.Record(fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	entries := store.List()
	require.Len(t, entries, 200)
	require.Len(t, events.Events(), 200)
	// Events arrive oldest first; the store lists newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		ev := <-events.Events()
		assert.Equal(t, entries[i].Content, ev.Content)
	}
	assert.Equal(t, 200, check.seen)
	assert.Zero(t, check.mismatches, "entry must be visible before its event")
}

func TestRecorder_NilSink(t *testing.T) {
	store := history.New()
	rec := monitor.NewRecorder(store, nil)

	_, ok := rec.Record("x")
	assert.True(t, ok)
	_, ok = rec.Record("x")
	assert.False(t, ok)
}
