package notify_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copymate/internal/notify"
)

func event(content string) notify.Event {
	return notify.Event{Name: notify.EventHistoryChanged, Content: content}
}

func TestBroker_PublishReachesAllListeners(t *testing.T) {
	b := notify.NewBroker()
	a := notify.NewChan("a", 4)
	c := notify.NewChan("c", 4)
	b.Register(a)
	b.Register(c)

	b.Publish(event("hello"))

	for _, l := range []*notify.Chan{a, c} {
		select {
		case ev := <-l.Events():
			assert.Equal(t, "hello", ev.Content)
			assert.Equal(t, notify.EventHistoryChanged, ev.Name)
		default:
			t.Fatalf("listener %s received nothing", l.ID())
		}
	}
}

func TestBroker_UnregisterStopsDelivery(t *testing.T) {
	b := notify.NewBroker()
	l := notify.NewChan("l", 1)
	b.Register(l)
	b.Unregister(l)

	b.Publish(event("x"))

	assert.Empty(t, l.Events())
	assert.Zero(t, b.Len())
}

func TestBroker_RegisterReplacesSameID(t *testing.T) {
	b := notify.NewBroker()
	b.Register(notify.NewChan("same", 1))
	b.Register(notify.NewChan("same", 1))

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []string{"same"}, b.IDs())
}

func TestChan_FullBufferDrops(t *testing.T) {
	b := notify.NewBroker()
	l := notify.NewChan("slow", 1)
	b.Register(l)

	b.Publish(event("first"))
	b.Publish(event("second"))

	require.Len(t, l.Events(), 1)
	assert.Equal(t, "first", (<-l.Events()).Content)
	assert.Equal(t, int64(1), l.Dropped())
}

type panicky struct{}

func (panicky) ID() string { return "bad" }

func (panicky) Send(notify.Event) { panic("boom") }

func TestBroker_PanickingListenerDoesNotStopOthers(t *testing.T) {
	b := notify.NewBroker()
	b.Register(panicky{})
	good := notify.NewChan("good", 1)
	b.Register(good)

	assert.NotPanics(t, func() { b.Publish(event("x")) })
	assert.Len(t, good.Events(), 1)
}

func TestFunc_ReceivesEventsInOrder(t *testing.T) {
	got := make(chan string, 4)
	f := notify.NewFunc("f", 4, func(ev notify.Event) { got <- ev.Content })
	defer f.Close()

	b := notify.NewBroker()
	b.Register(f)
	b.Publish(event("one"))
	b.Publish(event("two"))

	for _, want := range []string{"one", "two"} {
		select {
		case c := <-got:
			assert.Equal(t, want, c)
		case <-time.After(time.Second):
			t.Fatalf("callback not run for %q", want)
		}
	}
}

func TestFunc_SlowCallbackDoesNotBlockPublish(t *testing.T) {
	release := make(chan struct{})
	f := notify.NewFunc("slow", 1, func(notify.Event) { <-release })
	defer f.Close()
	defer close(release)

	b := notify.NewBroker()
	b.Register(f)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(event(fmt.Sprintf("e%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked behind a slow callback")
	}
	assert.Positive(t, f.Dropped())
}

func TestFunc_RecoversPanicAndContinues(t *testing.T) {
	got := make(chan string, 2)
	f := notify.NewFunc("f", 4, func(ev notify.Event) {
		if ev.Content == "bad" {
			panic("boom")
		}
		got <- ev.Content
	})
	defer f.Close()

	f.Send(event("bad"))
	f.Send(event("good"))

	select {
	case c := <-got:
		assert.Equal(t, "good", c)
	case <-time.After(time.Second):
		t.Fatal("callback goroutine died")
	}
}

func TestFunc_CloseIsIdempotent(t *testing.T) {
	f := notify.NewFunc("f", 1, func(notify.Event) {})
	f.Close()
	assert.NotPanics(t, f.Close)
}
