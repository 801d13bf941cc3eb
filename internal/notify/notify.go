// Package notify delivers history-changed events to registered listeners.
// It knows nothing about the clipboard: the recorder publishes, listeners
// (API watch streams, the daemon's log line) receive.
package notify

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"go.klb.dev/copymate/internal/history"
)

// EventHistoryChanged is the name carried by every event published today.
const EventHistoryChanged = "history-changed"

// Event is delivered to listeners after an entry has been inserted.
type Event struct {
	Name    string        `json:"name"`
	Content string        `json:"content"`
	Entry   history.Entry `json:"entry"`
}

// Listener is anything that can receive events from the broker.
type Listener interface {
	ID() string
	// Send delivers an event to the listener. It is called while the
	// publisher holds its lock, so it must not block or publish.
	Send(Event)
}

// Broker fans events out to all registered listeners. Delivery is
// best-effort: a listener that cannot keep up loses events, which is logged
// and never retried.
type Broker struct {
	mu        sync.RWMutex
	listeners map[string]Listener
}

// NewBroker returns a Broker with no listeners.
func NewBroker() *Broker {
	return &Broker{listeners: make(map[string]Listener)}
}

// Register adds l, replacing any listener with the same ID.
func (b *Broker) Register(l Listener) {
	b.mu.Lock()
	b.listeners[l.ID()] = l
	total := len(b.listeners)
	b.mu.Unlock()

	slog.Debug("listener registered", "listener", l.ID(), "total", total)
}

// Unregister removes l. Unknown listeners are ignored.
func (b *Broker) Unregister(l Listener) {
	b.mu.Lock()
	delete(b.listeners, l.ID())
	total := len(b.listeners)
	b.mu.Unlock()

	slog.Debug("listener unregistered", "listener", l.ID(), "total", total)
}

// Publish delivers ev to every listener registered at the time of the call.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	targets := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		targets = append(targets, l)
	}
	b.mu.RUnlock()

	for _, l := range targets {
		deliver(l, ev)
	}
}

// Len returns the number of registered listeners.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// IDs returns the registered listener IDs, sorted.
func (b *Broker) IDs() []string {
	b.mu.RLock()
	out := make([]string, 0, len(b.listeners))
	for id := range b.listeners {
		out = append(out, id)
	}
	b.mu.RUnlock()
	sort.Strings(out)
	return out
}

func deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event delivery failed", "listener", l.ID(), "event", ev.Name, "panic", r)
		}
	}()
	l.Send(ev)
}

// Chan is a Listener backed by a buffered channel.
type Chan struct {
	id      string
	ch      chan Event
	dropped atomic.Int64
}

// NewChan returns a channel listener. buffer below 1 is treated as 1.
func NewChan(id string, buffer int) *Chan {
	if buffer < 1 {
		buffer = 1
	}
	return &Chan{id: id, ch: make(chan Event, buffer)}
}

func (c *Chan) ID() string { return c.id }

// Send implements Listener. Events are dropped when the buffer is full.
func (c *Chan) Send(ev Event) {
	select {
	case c.ch <- ev:
	default:
		c.dropped.Add(1)
		slog.Warn("listener channel full, dropping", "listener", c.id, "event", ev.Name)
	}
}

// Events returns the receive side of the listener. It is never closed.
func (c *Chan) Events() <-chan Event { return c.ch }

// Dropped returns how many events were discarded because the buffer was full.
func (c *Chan) Dropped() int64 { return c.dropped.Load() }

// Func runs a callback for each event on its own goroutine, in publish
// order. Send only queues, so the callback may block or call back into the
// tracker without stalling the publisher. Events beyond the queue are dropped
// like for a Chan.
type Func struct {
	*Chan
	fn   func(Event)
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewFunc starts a Func listener. Call Close to stop its goroutine.
func NewFunc(id string, buffer int, fn func(Event)) *Func {
	f := &Func{
		Chan: NewChan(id, buffer),
		fn:   fn,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Func) run() {
	defer close(f.done)
	for {
		select {
		case <-f.stop:
			return
		case ev := <-f.ch:
			f.call(ev)
		}
	}
}

func (f *Func) call(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event listener failed", "listener", f.id, "event", ev.Name, "panic", r)
		}
	}()
	f.fn(ev)
}

// Close stops the goroutine after the callback in progress returns. Queued
// events are discarded. Close is idempotent.
func (f *Func) Close() {
	f.once.Do(func() { close(f.stop) })
	<-f.done
}
