// Package history implements the bounded, newest-first clipboard history.
//
// The store only rejects a value that equals the current front entry; a value
// that reappears after a different one is recorded again.
package history

import (
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 100

// ContentTypeText is the only content type recorded today.
const ContentTypeText = "text"

// Entry is one recorded clipboard value. Entries are never modified after
// insertion.
type Entry struct {
	ID          uint64 `json:"id"`
	Content     string `json:"content"`
	Timestamp   uint64 `json:"timestamp"`
	ContentType string `json:"content_type"`
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the maximum number of entries. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is safe for concurrent use. Every operation holds the lock only for
// its own read or mutation.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry // index 0 is the newest
	capacity int
	now      func() time.Time
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.entries = make([]Entry, 0, s.capacity)
	return s
}

// Insert records content at the front. It is a no-op when content is blank
// or identical to the current front entry. The returned bool reports whether
// an entry was added.
func (s *Store) Insert(content string) (Entry, bool) {
	if strings.TrimSpace(content) == "" {
		return Entry{}, false
	}

	ts := uint64(s.now().Unix())

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 && s.entries[0].Content == content {
		return Entry{}, false
	}

	e := Entry{
		ID:          ts + uint64(len(s.entries)),
		Content:     content,
		Timestamp:   ts,
		ContentType: ContentTypeText,
	}

	if len(s.entries) < s.capacity {
		s.entries = append(s.entries, Entry{})
	}
	// Shift right by one; the tail falls off when already at capacity.
	copy(s.entries[1:], s.entries[:len(s.entries)-1])
	s.entries[0] = e
	return e, true
}

// List returns a snapshot of the history, newest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Front returns the most recent entry.
func (s *Store) Front() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

// Len returns the current number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Capacity returns the configured maximum length.
func (s *Store) Capacity() int { return s.capacity }

// Clear removes every entry. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.entries)
	s.entries = s.entries[:0]
	s.mu.Unlock()
}
