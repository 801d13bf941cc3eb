package clip

import "sync"

// Memory is an in-process clipboard. It backs headless hosts, where nothing
// else can reach the clipboard, and tests, which use Set to simulate a copy
// made by another program.
type Memory struct {
	mu       sync.Mutex
	text     string
	readErr  error
	writeErr error
	writes   int
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Name() string { return "memory" }

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", &ReadError{Backend: m.Name(), Err: m.readErr}
	}
	if m.text == "" {
		return "", &ReadError{Backend: m.Name(), Err: ErrEmpty}
	}
	return m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return &WriteError{Backend: m.Name(), Err: m.writeErr}
	}
	m.text = text
	m.writes++
	return nil
}

func (m *Memory) Close() {}

// Set replaces the clipboard text as if another program had copied it.
func (m *Memory) Set(text string) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
}

// FailReads makes subsequent reads fail with err; nil restores reads.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// FailWrites makes subsequent writes fail with err; nil restores writes.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Writes returns the number of successful WriteText calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
