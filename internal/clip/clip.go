// Package clip provides text access to the system clipboard. Three backends
// are available:
//
//	native — golang.design/x/clipboard (cgo on macOS and Linux, Win32 on Windows)
//	exec   — github.com/atotto/clipboard (pbcopy, xclip, xsel, wl-copy)
//	memory — in-process clipboard for headless hosts and tests
//
// Open("auto") tries them in that order.
package clip

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Backend is the interface all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current clipboard text. Failures, including an
	// empty or non-text clipboard, are returned as *ReadError.
	ReadText() (string, error)

	// WriteText replaces the clipboard contents. Failures are returned as
	// *WriteError.
	WriteText(text string) error

	// Close releases any resources held by the backend.
	Close()
}

// Backend kinds accepted by Open.
const (
	KindAuto   = "auto"
	KindNative = "native"
	KindExec   = "exec"
	KindMemory = "memory"
)

// ErrEmpty is wrapped in a ReadError when the clipboard holds no text.
var ErrEmpty = errors.New("clipboard is empty")

// ErrUnsupported is returned by Open when a backend cannot run on this host.
var ErrUnsupported = errors.New("clipboard backend unsupported on this host")

// ReadError reports a failed clipboard read.
type ReadError struct {
	Backend string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("clipboard read (%s): %v", e.Backend, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed clipboard write.
type WriteError struct {
	Backend string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("clipboard write (%s): %v", e.Backend, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Open returns the backend named by kind. An empty kind means KindAuto.
func Open(kind string) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", KindAuto:
		return openAuto(), nil
	case KindNative:
		return newNative()
	case KindExec:
		return newExec()
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q (want auto|native|exec|memory)", kind)
	}
}

func openAuto() Backend {
	b, err := newNative()
	if err == nil {
		return b
	}
	slog.Debug("native clipboard unavailable", "err", err)

	b, err = newExec()
	if err == nil {
		return b
	}
	slog.Warn("clipboard unavailable, running headless", "err", err)
	return NewMemory()
}
