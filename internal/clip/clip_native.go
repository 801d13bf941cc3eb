//go:build darwin || linux || windows

package clip

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

type nativeBackend struct{}

// newNative initialises golang.design/x/clipboard. Init is deferred to here
// rather than init() so CLI sub-commands that never touch the clipboard don't
// fail on headless systems.
func newNative() (Backend, error) {
	initOnce.Do(func() { initErr = clipboard.Init() })
	if initErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, initErr)
	}
	return nativeBackend{}, nil
}

func (nativeBackend) Name() string { return "native" }

func (b nativeBackend) ReadText() (string, error) {
	text := clipboard.Read(clipboard.FmtText)
	if len(text) == 0 {
		return "", &ReadError{Backend: b.Name(), Err: ErrEmpty}
	}
	return string(text), nil
}

func (nativeBackend) WriteText(text string) error {
	// The returned channel fires when another program takes ownership; we
	// don't track ownership.
	_ = clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (nativeBackend) Close() {}
