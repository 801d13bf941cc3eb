package clip

import (
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
)

// execBackend shells out to the platform clipboard utilities.
type execBackend struct{}

func newExec() (Backend, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("%w: no clipboard utility found for %s", ErrUnsupported, runtime.GOOS)
	}
	return execBackend{}, nil
}

func (execBackend) Name() string { return "exec" }

func (b execBackend) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", &ReadError{Backend: b.Name(), Err: err}
	}
	if text == "" {
		return "", &ReadError{Backend: b.Name(), Err: ErrEmpty}
	}
	return text, nil
}

func (b execBackend) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return &WriteError{Backend: b.Name(), Err: err}
	}
	return nil
}

func (execBackend) Close() {}
