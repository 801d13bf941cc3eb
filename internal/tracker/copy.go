package tracker

import (
	"errors"
	"log/slog"
	"strings"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/suppress"
)

// TextWriter is the clipboard write primitive the controller consumes.
type TextWriter interface {
	WriteText(text string) error
}

// Controller writes to the clipboard on behalf of copymate, arming the gate
// first so the monitor does not record our own write as a user copy.
type Controller struct {
	gate            *suppress.Gate
	out             TextWriter
	disarmOnFailure bool
}

// NewController returns a Controller. With disarmOnFailure set, a failed write
// drops the pending suppression instead of letting it swallow the next
// unrelated change.
func NewController(gate *suppress.Gate, out TextWriter, disarmOnFailure bool) *Controller {
	return &Controller{gate: gate, out: out, disarmOnFailure: disarmOnFailure}
}

// Copy arms the gate and then writes content. The order matters: arming
// after the write leaves a window where the monitor can record the write.
func (c *Controller) Copy(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	c.gate.Arm()
	if err := c.out.WriteText(content); err != nil {
		if c.disarmOnFailure {
			c.gate.Disarm()
		}
		slog.Warn("clipboard write failed", "err", err, "still_armed", c.gate.Armed())
		var we *clip.WriteError
		if !errors.As(err, &we) {
			err = &clip.WriteError{Backend: "unknown", Err: err}
		}
		return err
	}
	return nil
}
