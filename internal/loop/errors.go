package loop

import (
	"errors"
	"fmt"

	"grow/internal/graphics"
)

var (
	// ErrTransientUnavailable marks a render target that could not be
	// acquired or was torn down mid-render. The cycle continues unrendered.
	ErrTransientUnavailable = graphics.ErrSurfaceUnavailable

	// ErrInterruptedWait is logged when a pacing sleep is woken early by
	// Interrupt. The sleep resumes with the remaining budget.
	ErrInterruptedWait = errors.New("pacing sleep interrupted")

	// ErrAlreadyRunning is returned by Start unless the loop is stopped.
	ErrAlreadyRunning = errors.New("loop already running")
)

// FatalCollaboratorError reports a simulation or renderer failure that ended
// the loop.
type FatalCollaboratorError struct {
	Op  string // "advance", "catch-up" or "render"
	Err error
}

func (e *FatalCollaboratorError) Error() string {
	return fmt.Sprintf("loop %s failed: %v", e.Op, e.Err)
}

func (e *FatalCollaboratorError) Unwrap() error {
	return e.Err
}
