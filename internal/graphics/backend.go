// Package graphics provides an abstraction layer for different rendering backends
package graphics

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"grow/internal/input"
)

// ErrSurfaceUnavailable is returned when a surface cannot hand out a render
// target right now, e.g. while it is being created or torn down. Callers are
// expected to retry on the next cycle.
var ErrSurfaceUnavailable = errors.New("surface unavailable")

// Backend represents a graphics rendering backend (Ebitengine, headless, terminal)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateSurface creates the surface frames are rendered into
	CreateSurface(title string, width, height int) (Surface, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running without a display
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Surface is a presentable display surface. A render target is obtained with
// Lock and handed back with UnlockAndPost, which also presents it.
type Surface interface {
	// Lock acquires the back buffer. It fails with ErrSurfaceUnavailable when
	// the surface is not ready, and returns promptly if ctx is done.
	Lock(ctx context.Context) (Canvas, error)

	// UnlockAndPost releases a canvas obtained from Lock and presents it.
	// It must be called exactly once per successful Lock.
	UnlockAndPost(canvas Canvas)

	// GetSize returns surface dimensions
	GetSize() (width, height int)

	// SetTitle sets the surface title where the backend has one
	SetTitle(title string)

	// ShouldClose returns true if the user asked to close the surface
	ShouldClose() bool

	// Cleanup tears the surface down; later Lock calls fail
	Cleanup() error
}

// Canvas is a locked render target for exactly one frame.
type Canvas interface {
	// Size returns the canvas dimensions in pixels
	Size() (width, height int)

	// Fill paints the whole canvas
	Fill(c color.Color)

	// DrawImage draws img with its top-left corner at (x, y)
	DrawImage(img image.Image, x, y int)

	// DrawText draws a single line of debug text at (x, y)
	DrawText(text string, x, y int)
}

// MainThreadRunner is implemented by surfaces whose event loop has to own
// the calling goroutine (windowing toolkits bound to the main thread).
type MainThreadRunner interface {
	// Run blocks until the surface is closed or ctx is done
	Run(ctx context.Context) error
}

// InputSource is implemented by surfaces that can report pointer input
type InputSource interface {
	// AttachInput makes the surface feed pointer state into q
	AttachInput(q *input.Queue)
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	// Rendering configuration
	Filter string // "nearest", "linear"

	// Backend-specific options
	Headless   bool
	DumpFrames []int  // headless: frame numbers written as PPM
	DumpDir    string // headless: directory for frame dumps
	Debug      bool
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// ParseBackendType validates a backend name from configuration
func ParseBackendType(name string) (BackendType, error) {
	switch BackendType(name) {
	case BackendEbitengine, BackendHeadless, BackendTerminal:
		return BackendType(name), nil
	default:
		return "", fmt.Errorf("unknown graphics backend %q", name)
	}
}

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported graphics backend %q", backendType)
	}
}

// AsMainThreadRunner reports whether a surface needs to own the main goroutine
func AsMainThreadRunner(surface Surface) (MainThreadRunner, bool) {
	runner, ok := surface.(MainThreadRunner)
	return runner, ok
}
