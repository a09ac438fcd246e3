package graphics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
	out         io.Writer
}

// TerminalSurface renders posted frames as coarse block characters. It keeps
// its buffers in a HeadlessSurface and only adds presentation.
type TerminalSurface struct {
	*HeadlessSurface

	outMu sync.Mutex
	out   io.Writer
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{out: os.Stdout}
}

// NewTerminalBackendWithWriter creates a terminal backend printing to w
func NewTerminalBackendWithWriter(w io.Writer) Backend {
	return &TerminalBackend{out: w}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateSurface creates a terminal surface
func (b *TerminalBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	surface := &TerminalSurface{
		HeadlessSurface: NewHeadlessSurface(title, width, height),
		out:             b.out,
	}
	surface.SetTitle(title)

	return surface, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the terminal title
func (s *TerminalSurface) SetTitle(title string) {
	s.HeadlessSurface.SetTitle(title)

	s.outMu.Lock()
	fmt.Fprintf(s.out, "\033]0;%s\007", title)
	s.outMu.Unlock()
}

// UnlockAndPost presents the frame as ASCII art
func (s *TerminalSurface) UnlockAndPost(canvas Canvas) {
	before := s.GetFrameCount()
	s.HeadlessSurface.UnlockAndPost(canvas)
	if s.GetFrameCount() == before {
		return
	}

	frame := s.Frame()
	texts := s.Texts()

	s.outMu.Lock()
	defer s.outMu.Unlock()

	w := bufio.NewWriter(s.out)

	// Clear screen
	fmt.Fprint(w, "\033[2J\033[H")

	// Sample every 4th column and 8th row
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 8 {
		for x := b.Min.X; x < b.Max.X; x += 4 {
			i := frame.PixOffset(x, y)
			if frame.Pix[i] == 0 && frame.Pix[i+1] == 0 && frame.Pix[i+2] == 0 {
				fmt.Fprint(w, " ")
			} else {
				fmt.Fprint(w, "█")
			}
		}
		fmt.Fprintln(w)
	}

	for _, t := range texts {
		fmt.Fprintln(w, t.Text)
	}

	_ = w.Flush()
}
