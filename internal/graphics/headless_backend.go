package graphics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessSurface implements the Surface interface with an in-memory back
// buffer. Posted frames are copied to a front buffer and can optionally be
// dumped to disk as PPM images.
type HeadlessSurface struct {
	mu sync.Mutex

	title  string
	width  int
	height int

	back   *RGBACanvas
	front  *image.RGBA
	texts  []TextItem
	locked bool
	closed bool

	failLocks  int
	lockCount  int
	frameCount int

	dumpFrames map[int]bool
	dumpDir    string
	dumpErr    error
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateSurface creates an in-memory surface
func (b *HeadlessBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	surface := NewHeadlessSurface(title, width, height)
	surface.dumpDir = b.config.DumpDir
	for _, frame := range b.config.DumpFrames {
		surface.dumpFrames[frame] = true
	}

	return surface, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// NewHeadlessSurface creates a standalone headless surface
func NewHeadlessSurface(title string, width, height int) *HeadlessSurface {
	bounds := image.Rect(0, 0, width, height)
	return &HeadlessSurface{
		title:      title,
		width:      width,
		height:     height,
		back:       NewRGBACanvas(image.NewRGBA(bounds)),
		front:      image.NewRGBA(bounds),
		dumpFrames: make(map[int]bool),
	}
}

// Lock hands out the back buffer
func (s *HeadlessSurface) Lock(ctx context.Context) (Canvas, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("headless surface closed: %w", ErrSurfaceUnavailable)
	}
	if s.failLocks > 0 {
		s.failLocks--
		return nil, fmt.Errorf("headless surface not ready: %w", ErrSurfaceUnavailable)
	}
	if s.locked {
		return nil, fmt.Errorf("headless surface already locked: %w", ErrSurfaceUnavailable)
	}

	s.locked = true
	s.lockCount++
	s.back.resetTexts()

	return s.back, nil
}

// UnlockAndPost presents the back buffer
func (s *HeadlessSurface) UnlockAndPost(canvas Canvas) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.locked || canvas != Canvas(s.back) {
		return
	}

	s.locked = false
	copy(s.front.Pix, s.back.img.Pix)
	s.texts = append(s.texts[:0], s.back.texts...)
	s.frameCount++

	// Save specific frames for debugging
	if s.dumpFrames[s.frameCount] {
		filename := filepath.Join(s.dumpDir, fmt.Sprintf("frame_%03d.ppm", s.frameCount))
		if err := saveFrameAsPPM(s.front, filename); err != nil {
			s.dumpErr = errors.Join(s.dumpErr, err)
		}
	}
}

// saveFrameAsPPM saves an image as a plain PPM file
func saveFrameAsPPM(img *image.RGBA, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	b := img.Bounds()

	// PPM header
	fmt.Fprintf(w, "P3\n%d %d\n255\n", b.Dx(), b.Dy())

	// RGB data
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			fmt.Fprintf(w, "%d %d %d ", img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
		fmt.Fprintf(w, "\n")
	}

	return w.Flush()
}

// GetSize returns surface dimensions
func (s *HeadlessSurface) GetSize() (width, height int) {
	return s.width, s.height
}

// SetTitle sets the surface title (for logging purposes)
func (s *HeadlessSurface) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// ShouldClose returns true once the surface has been cleaned up
func (s *HeadlessSurface) ShouldClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Cleanup tears the surface down
func (s *HeadlessSurface) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.dumpErr
}

// FailNextLocks makes the next n Lock calls fail with ErrSurfaceUnavailable
func (s *HeadlessSurface) FailNextLocks(n int) {
	s.mu.Lock()
	s.failLocks = n
	s.mu.Unlock()
}

// GetFrameCount returns the number of posted frames
func (s *HeadlessSurface) GetFrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// GetLockCount returns the number of successful Lock calls
func (s *HeadlessSurface) GetLockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockCount
}

// IsLocked reports whether a canvas is currently handed out
func (s *HeadlessSurface) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Frame returns a copy of the last posted frame
func (s *HeadlessSurface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := image.NewRGBA(s.front.Bounds())
	copy(out.Pix, s.front.Pix)
	return out
}

// Texts returns the text lines of the last posted frame
func (s *HeadlessSurface) Texts() []TextItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TextItem, len(s.texts))
	copy(out, s.texts)
	return out
}
