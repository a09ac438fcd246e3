//go:build headless
// +build headless

package graphics

import (
	"context"
	"fmt"

	"grow/internal/input"
)

// EbitengineBackend stub for headless builds
type EbitengineBackend struct{}

// EbitengineSurface stub for headless builds
type EbitengineSurface struct{}

// NewEbitengineBackend creates a stub backend for headless builds
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Stub implementations for EbitengineBackend
func (b *EbitengineBackend) Initialize(config Config) error {
	return fmt.Errorf("Ebitengine backend not available in headless build")
}

func (b *EbitengineBackend) CreateSurface(title string, width, height int) (Surface, error) {
	return nil, fmt.Errorf("Ebitengine backend not available in headless build")
}

func (b *EbitengineBackend) Cleanup() error {
	return nil
}

func (b *EbitengineBackend) IsHeadless() bool {
	return true
}

func (b *EbitengineBackend) GetName() string {
	return "Ebitengine-Stub"
}

// Stub implementations for EbitengineSurface
func (s *EbitengineSurface) Lock(ctx context.Context) (Canvas, error) {
	return nil, fmt.Errorf("Ebitengine backend not available in headless build: %w", ErrSurfaceUnavailable)
}
func (s *EbitengineSurface) UnlockAndPost(canvas Canvas) {}
func (s *EbitengineSurface) GetSize() (width, height int) { return 0, 0 }
func (s *EbitengineSurface) SetTitle(title string) {}
func (s *EbitengineSurface) Title() string { return "" }
func (s *EbitengineSurface) ShouldClose() bool { return true }
func (s *EbitengineSurface) Cleanup() error { return nil }
func (s *EbitengineSurface) AttachInput(q *input.Queue) {}
func (s *EbitengineSurface) Run(ctx context.Context) error {
	return fmt.Errorf("Ebitengine backend not available in headless build")
}
