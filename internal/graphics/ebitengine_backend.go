//go:build !headless
// +build !headless

package graphics

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"grow/internal/input"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
}

// EbitengineSurface implements the Surface interface for Ebitengine.
//
// The frame loop draws into the back image from its own goroutine while
// Ebitengine's Draw presents the front image. Posting swaps the two under mu.
type EbitengineSurface struct {
	backend *EbitengineBackend
	title   string
	width   int
	height  int
	game    *EbitengineGame

	mu     sync.Mutex
	back   *ebiten.Image
	front  *ebiten.Image
	canvas *ebitenCanvas
	ready  bool // set once Ebitengine has laid out the window
	locked bool
	closed bool
	input  *input.Queue

	ctx context.Context
}

// EbitengineGame implements ebiten.Game for a surface
type EbitengineGame struct {
	surface      *EbitengineSurface
	windowWidth  int
	windowHeight int
	filter       ebiten.Filter
}

// ebitenCanvas adapts an ebiten.Image to the Canvas interface
type ebitenCanvas struct {
	img    *ebiten.Image
	images map[*image.RGBA]*ebiten.Image
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateSurface creates an Ebitengine window surface
func (b *EbitengineBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	surface := &EbitengineSurface{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		back:    ebiten.NewImage(width, height),
		front:   ebiten.NewImage(width, height),
		ctx:     context.Background(),
	}
	surface.canvas = &ebitenCanvas{images: make(map[*image.RGBA]*ebiten.Image)}

	game := &EbitengineGame{
		surface:      surface,
		windowWidth:  width,
		windowHeight: height,
		filter:       ebiten.FilterNearest,
	}
	if b.config.Filter == "linear" {
		game.filter = ebiten.FilterLinear
	}
	surface.game = game

	// Configure Ebitengine
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return surface, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineSurface implementation

// Lock hands out the back image once the window exists
func (s *EbitengineSurface) Lock(ctx context.Context) (Canvas, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return nil, fmt.Errorf("window closed: %w", ErrSurfaceUnavailable)
	case !s.ready:
		return nil, fmt.Errorf("window not laid out yet: %w", ErrSurfaceUnavailable)
	case s.locked:
		return nil, fmt.Errorf("surface already locked: %w", ErrSurfaceUnavailable)
	}

	s.locked = true
	s.canvas.img = s.back

	return s.canvas, nil
}

// UnlockAndPost makes the back image the one Draw presents
func (s *EbitengineSurface) UnlockAndPost(canvas Canvas) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.locked || canvas != Canvas(s.canvas) {
		return
	}

	s.locked = false
	s.back, s.front = s.front, s.back
	s.canvas.img = nil
}

// GetSize returns surface dimensions
func (s *EbitengineSurface) GetSize() (width, height int) {
	return s.width, s.height
}

// SetTitle sets the window title
func (s *EbitengineSurface) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()

	ebiten.SetWindowTitle(title)
}

// Title returns the current window title
func (s *EbitengineSurface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// ShouldClose returns true once the window was closed
func (s *EbitengineSurface) ShouldClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Cleanup releases window resources
func (s *EbitengineSurface) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// AttachInput feeds left mouse button state into q on every tick
func (s *EbitengineSurface) AttachInput(q *input.Queue) {
	s.mu.Lock()
	s.input = q
	s.mu.Unlock()
}

// Run starts the Ebitengine game loop on the calling goroutine
func (s *EbitengineSurface) Run(ctx context.Context) error {
	if s.game == nil {
		return fmt.Errorf("game not initialized")
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	err := ebiten.RunGame(s.game)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return err
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	s := g.surface

	s.mu.Lock()
	ctx, closed, q := s.ctx, s.closed, s.input
	s.mu.Unlock()

	if closed || ctx.Err() != nil {
		return ebiten.Termination
	}

	// Check for quit events
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		return ebiten.Termination
	}

	if q != nil {
		x, y := g.toSurface(ebiten.CursorPosition())
		q.Update(ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft), x, y)
	}

	return nil
}

// fit returns the scale and offset Draw uses to fit the surface in the window
func (g *EbitengineGame) fit() (scale, offsetX, offsetY float64) {
	s := g.surface

	scaleX := float64(g.windowWidth) / float64(s.width)
	scaleY := float64(g.windowHeight) / float64(s.height)

	scale = scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	// Center the image
	offsetX = (float64(g.windowWidth) - float64(s.width)*scale) / 2
	offsetY = (float64(g.windowHeight) - float64(s.height)*scale) / 2

	return scale, offsetX, offsetY
}

// toSurface maps window coordinates back to surface pixels
func (g *EbitengineGame) toSurface(x, y int) (int, int) {
	scale, offsetX, offsetY := g.fit()
	return int((float64(x) - offsetX) / scale), int((float64(y) - offsetY) / scale)
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	// Clear the screen first
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	s := g.surface
	s.mu.Lock()
	defer s.mu.Unlock()

	// Scale to fit the window while maintaining aspect ratio
	scale, offsetX, offsetY := g.fit()

	op := &ebiten.DrawImageOptions{Filter: g.filter}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)

	screen.DrawImage(s.front, op)
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight

	s := g.surface
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	// Return the screen size - scaling happens in Draw()
	return outsideWidth, outsideHeight
}

// ebitenCanvas implementation

func (c *ebitenCanvas) Size() (width, height int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *ebitenCanvas) Fill(col color.Color) {
	c.img.Fill(col)
}

func (c *ebitenCanvas) DrawImage(img image.Image, x, y int) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(x), float64(y))

	switch src := img.(type) {
	case *ebiten.Image:
		c.img.DrawImage(src, op)
	case *image.RGBA:
		// bitmaps are uploaded once and reused across frames
		cached, ok := c.images[src]
		if !ok {
			cached = ebiten.NewImageFromImage(src)
			c.images[src] = cached
		}
		c.img.DrawImage(cached, op)
	default:
		tmp := ebiten.NewImageFromImage(src)
		c.img.DrawImage(tmp, op)
		tmp.Deallocate()
	}
}

func (c *ebitenCanvas) DrawText(text string, x, y int) {
	ebitenutil.DebugPrintAt(c.img, text, x, y)
}
