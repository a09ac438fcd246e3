package graphics

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeadlessSurface(t *testing.T, cfg Config) *HeadlessSurface {
	t.Helper()

	backend := NewHeadlessBackend()
	require.NoError(t, backend.Initialize(cfg))
	t.Cleanup(func() { _ = backend.Cleanup() })

	surface, err := backend.CreateSurface("test", 64, 32)
	require.NoError(t, err)

	headless, ok := surface.(*HeadlessSurface)
	require.True(t, ok, "expected *HeadlessSurface, got %T", surface)
	return headless
}

func TestHeadlessBackendLifecycle(t *testing.T) {
	backend := NewHeadlessBackend()

	_, err := backend.CreateSurface("early", 10, 10)
	assert.Error(t, err, "surface creation must fail before Initialize")

	require.NoError(t, backend.Initialize(Config{Headless: true}))
	assert.Error(t, backend.Initialize(Config{}), "double initialization must fail")

	assert.True(t, backend.IsHeadless())
	assert.Equal(t, "Headless", backend.GetName())
	assert.NoError(t, backend.Cleanup())
}

func TestHeadlessSurfaceLockAndPost(t *testing.T) {
	s := newTestHeadlessSurface(t, Config{})
	ctx := context.Background()

	canvas, err := s.Lock(ctx)
	require.NoError(t, err)
	require.True(t, s.IsLocked())

	w, h := canvas.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	canvas.Fill(color.RGBA{R: 255, A: 255})
	canvas.DrawText("FPS: 50", 1, 2)

	// a second lock while the first is held is a transient failure
	_, err = s.Lock(ctx)
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)

	s.UnlockAndPost(canvas)
	assert.False(t, s.IsLocked())
	assert.Equal(t, 1, s.GetFrameCount())

	frame := s.Frame()
	assert.Equal(t, color.RGBA{R: 255, A: 255}, frame.RGBAAt(10, 10))
	assert.Equal(t, []TextItem{{Text: "FPS: 50", X: 1, Y: 2}}, s.Texts())

	// posting twice is ignored
	s.UnlockAndPost(canvas)
	assert.Equal(t, 1, s.GetFrameCount())
}

func TestHeadlessSurfaceFailNextLocks(t *testing.T) {
	s := newTestHeadlessSurface(t, Config{})
	s.FailNextLocks(2)

	for i := 0; i < 2; i++ {
		_, err := s.Lock(context.Background())
		assert.ErrorIs(t, err, ErrSurfaceUnavailable)
	}

	canvas, err := s.Lock(context.Background())
	require.NoError(t, err)
	s.UnlockAndPost(canvas)
	assert.Equal(t, 1, s.GetLockCount())
}

func TestHeadlessSurfaceLockHonorsContext(t *testing.T) {
	s := newTestHeadlessSurface(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Lock(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, s.IsLocked())
}

func TestHeadlessSurfaceCleanup(t *testing.T) {
	s := newTestHeadlessSurface(t, Config{})

	require.NoError(t, s.Cleanup())
	assert.True(t, s.ShouldClose())

	_, err := s.Lock(context.Background())
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)
}

func TestHeadlessSurfaceDumpsRequestedFrames(t *testing.T) {
	dir := t.TempDir()
	s := newTestHeadlessSurface(t, Config{DumpFrames: []int{2}, DumpDir: dir})

	for i := 0; i < 3; i++ {
		canvas, err := s.Lock(context.Background())
		require.NoError(t, err)
		canvas.Fill(color.RGBA{G: 128, A: 255})
		s.UnlockAndPost(canvas)
	}

	_, err := os.Stat(filepath.Join(dir, "frame_001.ppm"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "frame_002.ppm"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "P3\n64 32\n255\n0 128 0 "))

	assert.NoError(t, s.Cleanup())
}

func TestRGBACanvasDrawImage(t *testing.T) {
	canvas := NewRGBACanvas(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	canvas.Fill(color.Black)

	sprite := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range sprite.Pix {
		sprite.Pix[i] = 255
	}

	canvas.DrawImage(sprite, 3, 4)

	img := canvas.Image()
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(3, 4))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(4, 5))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(5, 5))
}

func TestCreateBackend(t *testing.T) {
	for _, name := range []string{"headless", "terminal", "ebitengine"} {
		bt, err := ParseBackendType(name)
		require.NoError(t, err)

		backend, err := CreateBackend(bt)
		require.NoError(t, err)
		assert.NotNil(t, backend)
	}

	_, err := ParseBackendType("sdl2")
	assert.Error(t, err)

	_, err = CreateBackend(BackendType("sdl2"))
	assert.Error(t, err)
}
