//go:build !headless
// +build !headless

package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEbitengineBackendInitialization(t *testing.T) {
	backend := NewEbitengineBackend()

	assert.Equal(t, "Ebitengine", backend.GetName())

	_, err := backend.CreateSurface("grow", 320, 240)
	assert.Error(t, err, "surface creation must fail before Initialize")

	require.NoError(t, backend.Initialize(Config{WindowTitle: "grow"}))
	assert.False(t, backend.IsHeadless())
	assert.Error(t, backend.Initialize(Config{}), "double initialization must fail")

	assert.NoError(t, backend.Cleanup())
}

func TestEbitengineBackendRejectsHeadlessConfig(t *testing.T) {
	backend := NewEbitengineBackend()
	require.NoError(t, backend.Initialize(Config{Headless: true}))

	assert.True(t, backend.IsHeadless())

	_, err := backend.CreateSurface("grow", 320, 240)
	assert.Error(t, err)
}

func TestEbitengineBackendRejectsInvalidSize(t *testing.T) {
	backend := NewEbitengineBackend()
	require.NoError(t, backend.Initialize(Config{}))

	_, err := backend.CreateSurface("grow", 0, 240)
	assert.Error(t, err)
}

func TestEbitengineBackendIsMainThreadRunner(t *testing.T) {
	backend := NewEbitengineBackend()
	require.NoError(t, backend.Initialize(Config{}))

	var surface Surface = &EbitengineSurface{}
	_, ok := AsMainThreadRunner(surface)
	assert.True(t, ok)

	_, ok = AsMainThreadRunner(NewHeadlessSurface("grow", 4, 4))
	assert.False(t, ok)
}

func TestEbitengineSurfaceSetTitle(t *testing.T) {
	surface := &EbitengineSurface{title: "grow"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = surface.Title()
		}
	}()

	surface.SetTitle("grow - paused")
	<-done

	assert.Equal(t, "grow - paused", surface.Title())
}

func TestEbitengineGameMapsPointerToSurface(t *testing.T) {
	tests := []struct {
		name             string
		windowW, windowH int
		inX, inY         int
		outX, outY       int
	}{
		{"exact double", 320, 240, 100, 50, 50, 25},
		{"letterboxed wide window", 400, 240, 140, 120, 50, 60},
		{"same size", 160, 120, 10, 20, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := &EbitengineGame{
				surface:      &EbitengineSurface{width: 160, height: 120},
				windowWidth:  tt.windowW,
				windowHeight: tt.windowH,
			}

			x, y := game.toSurface(tt.inX, tt.inY)
			assert.Equal(t, tt.outX, x)
			assert.Equal(t, tt.outY, y)
		})
	}
}
