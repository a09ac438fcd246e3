package scene

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grow/internal/graphics"
	"grow/internal/input"
)

func TestDroidBouncesOffEdges(t *testing.T) {
	tests := []struct {
		name      string
		x, y      int
		speed     Speed
		wantX     int
		wantY     int
		wantSpeed Speed
	}{
		{"free movement", 50, 50, Speed{XV: 2, YV: 3}, 52, 53, Speed{XV: 2, YV: 3}},
		{"right edge", 88, 50, Speed{XV: 2}, 90, 50, Speed{XV: -2}},
		{"left edge", 11, 50, Speed{XV: -2}, 10, 50, Speed{XV: 2}},
		{"bottom edge", 50, 87, Speed{YV: 2}, 50, 88, Speed{YV: -2}},
		{"top left corner", 11, 13, Speed{XV: -2, YV: -2}, 10, 12, Speed{XV: 2, YV: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDroid(tt.x, tt.y, tt.speed)
			d.Update(100, 100)

			assert.Equal(t, tt.wantX, d.X)
			assert.Equal(t, tt.wantY, d.Y)
			assert.Equal(t, tt.wantSpeed, d.Speed)
		})
	}
}

func TestDroidStaysInside(t *testing.T) {
	d := NewDroid(50, 50, Speed{XV: 7, YV: -5})

	for i := 0; i < 1000; i++ {
		d.Update(120, 90)

		r := d.Bounds()
		require.GreaterOrEqual(t, r.Min.X, 0, "step %d", i)
		require.GreaterOrEqual(t, r.Min.Y, 0, "step %d", i)
		require.LessOrEqual(t, r.Max.X, 120, "step %d", i)
		require.LessOrEqual(t, r.Max.Y, 90, "step %d", i)
	}
}

func TestSceneRendersDroidAndLabel(t *testing.T) {
	surface := graphics.NewHeadlessSurface("test", 160, 120)
	s := New(160, 120, nil)

	canvas, err := surface.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.RenderFrame(canvas))
	surface.UnlockAndPost(canvas)

	assert.Empty(t, surface.Texts(), "no label before the first report")

	frame := surface.Frame()
	assert.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(0, 0))
	// body pixel of the droid centered at (50, 50)
	assert.Equal(t, color.RGBA{R: 0xa4, G: 0xc6, B: 0x39, A: 0xff}, frame.RGBAAt(50, 50))

	s.PublishStats("FPS: 49.5")
	assert.Equal(t, "FPS: 49.5", s.Label())

	canvas, err = surface.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.RenderFrame(canvas))
	surface.UnlockAndPost(canvas)

	texts := surface.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "FPS: 49.5", texts[0].Text)
	assert.Equal(t, 160-9*charWidth-4, texts[0].X)
}

func TestSceneAdvance(t *testing.T) {
	s := New(160, 120, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Advance())
	}

	assert.Equal(t, uint64(10), s.Steps())
	assert.Equal(t, 70, s.Droid().X)
	assert.Equal(t, 70, s.Droid().Y)
}

func TestSceneDragsDroid(t *testing.T) {
	q := input.NewQueue(0)
	s := New(160, 120, nil)
	s.AttachInput(q)

	q.Update(true, 50, 50) // press on the droid
	require.NoError(t, s.Advance())
	assert.True(t, s.Droid().Touched)
	assert.Equal(t, 50, s.Droid().X, "a touched droid does not move by itself")

	q.Update(true, 80, 40)
	require.NoError(t, s.Advance())
	assert.Equal(t, 80, s.Droid().X)
	assert.Equal(t, 40, s.Droid().Y)

	q.Update(false, 80, 40)
	require.NoError(t, s.Advance())
	assert.False(t, s.Droid().Touched)
	assert.Equal(t, 82, s.Droid().X)
}

func TestScenePressOffDroidDoesNotGrab(t *testing.T) {
	q := input.NewQueue(0)
	s := New(160, 120, nil)
	s.AttachInput(q)

	q.Update(true, 120, 20)
	require.NoError(t, s.Advance())

	assert.False(t, s.Droid().Touched)
	assert.Equal(t, 52, s.Droid().X)
}

func TestSceneExitZone(t *testing.T) {
	q := input.NewQueue(0)
	s := New(160, 120, nil)
	s.AttachInput(q)

	exits := 0
	s.OnExitRequest(func() { exits++ })

	q.Update(true, 10, 119)
	require.NoError(t, s.Advance())

	assert.Equal(t, 1, exits)
	assert.False(t, s.Droid().Touched)
}
