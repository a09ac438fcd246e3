package scene

import (
	"image"
	"image/color"
)

const (
	droidWidth  = 20
	droidHeight = 24
)

// Speed is a per-step velocity in pixels.
type Speed struct {
	XV, YV int
}

// Droid is the sprite moving around the scene. X and Y are its center.
// A touched droid follows the pointer and does not move on its own.
type Droid struct {
	X, Y    int
	Speed   Speed
	Touched bool
	bitmap  *image.RGBA
}

// NewDroid places a droid centered at (x, y).
func NewDroid(x, y int, speed Speed) *Droid {
	return &Droid{X: x, Y: y, Speed: speed, bitmap: droidBitmap()}
}

// Bitmap returns the sprite image.
func (d *Droid) Bitmap() *image.RGBA {
	return d.bitmap
}

// Bounds returns the rectangle the sprite occupies.
func (d *Droid) Bounds() image.Rectangle {
	b := d.bitmap.Bounds()
	x0 := d.X - b.Dx()/2
	y0 := d.Y - b.Dy()/2
	return image.Rect(x0, y0, x0+b.Dx(), y0+b.Dy())
}

// HandleActionDown marks the droid touched if (x, y) is on it
func (d *Droid) HandleActionDown(x, y int) {
	d.Touched = image.Pt(x, y).In(d.Bounds())
}

// Update moves the droid one step and bounces it off the edges of a
// width x height area.
func (d *Droid) Update(width, height int) {
	if d.Touched {
		return
	}

	d.X += d.Speed.XV
	d.Y += d.Speed.YV

	halfW := d.bitmap.Bounds().Dx() / 2
	halfH := d.bitmap.Bounds().Dy() / 2

	switch {
	case d.X+halfW >= width && d.Speed.XV > 0:
		d.X = width - halfW
		d.Speed.XV = -d.Speed.XV
	case d.X-halfW <= 0 && d.Speed.XV < 0:
		d.X = halfW
		d.Speed.XV = -d.Speed.XV
	}

	switch {
	case d.Y+halfH >= height && d.Speed.YV > 0:
		d.Y = height - halfH
		d.Speed.YV = -d.Speed.YV
	case d.Y-halfH <= 0 && d.Speed.YV < 0:
		d.Y = halfH
		d.Speed.YV = -d.Speed.YV
	}
}

// droidBitmap draws a small green robot: round head with antennae and eyes
// over a rectangular body with arms.
func droidBitmap() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, droidWidth, droidHeight))

	green := color.RGBA{R: 0xa4, G: 0xc6, B: 0x39, A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	// head: upper half disc centered at (10, 9), radius 6
	for y := 3; y <= 9; y++ {
		for x := 4; x <= 16; x++ {
			dx, dy := x-10, y-9
			if dx*dx+dy*dy <= 36 {
				img.SetRGBA(x, y, green)
			}
		}
	}

	// antennae
	img.SetRGBA(6, 1, green)
	img.SetRGBA(7, 2, green)
	img.SetRGBA(14, 1, green)
	img.SetRGBA(13, 2, green)

	// eyes
	img.SetRGBA(8, 6, white)
	img.SetRGBA(12, 6, white)

	// body
	for y := 11; y <= 19; y++ {
		for x := 4; x <= 16; x++ {
			img.SetRGBA(x, y, green)
		}
	}

	// arms
	for y := 11; y <= 17; y++ {
		img.SetRGBA(1, y, green)
		img.SetRGBA(2, y, green)
		img.SetRGBA(18, y, green)
		img.SetRGBA(19, y, green)
	}

	// legs
	for y := 20; y < droidHeight; y++ {
		for _, x := range []int{7, 8, 12, 13} {
			img.SetRGBA(x, y, green)
		}
	}

	return img
}
