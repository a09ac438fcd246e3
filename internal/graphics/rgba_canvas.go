package graphics

import (
	"image"
	"image/color"
	"image/draw"
)

// TextItem is a line of text drawn onto a software canvas
type TextItem struct {
	Text string
	X, Y int
}

// RGBACanvas is a software Canvas backed by an image.RGBA. Text is recorded
// rather than rasterized; backends decide how to present it.
type RGBACanvas struct {
	img   *image.RGBA
	texts []TextItem
}

// NewRGBACanvas wraps img as a canvas
func NewRGBACanvas(img *image.RGBA) *RGBACanvas {
	return &RGBACanvas{img: img}
}

// Size returns the canvas dimensions
func (c *RGBACanvas) Size() (width, height int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Fill paints the whole canvas with col
func (c *RGBACanvas) Fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawImage composites img over the canvas at (x, y)
func (c *RGBACanvas) DrawImage(img image.Image, x, y int) {
	src := img.Bounds()
	dst := image.Rect(x, y, x+src.Dx(), y+src.Dy())
	draw.Draw(c.img, dst, img, src.Min, draw.Over)
}

// DrawText records a text line
func (c *RGBACanvas) DrawText(text string, x, y int) {
	c.texts = append(c.texts, TextItem{Text: text, X: x, Y: y})
}

// Image returns the backing image
func (c *RGBACanvas) Image() *image.RGBA {
	return c.img
}

// Texts returns the text drawn since the canvas was last reset
func (c *RGBACanvas) Texts() []TextItem {
	return c.texts
}

func (c *RGBACanvas) resetTexts() {
	c.texts = c.texts[:0]
}
