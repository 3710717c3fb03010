package display

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

func (e *Engine) set(x, y int, c Color) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	page := y / 8
	idx := page*Width + x
	bit := byte(1) << (y % 8)
	old := e.fb[idx]
	if c {
		e.fb[idx] |= bit
	} else {
		e.fb[idx] &^= bit
	}
	if e.fb[idx] != old {
		e.touched[page] |= 1 << (x / BlockSize)
	}
}

// Pixel sets one pixel. Coordinates outside the panel are ignored.
func (e *Engine) Pixel(x, y int, c Color) {
	e.set(x, y, c)
}

// PixelAt returns the framebuffer value at (x, y); Off when out of range.
func (e *Engine) PixelAt(x, y int) Color {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return Off
	}
	return e.fb[(y/8)*Width+x]&(1<<(y%8)) != 0
}

// HLine draws w pixels to the right of (x, y).
func (e *Engine) HLine(x, y, w int, c Color) {
	if y < 0 || y >= Height {
		return
	}
	for i := max(x, 0); i < x+w && i < Width; i++ {
		e.set(i, y, c)
	}
}

// VLine draws h pixels down from (x, y).
func (e *Engine) VLine(x, y, h int, c Color) {
	if x < 0 || x >= Width {
		return
	}
	for j := max(y, 0); j < y+h && j < Height; j++ {
		e.set(x, j, c)
	}
}

// Rect draws the outline of a w by h rectangle.
func (e *Engine) Rect(x, y, w, h int, c Color) {
	if w <= 0 || h <= 0 {
		return
	}
	e.HLine(x, y, w, c)
	e.HLine(x, y+h-1, w, c)
	e.VLine(x, y, h, c)
	e.VLine(x+w-1, y, h, c)
}

// FillRect fills a w by h rectangle.
func (e *Engine) FillRect(x, y, w, h int, c Color) {
	for j := max(y, 0); j < y+h && j < Height; j++ {
		e.HLine(x, j, w, c)
	}
}

// Text draws s with its top-left corner at (x, y) and returns the advance
// in pixels. Glyphs falling off the panel are clipped.
func (e *Engine) Text(x, y int, s string, c Color) int {
	src := image.Black
	if c {
		src = image.White
	}
	d := font.Drawer{
		Dst:  canvas{e},
		Src:  src,
		Face: e.face,
		Dot:  fixed.P(x, y+e.face.Metrics().Ascent.Ceil()),
	}
	start := d.Dot.X
	d.DrawString(s)
	return (d.Dot.X - start).Ceil()
}

// TextWidth returns the advance of s without drawing it.
func (e *Engine) TextWidth(s string) int {
	return font.MeasureString(e.face, s).Ceil()
}

// LineHeight is the vertical pitch of one text line.
func (e *Engine) LineHeight() int {
	return e.face.Metrics().Height.Ceil()
}

// canvas exposes the framebuffer as a draw.Image for x/image/font.
type canvas struct{ e *Engine }

func (canvas) ColorModel() color.Model { return color.GrayModel }

func (canvas) Bounds() image.Rectangle { return image.Rect(0, 0, Width, Height) }

func (c canvas) At(x, y int) color.Color {
	if c.e.PixelAt(x, y) {
		return color.White
	}
	return color.Black
}

func (c canvas) Set(x, y int, col color.Color) {
	g := color.GrayModel.Convert(col).(color.Gray)
	c.e.set(x, y, g.Y >= 0x80)
}
