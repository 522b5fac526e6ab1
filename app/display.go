package app

import (
	"image/color"
	"unicode/utf8"

	"ember/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

var (
	font     = &tinyfont.TomThumb
	cellW    = int16(4)
	lineH    = int16(font.GetYAdvance())
	colorFG  = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	colorDim = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	colorHot = color.RGBA{R: 0xFF, G: 0xC0, B: 0x00, A: 0xFF}
	colorBad = color.RGBA{R: 0xC0, G: 0x00, B: 0x00, A: 0xFF}
	colorInk = color.RGBA{A: 0xFF}
)

var _ drivers.Displayer = fbDisplay{}

// fbDisplay adapts an RGB565 framebuffer to the tinyfont drawing target.
type fbDisplay struct {
	fb hal.Framebuffer
}

func (d fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return
	}

	w := d.fb.Width()
	h := d.fb.Height()
	ix := int(x)
	iy := int(y)
	if ix < 0 || ix >= w || iy < 0 || iy >= h {
		return
	}

	pixel := uint16((uint16(c.R>>3)&0x1F)<<11 | (uint16(c.G>>2)&0x3F)<<5 | (uint16(c.B>>3) & 0x1F))
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d fbDisplay) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

// usable reports whether there is a pixel buffer to draw into.
func (d fbDisplay) usable() bool {
	return d.fb != nil && d.fb.Format() == hal.PixelFormatRGB565 && d.fb.Buffer() != nil
}

// textPane writes wrapped lines top to bottom and drops what does not fit.
type textPane struct {
	d    fbDisplay
	cols int16
	rows int16
	row  int16
}

func newTextPane(d fbDisplay) *textPane {
	w, h := d.Size()
	p := &textPane{d: d, cols: w / cellW, rows: h / lineH}
	if p.cols <= 0 {
		p.cols = 1
	}
	return p
}

func (p *textPane) full() bool { return p.row >= p.rows }

func (p *textPane) line(s string, c color.RGBA) {
	for {
		if p.full() {
			return
		}
		chunk, rest := takeRunes(s, p.cols)
		tinyfont.WriteLine(p.d, font, 0, (p.row+1)*lineH-1, chunk, c)
		p.row++
		if rest == "" {
			return
		}
		s = rest
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
