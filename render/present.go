package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
)

// Presenter turns a raster into terminal text of cols x rows cells.
type Presenter interface {
	// PixelSize is the raster size that maps onto cols x rows cells.
	PixelSize(cols, rows int) (width, height int)
	Present(img *image.RGBA, cols, rows int) string
}

// Alpha at or above which a pixel counts as ink.
const inkAlpha = 96

// Braille maps 2x4 pixels onto one braille cell, coloured with the mean of
// its inked pixels. Good for thin strokes and dots.
type Braille struct{}

// HalfBlock maps 1x2 pixels onto one cell using the upper half block, top
// pixel as foreground and bottom pixel as background. Good for fills.
type HalfBlock struct{}

func (Braille) PixelSize(cols, rows int) (int, int) { return cols * 2, rows * 4 }

func (HalfBlock) PixelSize(cols, rows int) (int, int) { return cols, rows * 2 }

var brailleBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func (Braille) Present(img *image.RGBA, cols, rows int) string {
	var sb strings.Builder
	var run runWriter
	for cy := 0; cy < rows; cy++ {
		run.reset(&sb)
		for cx := 0; cx < cols; cx++ {
			var bits rune
			var acc colorAcc
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					px, py := cx*2+dx, cy*4+dy
					if !(image.Point{X: px, Y: py}).In(img.Bounds()) {
						continue
					}
					c := img.RGBAAt(px, py)
					if c.A < inkAlpha {
						continue
					}
					bits |= brailleBits[dy][dx]
					acc.add(c)
				}
			}
			if bits == 0 {
				run.put(' ', "", "")
				continue
			}
			run.put(0x2800+bits, acc.hex(), "")
		}
		run.flush()
		if cy < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (HalfBlock) Present(img *image.RGBA, cols, rows int) string {
	var sb strings.Builder
	var run runWriter
	at := func(x, y int) (string, bool) {
		if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
			return "", false
		}
		c := img.RGBAAt(x, y)
		if c.A < inkAlpha {
			return "", false
		}
		var acc colorAcc
		acc.add(c)
		return acc.hex(), true
	}
	for cy := 0; cy < rows; cy++ {
		run.reset(&sb)
		for cx := 0; cx < cols; cx++ {
			top, okTop := at(cx, cy*2)
			bottom, okBottom := at(cx, cy*2+1)
			switch {
			case okTop && okBottom:
				run.put('▀', top, bottom)
			case okTop:
				run.put('▀', top, "")
			case okBottom:
				run.put('▄', bottom, "")
			default:
				run.put(' ', "", "")
			}
		}
		run.flush()
		if cy < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type colorAcc struct {
	r, g, b, n uint32
}

// add accumulates the un-premultiplied colour of c.
func (a *colorAcc) add(c color.RGBA) {
	if c.A == 0 {
		return
	}
	a.r += uint32(c.R) * 255 / uint32(c.A)
	a.g += uint32(c.G) * 255 / uint32(c.A)
	a.b += uint32(c.B) * 255 / uint32(c.A)
	a.n++
}

func (a *colorAcc) hex() string {
	if a.n == 0 {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", min(a.r/a.n, 255), min(a.g/a.n, 255), min(a.b/a.n, 255))
}

// runWriter groups consecutive cells of equal colours into one styled span.
type runWriter struct {
	sb     *strings.Builder
	buf    []rune
	fg, bg string
}

func (w *runWriter) reset(sb *strings.Builder) {
	w.sb, w.buf, w.fg, w.bg = sb, w.buf[:0], "", ""
}

func (w *runWriter) put(r rune, fg, bg string) {
	if len(w.buf) > 0 && (fg != w.fg || bg != w.bg) {
		w.flush()
	}
	w.fg, w.bg = fg, bg
	w.buf = append(w.buf, r)
}

func (w *runWriter) flush() {
	if len(w.buf) == 0 {
		return
	}
	s := string(w.buf)
	if w.fg != "" || w.bg != "" {
		st := styles.NewStyle()
		if w.fg != "" {
			st = st.Foreground(styles.Color(w.fg))
		}
		if w.bg != "" {
			st = st.Background(styles.Color(w.bg))
		}
		s = st.Render(s)
	}
	w.sb.WriteString(s)
	w.buf = w.buf[:0]
}
