// Package overlay draws the debug annotation layers onto a copy of a
// captured frame.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"chosenoffset.com/gridsense/internal/grid"
	"chosenoffset.com/gridsense/internal/mapping"
)

// Options enumerates the independently toggleable annotation layers. Any
// combination may be active; with all layers off the frame passes through
// visually unchanged.
type Options struct {
	GridLines  bool // draw cell boundaries
	RGBLabels  bool // draw the sampled RGB triple per cell, as hex bytes
	TypeLabels bool // draw the resolved alias or numeric type id per cell
}

// Any reports whether at least one layer is active.
func (o Options) Any() bool {
	return o.GridLines || o.RGBLabels || o.TypeLabels
}

var (
	gridColor  = color.RGBA{G: 255, A: 255}     // green cell borders
	rgbColor   = color.RGBA{255, 255, 255, 255} // white hex labels
	typeColor  = color.RGBA{255, 255, 0, 255}   // yellow type labels
	labelFace  = basicfont.Face7x13
	lineHeight = 12
)

// Render produces a new annotated copy of the frame. The input frame is
// never mutated; the caller owns the returned image.
func Render(frame *image.RGBA, g *grid.Grid, store *mapping.Store, opts Options) *image.RGBA {
	out := cloneRGBA(frame)
	if !opts.Any() || g == nil {
		return out
	}

	for i := range g.Cells {
		cell := &g.Cells[i]
		if opts.GridLines {
			strokeRect(out, cell.Rect, gridColor)
		}
		if opts.RGBLabels {
			x := cell.Rect.Min.X + 2
			y := cell.Rect.Min.Y
			drawLabel(out, x, y+lineHeight, fmt.Sprintf("%02X", cell.Color.R), rgbColor)
			drawLabel(out, x, y+2*lineHeight, fmt.Sprintf("%02X", cell.Color.G), rgbColor)
			drawLabel(out, x, y+3*lineHeight, fmt.Sprintf("%02X", cell.Color.B), rgbColor)
		}
		if opts.TypeLabels {
			drawLabel(out, cell.Rect.Min.X+2, cell.Rect.Max.Y-4, store.DisplayName(cell.Type), typeColor)
		}
	}
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// strokeRect draws a one-pixel border just inside the rectangle.
func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

// drawLabel renders text with its baseline at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: labelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
