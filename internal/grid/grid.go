// Package grid partitions a captured frame into the fixed logical grid and
// derives one representative color per cell.
package grid

import (
	"fmt"
	"image"

	"chosenoffset.com/gridsense/internal/mapping"
)

// Strategy selects how a cell's representative color is sampled.
type Strategy int

const (
	// SampleCenter reads the cell's geometric center pixel. NES tiles are
	// flat-colored, so a single interior point is a faithful sample and
	// never blends sprite edges.
	SampleCenter Strategy = iota
	// SampleMean averages every pixel in the cell. More stable on dithered
	// or textured tiles, at the cost of mixing colors near tile borders.
	SampleMean
)

// StrategyFromName maps the config value to a Strategy.
func StrategyFromName(name string) (Strategy, error) {
	switch name {
	case "center":
		return SampleCenter, nil
	case "mean":
		return SampleMean, nil
	default:
		return 0, fmt.Errorf("unknown sampling strategy %q", name)
	}
}

// Cell is one rectangular region of the grid. Cells are recreated every
// cycle; Row and Col are zero-based and uniquely identify a cell within one
// partition.
type Cell struct {
	Row, Col int
	Rect     image.Rectangle // bounding box within the frame
	Color    mapping.RGB     // representative color
	Type     mapping.TypeID  // resolved by the classifier; TypeUnknown until then
}

// Grid is one frame's partition, row-major.
type Grid struct {
	Rows, Cols int
	Cells      []Cell
}

// At returns the cell at (row, col).
func (g *Grid) At(row, col int) *Cell {
	return &g.Cells[row*g.Cols+col]
}

// Partition divides the frame into rows×cols cells using integer division,
// with any remainder pixels going to the last band in each dimension. The
// resulting boxes tile the frame exactly: no gaps, no overlaps.
func Partition(frame *image.RGBA, rows, cols int, strategy Strategy) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	if w < cols || h < rows {
		return nil, fmt.Errorf("frame %dx%d is too small for a %dx%d grid", w, h, rows, cols)
	}

	cellW := w / cols
	cellH := h / rows

	g := &Grid{Rows: rows, Cols: cols, Cells: make([]Cell, 0, rows*cols)}
	for row := 0; row < rows; row++ {
		y0 := row * cellH
		y1 := y0 + cellH
		if row == rows-1 {
			y1 = h
		}
		for col := 0; col < cols; col++ {
			x0 := col * cellW
			x1 := x0 + cellW
			if col == cols-1 {
				x1 = w
			}
			rect := image.Rect(x0, y0, x1, y1)
			g.Cells = append(g.Cells, Cell{
				Row:   row,
				Col:   col,
				Rect:  rect,
				Color: sample(frame, rect, strategy),
				Type:  mapping.TypeUnknown,
			})
		}
	}
	return g, nil
}

func sample(frame *image.RGBA, rect image.Rectangle, strategy Strategy) mapping.RGB {
	if strategy == SampleMean {
		return meanColor(frame, rect)
	}
	return pixelAt(frame, (rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
}

func pixelAt(frame *image.RGBA, x, y int) mapping.RGB {
	off := frame.PixOffset(frame.Bounds().Min.X+x, frame.Bounds().Min.Y+y)
	return mapping.RGB{R: frame.Pix[off], G: frame.Pix[off+1], B: frame.Pix[off+2]}
}

func meanColor(frame *image.RGBA, rect image.Rectangle) mapping.RGB {
	var rSum, gSum, bSum uint64
	min := frame.Bounds().Min
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := frame.PixOffset(min.X+rect.Min.X, min.Y+y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			rSum += uint64(frame.Pix[off])
			gSum += uint64(frame.Pix[off+1])
			bSum += uint64(frame.Pix[off+2])
			off += 4
		}
	}
	n := uint64(rect.Dx() * rect.Dy())
	if n == 0 {
		return mapping.RGB{}
	}
	return mapping.RGB{R: uint8(rSum / n), G: uint8(gSum / n), B: uint8(bSum / n)}
}
