package grid

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chosenoffset.com/gridsense/internal/mapping"
)

func uniformFrame(w, h int, c mapping.RGB) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = 255
	}
	return img
}

func TestPartitionRemainderGoesToLastBand(t *testing.T) {
	// 256 / 15 = 17 remainder 1: columns 0-13 are 17 px wide, column 14 is
	// 18 px; rows likewise.
	frame := uniformFrame(256, 256, mapping.RGB{})
	g, err := Partition(frame, 15, 15, SampleCenter)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	for col := 0; col < 15; col++ {
		want := 17
		if col == 14 {
			want = 18
		}
		if got := g.At(0, col).Rect.Dx(); got != want {
			t.Errorf("column %d: expected width %d, got %d", col, want, got)
		}
	}
	for row := 0; row < 15; row++ {
		want := 17
		if row == 14 {
			want = 18
		}
		if got := g.At(row, 0).Rect.Dy(); got != want {
			t.Errorf("row %d: expected height %d, got %d", row, want, got)
		}
	}
}

func TestPartitionTilesExactly(t *testing.T) {
	// No pixel may belong to zero or two cells, for a spread of frame and
	// grid sizes including awkward remainders.
	cases := []struct {
		w, h, rows, cols int
	}{
		{256, 256, 15, 15},
		{240, 240, 15, 15},
		{256, 240, 15, 15},
		{100, 64, 7, 9},
		{17, 23, 3, 5},
		{15, 15, 15, 15},
	}

	for _, tc := range cases {
		frame := uniformFrame(tc.w, tc.h, mapping.RGB{})
		g, err := Partition(frame, tc.rows, tc.cols, SampleCenter)
		if err != nil {
			t.Fatalf("Partition(%dx%d, %dx%d) failed: %v", tc.w, tc.h, tc.rows, tc.cols, err)
		}

		owners := make([]int, tc.w*tc.h)
		for _, cell := range g.Cells {
			for y := cell.Rect.Min.Y; y < cell.Rect.Max.Y; y++ {
				for x := cell.Rect.Min.X; x < cell.Rect.Max.X; x++ {
					owners[y*tc.w+x]++
				}
			}
		}
		for i, n := range owners {
			if n != 1 {
				t.Fatalf("%dx%d grid over %dx%d frame: pixel (%d,%d) covered by %d cells",
					tc.rows, tc.cols, tc.w, tc.h, i%tc.w, i/tc.w, n)
			}
		}
	}
}

func TestPartitionCellIdentity(t *testing.T) {
	frame := uniformFrame(30, 30, mapping.RGB{R: 10, G: 20, B: 30})
	g, err := Partition(frame, 3, 3, SampleCenter)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}

	want := Cell{
		Row:   1,
		Col:   2,
		Rect:  image.Rect(20, 10, 30, 20),
		Color: mapping.RGB{R: 10, G: 20, B: 30},
		Type:  mapping.TypeUnknown,
	}
	if diff := cmp.Diff(want, *g.At(1, 2)); diff != "" {
		t.Errorf("cell mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleCenterReadsCenterPixel(t *testing.T) {
	frame := uniformFrame(30, 30, mapping.RGB{R: 1, G: 1, B: 1})
	// Distinct color at the center of cell (0,0), whose rect is 0,0-10,10.
	center := frame.PixOffset(5, 5)
	frame.Pix[center] = 200
	frame.Pix[center+1] = 100
	frame.Pix[center+2] = 50

	g, err := Partition(frame, 3, 3, SampleCenter)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if got := g.At(0, 0).Color; got != (mapping.RGB{R: 200, G: 100, B: 50}) {
		t.Errorf("expected center pixel color, got %s", got)
	}
	// Neighbors are unaffected.
	if got := g.At(0, 1).Color; got != (mapping.RGB{R: 1, G: 1, B: 1}) {
		t.Errorf("expected uniform color in neighbor cell, got %s", got)
	}
}

func TestSampleMeanAveragesCell(t *testing.T) {
	// Uniform cells: mean equals the uniform color.
	frame := uniformFrame(30, 30, mapping.RGB{R: 40, G: 47, B: 96})
	g, err := Partition(frame, 3, 3, SampleMean)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	for i := range g.Cells {
		if got := g.Cells[i].Color; got != (mapping.RGB{R: 40, G: 47, B: 96}) {
			t.Fatalf("cell (%d,%d): expected uniform mean, got %s", g.Cells[i].Row, g.Cells[i].Col, got)
		}
	}

	// Half black, half white cell averages to mid grey.
	frame = uniformFrame(10, 10, mapping.RGB{})
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			off := frame.PixOffset(x, y)
			frame.Pix[off] = 255
			frame.Pix[off+1] = 255
			frame.Pix[off+2] = 255
		}
	}
	g, err = Partition(frame, 1, 1, SampleMean)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if got := g.At(0, 0).Color; got != (mapping.RGB{R: 127, G: 127, B: 127}) {
		t.Errorf("expected 127,127,127 mean, got %s", got)
	}
}

func TestPartitionRejectsBadDimensions(t *testing.T) {
	frame := uniformFrame(30, 30, mapping.RGB{})
	if _, err := Partition(frame, 0, 3, SampleCenter); err == nil {
		t.Error("expected error for zero rows")
	}
	if _, err := Partition(frame, 3, -1, SampleCenter); err == nil {
		t.Error("expected error for negative cols")
	}
	// Frame smaller than the grid would produce empty cells.
	small := uniformFrame(8, 8, mapping.RGB{})
	if _, err := Partition(small, 15, 15, SampleCenter); err == nil {
		t.Error("expected error for frame smaller than grid")
	}
}

func TestStrategyFromName(t *testing.T) {
	if s, err := StrategyFromName("center"); err != nil || s != SampleCenter {
		t.Errorf("center: got %v, %v", s, err)
	}
	if s, err := StrategyFromName("mean"); err != nil || s != SampleMean {
		t.Errorf("mean: got %v, %v", s, err)
	}
	if _, err := StrategyFromName("median"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
