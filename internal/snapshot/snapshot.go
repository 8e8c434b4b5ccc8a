// Package snapshot archives captured frames as PNG files, skipping frames
// that are not meaningfully different from the last one saved.
package snapshot

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Saver writes difference-gated PNG snapshots into a directory. It keeps
// only the last saved frame for the delta comparison.
type Saver struct {
	dir       string
	threshold uint64 // absolute per-channel difference sum
	last      *image.RGBA
}

// New creates a saver. The output directory is created on first save.
func New(dir string, threshold uint64) *Saver {
	return &Saver{dir: dir, threshold: threshold}
}

// Save writes the frame if it differs from the last saved frame beyond the
// threshold. It returns the written filename, or "" when the frame was
// skipped as a duplicate.
func (s *Saver) Save(img *image.RGBA, prefix string) (string, error) {
	if !s.changed(img) {
		return "", nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png", prefix, time.Now().Format("20060102_150405.000"))
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.last = cloneRGBA(img)
	log.Printf("Saved snapshot %s", path)
	return path, nil
}

// changed compares against the last saved frame by summing absolute RGB
// channel differences. Dimension changes always count as changed.
func (s *Saver) changed(img *image.RGBA) bool {
	if s.last == nil {
		return true
	}
	if !s.last.Bounds().Eq(img.Bounds()) {
		return true
	}
	var sum uint64
	for i := 0; i < len(img.Pix); i += 4 {
		sum += absDiff(img.Pix[i], s.last.Pix[i])
		sum += absDiff(img.Pix[i+1], s.last.Pix[i+1])
		sum += absDiff(img.Pix[i+2], s.last.Pix[i+2])
		if sum > s.threshold {
			return true
		}
	}
	return false
}

func absDiff(a, b uint8) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
