// Package locate resolves the emulator's display region on screen.
//
// The primary locator shells out to xdotool: a title search produces
// candidate window ids, and the first one with parseable geometry wins. A
// Fixed source bypasses detection for environments where title matching is
// unreliable.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"chosenoffset.com/gridsense/internal/config"
)

// ErrWindowNotFound is returned when no window matches the title pattern
// after all configured retries.
var ErrWindowNotFound = errors.New("window not found")

// Bounds is a screen rectangle in pixel coordinates. It is immutable once
// resolved for a capture session; the controller invalidates it and asks for
// a new one when capture fails.
type Bounds struct {
	X, Y          int
	Width, Height int
}

func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
}

// Source produces capture bounds. The controller only depends on this
// interface so tests and manual overrides can stand in for xdotool.
type Source interface {
	Locate(ctx context.Context) (Bounds, error)
}

// Fixed is a Source that always returns the same bounds. It backs the
// manual-override flag and performs no window-system queries at all.
type Fixed Bounds

// Locate implements Source.
func (f Fixed) Locate(ctx context.Context) (Bounds, error) {
	return Bounds(f), nil
}

// Runner executes an external command and returns its stdout. Injectable so
// the xdotool interaction is testable without X11.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// Locator finds a window by title via xdotool and derives capture bounds
// from its geometry.
type Locator struct {
	Title    string
	Exact    bool
	Retries  int
	Backoff  time.Duration
	Region   config.Region // offsets/size applied to the window geometry
	Fallback *Bounds       // used after retries are exhausted, when set

	run Runner
}

// New builds a Locator from the sensor configuration.
func New(cfg *config.Sensor) *Locator {
	l := &Locator{
		Title:   cfg.WindowTitle,
		Exact:   cfg.ExactTitle,
		Retries: cfg.LocateRetries,
		Backoff: time.Duration(cfg.BackoffMillis) * time.Millisecond,
		Region:  cfg.CaptureRegion,
		run:     execRunner,
	}
	if cfg.AllowFallback {
		fb := Bounds{X: cfg.Fallback.X, Y: cfg.Fallback.Y, Width: cfg.Fallback.Width, Height: cfg.Fallback.Height}
		l.Fallback = &fb
	}
	return l
}

// Locate implements Source. It retries with a fixed backoff; when every
// attempt fails it returns the fallback bounds if one is configured,
// otherwise ErrWindowNotFound.
func (l *Locator) Locate(ctx context.Context) (Bounds, error) {
	var lastErr error
	for attempt := 1; attempt <= l.Retries; attempt++ {
		b, err := l.locateOnce(ctx)
		if err == nil {
			log.Printf("Window geometry resolved: %s", b)
			return b, nil
		}
		lastErr = err
		log.Printf("Locate attempt %d/%d failed: %v", attempt, l.Retries, err)
		if attempt < l.Retries {
			select {
			case <-ctx.Done():
				return Bounds{}, ctx.Err()
			case <-time.After(l.Backoff):
			}
		}
	}
	if l.Fallback != nil {
		log.Printf("Falling back to configured bounds %s", *l.Fallback)
		return *l.Fallback, nil
	}
	return Bounds{}, fmt.Errorf("%w: title %q: %v", ErrWindowNotFound, l.Title, lastErr)
}

func (l *Locator) locateOnce(ctx context.Context) (Bounds, error) {
	pattern := regexp.QuoteMeta(l.Title)
	if l.Exact {
		pattern = "^" + pattern + "$"
	}

	out, err := l.run(ctx, "xdotool", "search", "--name", pattern)
	if err != nil {
		return Bounds{}, fmt.Errorf("xdotool search failed: %w", err)
	}
	ids := splitLines(out)
	if len(ids) == 0 {
		return Bounds{}, fmt.Errorf("no window matches title %q", l.Title)
	}

	// Several windows can match (the emulator opens helper windows); take
	// the first one whose geometry parses.
	var geomErr error
	for _, id := range ids {
		out, err := l.run(ctx, "xdotool", "getwindowgeometry", id)
		if err != nil {
			geomErr = err
			continue
		}
		b, err := parseGeometry(out)
		if err != nil {
			geomErr = err
			continue
		}
		return l.applyRegion(b), nil
	}
	return Bounds{}, fmt.Errorf("no matching window has valid geometry: %v", geomErr)
}

// applyRegion shifts the window origin by the configured offsets and clamps
// the size to the configured capture region when one is set.
func (l *Locator) applyRegion(b Bounds) Bounds {
	b.X += l.Region.OffsetX
	b.Y += l.Region.OffsetY
	if l.Region.Width > 0 {
		b.Width = l.Region.Width
	}
	if l.Region.Height > 0 {
		b.Height = l.Region.Height
	}
	return b
}

var (
	positionRe = regexp.MustCompile(`Position:\s*(-?\d+),(-?\d+)`)
	geometryRe = regexp.MustCompile(`Geometry:\s*(\d+)x(\d+)`)
)

// parseGeometry extracts position and size from xdotool getwindowgeometry
// output:
//
//	Window 52428803
//	  Position: 1057,23 (screen: 0)
//	  Geometry: 256x240
func parseGeometry(out string) (Bounds, error) {
	pos := positionRe.FindStringSubmatch(out)
	if pos == nil {
		return Bounds{}, fmt.Errorf("no Position line in geometry output")
	}
	geo := geometryRe.FindStringSubmatch(out)
	if geo == nil {
		return Bounds{}, fmt.Errorf("no Geometry line in geometry output")
	}
	x, _ := strconv.Atoi(pos[1])
	y, _ := strconv.Atoi(pos[2])
	w, _ := strconv.Atoi(geo[1])
	h, _ := strconv.Atoi(geo[2])
	if w <= 0 || h <= 0 {
		return Bounds{}, fmt.Errorf("degenerate window geometry %dx%d", w, h)
	}
	return Bounds{X: x, Y: y, Width: w, Height: h}, nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
