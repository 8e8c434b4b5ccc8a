// Package capture grabs raw pixel data for a screen region.
package capture

import (
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"chosenoffset.com/gridsense/internal/locate"
)

// Frame is one captured pixel buffer. It is owned by the sensing cycle that
// produced it and discarded when the cycle completes; nothing retains frame
// history beyond the snapshot archiver's last-saved copy.
type Frame struct {
	Pixels *image.RGBA
	Taken  time.Time
}

// Width returns the pixel width of the frame.
func (f *Frame) Width() int { return f.Pixels.Bounds().Dx() }

// Height returns the pixel height of the frame.
func (f *Frame) Height() int { return f.Pixels.Bounds().Dy() }

// Error is a transient capture failure. The sensing loop logs it, skips the
// cycle and re-resolves the window bounds; it never terminates the loop.
type Error struct {
	Bounds locate.Bounds
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture %s: %s: %v", e.Bounds, e.Reason, e.Err)
	}
	return fmt.Sprintf("capture %s: %s", e.Bounds, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Capturer produces frames for a screen region.
type Capturer interface {
	Capture(bounds locate.Bounds) (*Frame, error)
}

// ScreenCapturer captures from the host display via the screenshot package.
type ScreenCapturer struct{}

// NewScreenCapturer returns the host-display capturer.
func NewScreenCapturer() *ScreenCapturer { return &ScreenCapturer{} }

// Capture grabs the region described by bounds. The region must lie fully
// inside an active display, and the returned buffer must match the requested
// dimensions exactly: a mismatch means display scaling is rewriting pixel
// geometry, which would silently misalign the grid, so it is reported as an
// error instead of corrected.
func (c *ScreenCapturer) Capture(bounds locate.Bounds) (*Frame, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, &Error{Bounds: bounds, Reason: "degenerate capture region"}
	}

	rect := image.Rect(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height)
	if !onScreen(rect) {
		return nil, &Error{Bounds: bounds, Reason: "region is partially or fully off-screen"}
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, &Error{Bounds: bounds, Reason: "screen grab failed", Err: err}
	}
	if img.Bounds().Dx() != bounds.Width || img.Bounds().Dy() != bounds.Height {
		return nil, &Error{
			Bounds: bounds,
			Reason: fmt.Sprintf("captured %dx%d pixels for a %dx%d region (display scaling mismatch)",
				img.Bounds().Dx(), img.Bounds().Dy(), bounds.Width, bounds.Height),
		}
	}

	return &Frame{Pixels: img, Taken: time.Now()}, nil
}

// onScreen reports whether the rectangle lies fully within some active
// display.
func onScreen(rect image.Rectangle) bool {
	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		if rect.In(screenshot.GetDisplayBounds(i)) {
			return true
		}
	}
	return false
}
