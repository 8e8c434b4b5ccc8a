// Package render abstracts the display backend. The sensor only needs a
// small surface: upload an RGBA frame, scale it onto the window, draw status
// text, and poll a handful of keys. Keeping it behind interfaces lets tests
// drive the controller without a window system.
package render

import (
	"errors"
	"image"
	"image/color"
)

// Terminate is returned from Game.Update to request an orderly shutdown of
// the engine loop. The backend translates it into its own termination value.
var Terminate = errors.New("terminate")

// Renderer creates drawable images and renders text.
type Renderer interface {
	// NewImageFromRGBA uploads a pixel buffer as a drawable image.
	NewImageFromRGBA(img *image.RGBA) Image

	// DrawText draws a one-line debug string at (x, y).
	DrawText(dst Image, text string, x, y int)
}

// Image is a renderable surface.
type Image interface {
	Bounds() image.Rectangle
	Size() (width, height int)

	// ReplacePixels overwrites the image contents with a same-sized buffer.
	ReplacePixels(img *image.RGBA)

	Fill(clr color.Color)

	// DrawImage draws src onto this image with the given placement.
	DrawImage(src Image, opts *DrawImageOptions)

	Dispose()
}

// DrawImageOptions places a source image: scale first, then translate.
type DrawImageOptions struct {
	ScaleX, ScaleY float64
	Tx, Ty         float64
}

// InputManager polls keyboard state. The sensor polls once per cycle and
// never blocks on input.
type InputManager interface {
	IsKeyJustPressed(key Key) bool
}

// Key represents a keyboard key.
type Key int

// Keys the sensor can bind.
const (
	KeyQ Key = iota
	KeyG
	KeyR
	KeyT
	KeyS
	KeyEscape
)

// KeyByName resolves a binding-file key name to a Key.
func KeyByName(name string) (Key, bool) {
	switch name {
	case "q":
		return KeyQ, true
	case "g":
		return KeyG, true
	case "r":
		return KeyR, true
	case "t":
		return KeyT, true
	case "s":
		return KeyS, true
	case "escape", "esc":
		return KeyEscape, true
	}
	return 0, false
}

// Game is the loop contract the engine drives. Update runs at the engine's
// configured tick rate; Draw runs every display frame.
type Game interface {
	Update() error
	Draw(screen Image)
	Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int)
}

// Engine manages the window and the loop.
type Engine interface {
	SetWindowSize(width, height int)
	SetWindowTitle(title string)
	SetWindowResizable(resizable bool)

	// SetTicksPerSecond bounds how often Game.Update runs; this is the
	// sensing loop's refresh-rate throttle.
	SetTicksPerSecond(tps int)

	// RunGame blocks until the game ends. A Game.Update returning Terminate
	// ends the loop with a nil error.
	RunGame(game Game) error
}
