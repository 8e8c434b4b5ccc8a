// Package sensor orchestrates the sensing cycle: locate the emulator
// window, capture a frame, partition and classify it, render the debug
// overlay, and display the result at the configured refresh rate.
package sensor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"

	"chosenoffset.com/gridsense/internal/bindings"
	"chosenoffset.com/gridsense/internal/capture"
	"chosenoffset.com/gridsense/internal/classify"
	"chosenoffset.com/gridsense/internal/config"
	"chosenoffset.com/gridsense/internal/grid"
	"chosenoffset.com/gridsense/internal/locate"
	"chosenoffset.com/gridsense/internal/mapping"
	"chosenoffset.com/gridsense/internal/overlay"
	"chosenoffset.com/gridsense/internal/render"
	"chosenoffset.com/gridsense/internal/snapshot"
)

// State is the controller's position in the sensing cycle.
type State int

// Controller states. One Update call walks Locating (when bounds are stale)
// through AwaitingTick; Shutdown is terminal.
const (
	StateInitializing State = iota
	StateLocating
	StateCapturing
	StateClassifying
	StateRendering
	StateAwaitingTick
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "init"
	case StateLocating:
		return "locating"
	case StateCapturing:
		return "capturing"
	case StateClassifying:
		return "classifying"
	case StateRendering:
		return "rendering"
	case StateAwaitingTick:
		return "sensing"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// hudHeight is the status strip below the frame, in logical pixels.
const hudHeight = 16

// unknownLogInterval samples the unknown-cell count into the log for
// mapping calibration.
const unknownLogInterval = 50

type keyBindings struct {
	quit         render.Key
	toggleGrid   render.Key
	toggleRGB    render.Key
	toggleTypes  render.Key
	saveSnapshot render.Key
}

// Controller runs the sensing loop. It implements render.Game: the engine's
// tick rate provides the bounded sleep between cycles, and input is polled
// once at the top of each Update.
type Controller struct {
	ctx      context.Context
	cfg      *config.Sensor
	store    *mapping.Store
	source   locate.Source
	capturer capture.Capturer
	saver    *snapshot.Saver
	renderer render.Renderer
	input    render.InputManager
	keys     keyBindings
	strategy grid.Strategy

	state      State
	bounds     locate.Bounds
	haveBounds bool
	opts       overlay.Options

	annotated *image.RGBA  // last successfully rendered frame
	lastGrid  *grid.Grid   // grid of the last completed cycle
	display   render.Image // uploaded copy of annotated

	logicalW, logicalH int

	cycles  int
	skipped int
	unknown int // unknown cells in the last completed cycle

	saveRequested bool
}

// New assembles a controller. All tables and configuration are loaded by the
// caller; the controller never mutates them.
func New(ctx context.Context, cfg *config.Sensor, store *mapping.Store, binds *bindings.Bindings,
	source locate.Source, capturer capture.Capturer, saver *snapshot.Saver,
	renderer render.Renderer, input render.InputManager) (*Controller, error) {

	strategy, err := grid.StrategyFromName(cfg.Sampling)
	if err != nil {
		return nil, &config.Error{Key: "sampling", Msg: err.Error()}
	}
	keys, err := resolveKeys(binds.Sensor)
	if err != nil {
		return nil, err
	}

	w := cfg.CaptureRegion.Width
	h := cfg.CaptureRegion.Height
	if w <= 0 {
		w = cfg.Fallback.Width
	}
	if h <= 0 {
		h = cfg.Fallback.Height
	}

	return &Controller{
		ctx:      ctx,
		cfg:      cfg,
		store:    store,
		source:   source,
		capturer: capturer,
		saver:    saver,
		renderer: renderer,
		input:    input,
		keys:     keys,
		strategy: strategy,
		state:    StateInitializing,
		opts: overlay.Options{
			GridLines:  cfg.Overlay.GridLines,
			RGBLabels:  cfg.Overlay.RGBLabels,
			TypeLabels: cfg.Overlay.TypeLabels,
		},
		logicalW: w,
		logicalH: h + hudHeight,
	}, nil
}

func resolveKeys(sk bindings.SensorKeys) (keyBindings, error) {
	var kb keyBindings
	for _, bind := range []struct {
		field string
		name  string
		dst   *render.Key
	}{
		{"quit", sk.Quit, &kb.quit},
		{"toggle_grid", sk.ToggleGrid, &kb.toggleGrid},
		{"toggle_rgb", sk.ToggleRGB, &kb.toggleRGB},
		{"toggle_types", sk.ToggleTypes, &kb.toggleTypes},
		{"save_snapshot", sk.SaveSnapshot, &kb.saveSnapshot},
	} {
		key, ok := render.KeyByName(bind.name)
		if !ok {
			return kb, &config.Error{Key: bind.field, Msg: fmt.Sprintf("unbindable key name %q", bind.name)}
		}
		*bind.dst = key
	}
	return kb, nil
}

// Update runs one sensing cycle. It is called by the engine at the
// configured refresh rate; the gap between calls is the cycle's bounded
// sleep.
func (c *Controller) Update() error {
	if c.state == StateShutdown {
		return render.Terminate
	}

	if err := c.pollInput(); err != nil {
		return err
	}

	return c.runCycle()
}

// pollInput handles the interactive keys, once per cycle and non-blocking.
// Toggles take effect on the next rendering pass.
func (c *Controller) pollInput() error {
	if c.input.IsKeyJustPressed(c.keys.quit) || c.input.IsKeyJustPressed(render.KeyEscape) {
		c.shutdown("quit requested")
		return render.Terminate
	}
	if c.input.IsKeyJustPressed(c.keys.toggleGrid) {
		c.opts.GridLines = !c.opts.GridLines
		log.Printf("Grid display %s", onOff(c.opts.GridLines))
	}
	if c.input.IsKeyJustPressed(c.keys.toggleRGB) {
		c.opts.RGBLabels = !c.opts.RGBLabels
		log.Printf("RGB display %s", onOff(c.opts.RGBLabels))
	}
	if c.input.IsKeyJustPressed(c.keys.toggleTypes) {
		c.opts.TypeLabels = !c.opts.TypeLabels
		log.Printf("Type display %s", onOff(c.opts.TypeLabels))
	}
	if c.input.IsKeyJustPressed(c.keys.saveSnapshot) {
		c.saveRequested = true
	}
	return nil
}

// runCycle performs locate → capture → classify → render. Capture and
// classification failures skip the cycle and keep the previous annotated
// frame on screen; an exhausted locator is fatal.
func (c *Controller) runCycle() error {
	if !c.haveBounds {
		c.state = StateLocating
		b, err := c.source.Locate(c.ctx)
		if err != nil {
			c.shutdown("window location failed")
			return fmt.Errorf("window location failed: %w", err)
		}
		c.bounds = b
		c.haveBounds = true
	}

	c.state = StateCapturing
	frame, err := c.capturer.Capture(c.bounds)
	if err != nil {
		log.Printf("Warning: cycle skipped: %v", err)
		c.skipped++
		// The window may have moved or closed; re-resolve next cycle.
		c.haveBounds = false
		c.state = StateAwaitingTick
		return nil
	}

	c.state = StateClassifying
	g, err := grid.Partition(frame.Pixels, c.cfg.GridRows, c.cfg.GridCols, c.strategy)
	if err != nil {
		log.Printf("Warning: cycle skipped: %v", err)
		c.skipped++
		c.state = StateAwaitingTick
		return nil
	}
	c.unknown = classify.Annotate(g, c.store, c.cfg.Tolerance)

	c.state = StateRendering
	c.annotated = overlay.Render(frame.Pixels, g, c.store, c.opts)
	c.lastGrid = g
	c.cycles++

	if c.unknown > 0 && c.cycles%unknownLogInterval == 0 {
		log.Printf("Cycle %d: %d/%d cells unknown", c.cycles, c.unknown, len(g.Cells))
	}

	if c.saveRequested {
		c.saveRequested = false
		if c.saver != nil {
			if _, err := c.saver.Save(c.annotated, "manual"); err != nil {
				log.Printf("Warning: snapshot failed: %v", err)
			}
		}
	}

	c.state = StateAwaitingTick
	return nil
}

func (c *Controller) shutdown(reason string) {
	log.Printf("Sensor shutdown (%s): %d cycles, %d skipped", reason, c.cycles, c.skipped)
	c.state = StateShutdown
}

// Draw displays the latest annotated frame with the HUD status line.
func (c *Controller) Draw(screen render.Image) {
	if c.annotated == nil {
		screen.Fill(color.Black)
		c.renderer.DrawText(screen, fmt.Sprintf("locating %q...", c.cfg.WindowTitle), 4, 4)
		return
	}

	b := c.annotated.Bounds()
	if c.display != nil {
		if w, h := c.display.Size(); w != b.Dx() || h != b.Dy() {
			c.display.Dispose()
			c.display = nil
		}
	}
	if c.display == nil {
		c.display = c.renderer.NewImageFromRGBA(c.annotated)
	} else {
		c.display.ReplacePixels(c.annotated)
	}

	screen.Fill(color.Black)
	screen.DrawImage(c.display, &render.DrawImageOptions{ScaleX: 1, ScaleY: 1})
	c.renderer.DrawText(screen, c.hudLine(), 2, c.logicalH-hudHeight+2)
}

func (c *Controller) hudLine() string {
	return fmt.Sprintf("%s  cycle:%d skip:%d unknown:%d  grid:%s rgb:%s types:%s",
		c.state, c.cycles, c.skipped, c.unknown,
		onOff(c.opts.GridLines), onOff(c.opts.RGBLabels), onOff(c.opts.TypeLabels))
}

// Layout reports the logical screen size: the capture region plus the HUD
// strip.
func (c *Controller) Layout(outsideWidth, outsideHeight int) (int, int) {
	return c.logicalW, c.logicalH
}

// State returns the controller's current cycle state.
func (c *Controller) State() State { return c.state }

// Grid returns the classified grid of the last completed cycle; nil before
// the first one. Downstream decision logic reads this.
func (c *Controller) Grid() *grid.Grid { return c.lastGrid }

// Annotated returns the last rendered frame; nil before the first cycle.
func (c *Controller) Annotated() *image.RGBA { return c.annotated }

// Options returns the active overlay toggles.
func (c *Controller) Options() overlay.Options { return c.opts }

// Stats returns cycle counters: completed cycles, skipped cycles, and
// unknown cells in the last completed cycle.
func (c *Controller) Stats() (cycles, skipped, unknown int) {
	return c.cycles, c.skipped, c.unknown
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
