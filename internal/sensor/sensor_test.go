package sensor

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"chosenoffset.com/gridsense/internal/bindings"
	"chosenoffset.com/gridsense/internal/capture"
	"chosenoffset.com/gridsense/internal/config"
	"chosenoffset.com/gridsense/internal/locate"
	"chosenoffset.com/gridsense/internal/mapping"
	"chosenoffset.com/gridsense/internal/render"
)

type fakeCapturer struct {
	fill  uint8
	fail  bool
	calls int
}

func (f *fakeCapturer) Capture(b locate.Bounds) (*capture.Frame, error) {
	f.calls++
	if f.fail {
		return nil, &capture.Error{Bounds: b, Reason: "window gone"}
	}
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = f.fill
		img.Pix[i+1] = f.fill
		img.Pix[i+2] = f.fill
		img.Pix[i+3] = 255
	}
	return &capture.Frame{Pixels: img, Taken: time.Now()}, nil
}

type failingSource struct{ calls int }

func (f *failingSource) Locate(ctx context.Context) (locate.Bounds, error) {
	f.calls++
	return locate.Bounds{}, locate.ErrWindowNotFound
}

type fakeInput struct {
	pressed map[render.Key]bool
}

func (f *fakeInput) IsKeyJustPressed(key render.Key) bool {
	return f.pressed[key]
}

func testStore(t *testing.T) *mapping.Store {
	t.Helper()
	s, err := mapping.Parse([]byte(`{
		"color_to_type": {"132,132,132": 0},
		"type_aliases": {"0": "block"}
	}`))
	if err != nil {
		t.Fatalf("Failed to parse mappings: %v", err)
	}
	return s
}

func testController(t *testing.T, source locate.Source, capt capture.Capturer, input render.InputManager) *Controller {
	t.Helper()
	cfg := config.DefaultSensor()
	cfg.Tolerance = 0
	if input == nil {
		input = &fakeInput{}
	}
	c, err := New(context.Background(), cfg, testStore(t), bindings.Default(),
		source, capt, nil, nil, input)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestCycleProducesClassifiedGrid(t *testing.T) {
	src := locate.Fixed(locate.Bounds{X: 0, Y: 0, Width: 240, Height: 240})
	c := testController(t, src, &fakeCapturer{fill: 132}, nil)

	if err := c.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if c.State() != StateAwaitingTick {
		t.Errorf("expected sensing state, got %s", c.State())
	}
	cycles, skipped, unknown := c.Stats()
	if cycles != 1 || skipped != 0 {
		t.Errorf("expected 1 cycle 0 skipped, got %d/%d", cycles, skipped)
	}
	if unknown != 0 {
		t.Errorf("uniform block frame should have no unknown cells, got %d", unknown)
	}

	g := c.Grid()
	if g == nil {
		t.Fatal("no grid after a successful cycle")
	}
	if g.Rows != 15 || g.Cols != 15 {
		t.Fatalf("expected 15x15 grid, got %dx%d", g.Rows, g.Cols)
	}
	for i := range g.Cells {
		if g.Cells[i].Type != 0 {
			t.Fatalf("cell %d: expected type 0, got %d", i, g.Cells[i].Type)
		}
	}
	if c.Annotated() == nil {
		t.Error("no annotated frame after a successful cycle")
	}
}

func TestUnknownCellsCounted(t *testing.T) {
	src := locate.Fixed(locate.Bounds{Width: 240, Height: 240})
	c := testController(t, src, &fakeCapturer{fill: 7}, nil)

	if err := c.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	_, _, unknown := c.Stats()
	if unknown != 15*15 {
		t.Errorf("expected every cell unknown, got %d", unknown)
	}
}

func TestCaptureFailureSkipsCycleAndKeepsFrame(t *testing.T) {
	src := locate.Fixed(locate.Bounds{Width: 240, Height: 240})
	capt := &fakeCapturer{fill: 132}
	c := testController(t, src, capt, nil)

	if err := c.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	prev := c.Annotated()

	capt.fail = true
	if err := c.Update(); err != nil {
		t.Fatalf("a transient capture failure must not stop the loop: %v", err)
	}

	cycles, skipped, _ := c.Stats()
	if cycles != 1 || skipped != 1 {
		t.Errorf("expected 1 cycle 1 skipped, got %d/%d", cycles, skipped)
	}
	if c.Annotated() != prev {
		t.Error("previous annotated frame should remain after a skipped cycle")
	}
}

func TestLocatorFailureIsFatalBeforeCapture(t *testing.T) {
	src := &failingSource{}
	capt := &fakeCapturer{fill: 132}
	c := testController(t, src, capt, nil)

	err := c.Update()
	if err == nil {
		t.Fatal("expected fatal error from exhausted locator")
	}
	if !errors.Is(err, locate.ErrWindowNotFound) {
		t.Errorf("error should wrap ErrWindowNotFound, got %v", err)
	}
	if c.State() != StateShutdown {
		t.Errorf("expected shutdown, got %s", c.State())
	}
	if capt.calls != 0 {
		t.Error("loop must never enter capturing after locator failure")
	}
}

func TestQuitKeyTerminates(t *testing.T) {
	src := locate.Fixed(locate.Bounds{Width: 240, Height: 240})
	input := &fakeInput{pressed: map[render.Key]bool{render.KeyQ: true}}
	c := testController(t, src, &fakeCapturer{fill: 132}, input)

	err := c.Update()
	if !errors.Is(err, render.Terminate) {
		t.Fatalf("expected Terminate, got %v", err)
	}
	if c.State() != StateShutdown {
		t.Errorf("expected shutdown, got %s", c.State())
	}
	// Subsequent updates stay terminated.
	if err := c.Update(); !errors.Is(err, render.Terminate) {
		t.Errorf("expected Terminate after shutdown, got %v", err)
	}
}

func TestTogglesFlipOverlayOptions(t *testing.T) {
	src := locate.Fixed(locate.Bounds{Width: 240, Height: 240})
	input := &fakeInput{pressed: map[render.Key]bool{render.KeyR: true, render.KeyT: true}}
	c := testController(t, src, &fakeCapturer{fill: 132}, input)

	before := c.Options()
	if err := c.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	after := c.Options()

	if after.RGBLabels == before.RGBLabels {
		t.Error("RGB toggle did not flip")
	}
	if after.TypeLabels == before.TypeLabels {
		t.Error("type toggle did not flip")
	}
	if after.GridLines != before.GridLines {
		t.Error("grid option flipped without its key")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	src := locate.Fixed(locate.Bounds{Width: 240, Height: 240})

	cfg := config.DefaultSensor()
	cfg.Sampling = "median"
	if _, err := New(context.Background(), cfg, testStore(t), bindings.Default(),
		src, &fakeCapturer{}, nil, nil, &fakeInput{}); err == nil {
		t.Error("expected error for unknown sampling strategy")
	}

	binds := bindings.Default()
	binds.Sensor.Quit = "F13"
	if _, err := New(context.Background(), config.DefaultSensor(), testStore(t), binds,
		src, &fakeCapturer{}, nil, nil, &fakeInput{}); err == nil {
		t.Error("expected error for unbindable key name")
	}
}

func TestStateStrings(t *testing.T) {
	states := []State{StateInitializing, StateLocating, StateCapturing,
		StateClassifying, StateRendering, StateAwaitingTick, StateShutdown}
	seen := make(map[string]bool)
	for _, s := range states {
		str := s.String()
		if str == "" || str == "unknown" {
			t.Errorf("state %d has no name", s)
		}
		if seen[str] {
			t.Errorf("duplicate state name %q", str)
		}
		seen[str] = true
	}
}
