// Package config provides the sensor configuration. The configuration is
// loaded from a JSON file once at startup, validated, and passed by value
// into each component; nothing re-reads or mutates it during a session.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Error marks a malformed configuration or mapping file entry. It is fatal
// at startup: the process exits with a diagnostic naming the offending key.
type Error struct {
	Path string // file the entry came from, when known
	Key  string // offending key or field
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Key != "":
		return fmt.Sprintf("config error in %s (key %q): %s", e.Path, e.Key, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("config error in %s: %s", e.Path, e.Msg)
	case e.Key != "":
		return fmt.Sprintf("config error (key %q): %s", e.Key, e.Msg)
	default:
		return fmt.Sprintf("config error: %s", e.Msg)
	}
}

// Region describes how the capture rectangle is derived from the located
// window: fixed pixel offsets from the window origin, and an optional fixed
// size (zero means use the window's own size). Mesen's decorated window puts
// the NES framebuffer 6 px in and 40 px above the reported origin.
type Region struct {
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// Bounds is a literal screen rectangle, used for the fallback capture area
// and manual overrides.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Overlay holds the debug overlay toggle defaults. Each layer is an
// independently composable boolean.
type Overlay struct {
	GridLines  bool `json:"grid_lines"`
	RGBLabels  bool `json:"rgb_labels"`
	TypeLabels bool `json:"type_labels"`
}

// Snapshot configures the frame archiver.
type Snapshot struct {
	Dir string `json:"dir"` // output directory, created on demand
	// DiffThreshold is the absolute per-channel difference sum above which
	// two frames count as different; equal frames are never re-saved.
	DiffThreshold uint64 `json:"diff_threshold"`
}

// Sensor is the full sensing engine configuration.
type Sensor struct {
	// Window location
	WindowTitle   string `json:"window_title"`
	ExactTitle    bool   `json:"exact_title"`
	LocateRetries int    `json:"locate_retries"`
	BackoffMillis int    `json:"locate_backoff_millis"`
	// AllowFallback makes locator failure non-fatal: after exhausting
	// retries the fallback bounds are used instead.
	AllowFallback bool   `json:"allow_fallback_bounds"`
	Fallback      Bounds `json:"fallback_bounds"`
	CaptureRegion Region `json:"capture_region"`

	// Sensing cycle
	RefreshMillis int     `json:"refresh_millis"`
	GridRows      int     `json:"grid_rows"`
	GridCols      int     `json:"grid_cols"`
	Tolerance     float64 `json:"tolerance"`
	// Sampling picks the representative-color strategy per cell:
	// "center" samples the cell's geometric center pixel, "mean" averages
	// the whole cell. Mean is more stable on dithered tiles but blends
	// sprite edges.
	Sampling string `json:"sampling"`

	Overlay  Overlay  `json:"overlay"`
	Snapshot Snapshot `json:"snapshot"`

	// Display
	WindowScale int `json:"window_scale"`

	// Companion files
	MappingsPath string `json:"mappings_path"`
	BindingsPath string `json:"bindings_path"`
}

// DefaultSensor returns a configuration tuned for Dragon Warrior running
// in a Mesen window.
func DefaultSensor() *Sensor {
	return &Sensor{
		WindowTitle:   "Mesen - Dragon Warrior",
		ExactTitle:    false,
		LocateRetries: 3,
		BackoffMillis: 1000,
		AllowFallback: false,
		Fallback:      Bounds{X: 40, Y: 36, Width: 256, Height: 240},
		CaptureRegion: Region{OffsetX: 6, OffsetY: -40, Width: 240, Height: 240},
		RefreshMillis: 100,
		GridRows:      15,
		GridCols:      15,
		Tolerance:     30,
		Sampling:      "center",
		Overlay:       Overlay{GridLines: true},
		Snapshot:      Snapshot{Dir: "screenshots", DiffThreshold: 1000},
		WindowScale:   2,
		MappingsPath:  "data/type_mappings.json",
		BindingsPath:  "data/controller_bindings.json",
	}
}

// LoadSensor loads the sensor config from a JSON file. A missing file yields
// the defaults; a present but malformed file is fatal.
func LoadSensor(path string) (*Sensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSensor(), nil
		}
		return nil, fmt.Errorf("failed to read sensor config: %w", err)
	}

	cfg := DefaultSensor() // start with defaults
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Path: path, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges. It returns an *Error naming the first
// offending field.
func (c *Sensor) Validate() error {
	if c.GridRows <= 0 || c.GridCols <= 0 {
		return &Error{Key: "grid_rows/grid_cols", Msg: fmt.Sprintf("grid dimensions must be positive, got %dx%d", c.GridRows, c.GridCols)}
	}
	if c.RefreshMillis <= 0 {
		return &Error{Key: "refresh_millis", Msg: fmt.Sprintf("refresh interval must be positive, got %d", c.RefreshMillis)}
	}
	if c.Tolerance < 0 {
		return &Error{Key: "tolerance", Msg: fmt.Sprintf("tolerance must not be negative, got %g", c.Tolerance)}
	}
	if c.Sampling != "center" && c.Sampling != "mean" {
		return &Error{Key: "sampling", Msg: fmt.Sprintf("unknown sampling strategy %q (want \"center\" or \"mean\")", c.Sampling)}
	}
	if c.LocateRetries < 1 {
		return &Error{Key: "locate_retries", Msg: fmt.Sprintf("at least one locate attempt is required, got %d", c.LocateRetries)}
	}
	if c.WindowScale < 1 {
		return &Error{Key: "window_scale", Msg: fmt.Sprintf("window scale must be at least 1, got %d", c.WindowScale)}
	}
	return nil
}
