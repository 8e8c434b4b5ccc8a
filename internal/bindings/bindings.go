// Package bindings loads the controller binding file. The pad mappings are
// consumed by the input-automation layer; the sensor only uses the
// interactive key section, but both are loaded in the same startup phase so
// a malformed file fails before any window opens.
package bindings

import (
	"encoding/json"
	"fmt"
	"os"

	"chosenoffset.com/gridsense/internal/config"
)

// Pad maps one emulator controller port to host inputs.
type Pad struct {
	Port    int               `json:"port"`
	Buttons map[string]string `json:"buttons"` // emulator button -> host key
}

// SensorKeys names the interactive keys of the sensing window. Each is a
// single keypress that flips the corresponding overlay option, saves a
// snapshot, or quits.
type SensorKeys struct {
	Quit         string `json:"quit"`
	ToggleGrid   string `json:"toggle_grid"`
	ToggleRGB    string `json:"toggle_rgb"`
	ToggleTypes  string `json:"toggle_types"`
	SaveSnapshot string `json:"save_snapshot"`
}

// Bindings is the parsed controller binding file.
type Bindings struct {
	Pads   []Pad      `json:"pads"`
	Sensor SensorKeys `json:"sensor_keys"`
}

// Default returns the stock key layout.
func Default() *Bindings {
	return &Bindings{
		Sensor: SensorKeys{
			Quit:         "q",
			ToggleGrid:   "g",
			ToggleRGB:    "r",
			ToggleTypes:  "t",
			SaveSnapshot: "s",
		},
	}
}

// Load reads the binding file. A missing file yields the defaults.
func Load(path string) (*Bindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read controller bindings: %w", err)
	}

	b := Default()
	if err := json.Unmarshal(data, b); err != nil {
		return nil, &config.Error{Path: path, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := b.validate(); err != nil {
		if cerr, ok := err.(*config.Error); ok {
			cerr.Path = path
		}
		return nil, err
	}
	return b, nil
}

func (b *Bindings) validate() error {
	keys := map[string]string{
		"quit":          b.Sensor.Quit,
		"toggle_grid":   b.Sensor.ToggleGrid,
		"toggle_rgb":    b.Sensor.ToggleRGB,
		"toggle_types":  b.Sensor.ToggleTypes,
		"save_snapshot": b.Sensor.SaveSnapshot,
	}
	seen := make(map[string]string)
	for field, key := range keys {
		if key == "" {
			return &config.Error{Key: field, Msg: "sensor key must not be empty"}
		}
		if prev, dup := seen[key]; dup {
			return &config.Error{Key: field, Msg: fmt.Sprintf("key %q already bound to %s", key, prev)}
		}
		seen[key] = field
	}
	for _, pad := range b.Pads {
		if pad.Port < 1 {
			return &config.Error{Key: "pads", Msg: fmt.Sprintf("pad port must be positive, got %d", pad.Port)}
		}
	}
	return nil
}
