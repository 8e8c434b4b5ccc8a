package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"chosenoffset.com/gridsense/internal/bindings"
	"chosenoffset.com/gridsense/internal/capture"
	"chosenoffset.com/gridsense/internal/config"
	"chosenoffset.com/gridsense/internal/locate"
	"chosenoffset.com/gridsense/internal/mapping"
	"chosenoffset.com/gridsense/internal/profile"
	ebitenrender "chosenoffset.com/gridsense/internal/render/ebiten"
	"chosenoffset.com/gridsense/internal/sensor"
	"chosenoffset.com/gridsense/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "data/sensor.json", "sensor configuration file")
	dataDir := flag.String("data", "data", "data directory holding game profiles")
	game := flag.String("game", "default", "game profile to load")
	title := flag.String("title", "", "override the window title pattern")
	manual := flag.String("manual", "", "manual capture bounds as x,y,w,h (bypasses window detection)")
	listGames := flag.Bool("list-games", false, "list available game profiles and exit")
	flag.Parse()

	if *listGames {
		profiles, err := profile.ScanDataDirectory(*dataDir)
		if err != nil {
			log.Fatalf("Failed to scan data directory: %v", err)
		}
		for _, p := range profiles {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.LoadSensor(*configPath)
	if err != nil {
		log.Fatalf("Failed to load sensor config: %v", err)
	}
	if *title != "" {
		cfg.WindowTitle = *title
	}

	// A game profile overrides the mapping/binding paths from the config.
	prof, err := profile.Find(*dataDir, *game)
	if err != nil {
		log.Printf("Warning: %v; using configured paths", err)
	} else {
		cfg.MappingsPath = prof.MappingsPath
		if prof.BindingsPath != "" {
			cfg.BindingsPath = prof.BindingsPath
		}
	}

	store, err := mapping.Load(cfg.MappingsPath)
	if err != nil {
		log.Fatalf("Failed to load type mappings: %v", err)
	}
	log.Printf("Loaded %d color mappings from %s", store.Len(), cfg.MappingsPath)

	binds, err := bindings.Load(cfg.BindingsPath)
	if err != nil {
		log.Fatalf("Failed to load controller bindings: %v", err)
	}

	var source locate.Source
	if *manual != "" {
		b, err := parseManualBounds(*manual)
		if err != nil {
			log.Fatalf("Bad -manual bounds: %v", err)
		}
		log.Printf("Manual calibration set: %s", b)
		source = locate.Fixed(b)
	} else {
		source = locate.New(cfg)
	}

	saver := snapshot.New(cfg.Snapshot.Dir, cfg.Snapshot.DiffThreshold)

	renderer := ebitenrender.NewRenderer()
	inputMgr := ebitenrender.NewInputManager()
	engine := ebitenrender.NewEngine()

	ctrl, err := sensor.New(context.Background(), cfg, store, binds,
		source, capture.NewScreenCapturer(), saver, renderer, inputMgr)
	if err != nil {
		log.Fatalf("Failed to initialize sensor: %v", err)
	}

	w := cfg.CaptureRegion.Width
	h := cfg.CaptureRegion.Height
	if w <= 0 {
		w = cfg.Fallback.Width
	}
	if h <= 0 {
		h = cfg.Fallback.Height
	}
	engine.SetWindowSize(w*cfg.WindowScale, (h+16)*cfg.WindowScale)
	engine.SetWindowTitle("gridsense - " + cfg.WindowTitle)
	engine.SetWindowResizable(true)
	tps := 1000 / cfg.RefreshMillis
	if tps < 1 {
		tps = 1
	}
	engine.SetTicksPerSecond(tps)

	log.Println("Controls: q quit, g grid lines, r RGB labels, t type labels, s save snapshot")
	if err := engine.RunGame(ctrl); err != nil {
		log.Fatalf("Sensor stopped: %v", err)
	}
}

// parseManualBounds parses the four comma-separated integers of the manual
// override.
func parseManualBounds(s string) (locate.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return locate.Bounds{}, fmt.Errorf("expected x,y,w,h, got %q", s)
	}
	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return locate.Bounds{}, fmt.Errorf("component %d is not an integer: %q", i, p)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return locate.Bounds{}, fmt.Errorf("width and height must be positive")
	}
	return locate.Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}
