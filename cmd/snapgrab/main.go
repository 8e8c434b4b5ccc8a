// snapgrab captures the emulator region on an interval and archives every
// frame that differs from the last saved one. It runs headless; stop it
// with Ctrl+C.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"chosenoffset.com/gridsense/internal/capture"
	"chosenoffset.com/gridsense/internal/config"
	"chosenoffset.com/gridsense/internal/locate"
	"chosenoffset.com/gridsense/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "data/sensor.json", "sensor configuration file")
	outDir := flag.String("out", "", "output directory (default: snapshot dir from config)")
	intervalMillis := flag.Int("interval", 2000, "capture interval in milliseconds")
	threshold := flag.Uint64("threshold", 0, "difference threshold override (0: use config)")
	flag.Parse()

	cfg, err := config.LoadSensor(*configPath)
	if err != nil {
		log.Fatalf("Failed to load sensor config: %v", err)
	}
	if *outDir == "" {
		*outDir = cfg.Snapshot.Dir
	}
	if *threshold == 0 {
		*threshold = cfg.Snapshot.DiffThreshold
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bounds, err := locate.New(cfg).Locate(ctx)
	if err != nil {
		log.Fatalf("Failed to locate window: %v", err)
	}

	capturer := capture.NewScreenCapturer()
	saver := snapshot.New(*outDir, *threshold)

	log.Printf("Capturing %s every %dms into %s (Ctrl+C to stop)", bounds, *intervalMillis, *outDir)

	ticker := time.NewTicker(time.Duration(*intervalMillis) * time.Millisecond)
	defer ticker.Stop()
	saved, skipped := 0, 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("Capture stopped: %d saved, %d unchanged", saved, skipped)
			return
		case <-ticker.C:
		}

		frame, err := capturer.Capture(bounds)
		if err != nil {
			log.Printf("Warning: %v", err)
			// The window may have moved; try to find it again.
			if b, lerr := locate.New(cfg).Locate(ctx); lerr == nil {
				bounds = b
			}
			continue
		}
		path, err := saver.Save(frame.Pixels, "auto")
		if err != nil {
			log.Printf("Warning: save failed: %v", err)
			continue
		}
		if path == "" {
			skipped++
		} else {
			saved++
		}
	}
}
