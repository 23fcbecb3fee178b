//go:build !js
// +build !js

// Command standalone plays the generative engine through the native synth
// backend. Useful for listening to moods without a browser and for profiling
// the render path.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftscape/driftscape/audio"
	"github.com/driftscape/driftscape/synth"
)

func main() {
	mood := flag.String("mood", audio.DefaultMoodKey, "starting mood")
	volume := flag.Float64("volume", 0.7, "master volume 0..1")
	seconds := flag.Float64("seconds", 0, "play duration, 0 for until interrupted")
	seed := flag.Uint("seed", uint(time.Now().UnixNano()), "variation seed")
	sampleRate := flag.Int("rate", 44100, "sample rate")
	flag.Parse()

	ctx, err := synth.NewContext(*sampleRate)
	if err != nil {
		log.Fatalf("open audio device: %v", err)
	}

	engine := audio.NewEngine(ctx, uint32(*seed))
	if err := engine.Initialize(); err != nil {
		log.Fatalf("initialize engine: %v", err)
	}
	if err := engine.SetMood(*mood, 0); err != nil {
		fmt.Fprintf(os.Stderr, "unknown mood %q, available: %v\n", *mood, audio.MoodKeys())
		os.Exit(2)
	}
	engine.SetVolume(*volume)
	engine.SetPlaying(true)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *seconds > 0 {
		deadline = time.After(time.Duration(*seconds * float64(time.Second)))
	}

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	log.Printf("playing mood %q, ctrl-c to stop", engine.MoodKey())
	for {
		select {
		case <-ticker.C:
			engine.Update(ctx.CurrentTime())
		case <-sigc:
			engine.Dispose()
			return
		case <-deadline:
			engine.Dispose()
			return
		}
	}
}
