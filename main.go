//go:build js
// +build js

package main

import (
	"github.com/gopherjs/gopherjs/js"

	"github.com/driftscape/driftscape/audio"
	"github.com/driftscape/driftscape/webaudio"
)

func main() {
	ctx := webaudio.NewContext()
	if ctx == nil {
		panic("Web Audio API not available")
	}

	seed := uint32(js.Global.Get("Date").Call("now").Int64())
	engine := audio.NewEngine(ctx, seed)
	if err := engine.Initialize(); err != nil {
		panic(err.Error())
	}
	if err := engine.SetMood(audio.DefaultMoodKey, 0); err != nil {
		panic(err.Error())
	}

	// Browsers keep the context suspended until a user gesture; the first
	// click or keypress starts playback.
	resume := func(*js.Object) {
		engine.SetPlaying(true)
	}
	js.Global.Get("document").Call("addEventListener", "click", resume)
	js.Global.Get("document").Call("addEventListener", "keydown", resume)

	// Drive the coordinator from the render loop.
	var frame func(float64)
	frame = func(float64) {
		js.Global.Call("requestAnimationFrame", frame)
		engine.Update(ctx.CurrentTime())
	}
	js.Global.Call("requestAnimationFrame", frame)

	// Control surface for the page.
	js.Global.Set("Driftscape", map[string]interface{}{
		"setMood": func(key string) bool {
			return engine.SetMood(key, 4.0) == nil
		},
		"setPlaying": func(playing bool) {
			engine.SetPlaying(playing)
		},
		"setVolume": func(volume float64) {
			engine.SetVolume(volume)
		},
		"mood": func() string {
			return engine.MoodKey()
		},
		"moods": func() []string {
			return audio.MoodKeys()
		},
		"modules": func() []string {
			return engine.LiveModules()
		},
		"analysis": func() map[string]interface{} {
			v := engine.GetAnalysisSnapshot()
			return map[string]interface{}{
				"movement":   v.Movement,
				"fluidity":   v.Fluidity,
				"dreaminess": v.Dreaminess,
				"intensity":  v.Intensity,
				"bass":       v.Bass,
				"mid":        v.Mid,
				"treble":     v.Treble,
				"beat":       v.Beat,
				"peakImpact": v.PeakImpact,
			}
		},
	})

	select {}
}
