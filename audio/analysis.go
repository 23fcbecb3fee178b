package audio

// VisualParams is the per-frame snapshot of audio-derived features the visual
// layer polls. The engine is the producer; interpretation belongs to the
// visual modules.
type VisualParams struct {
	// Smoothed mood feel scalars, 0-1.
	Movement   float64
	Fluidity   float64
	Dreaminess float64
	Intensity  float64

	// Raw band energies from the analysis tap, roughly 0-1.
	Bass   float64
	Mid    float64
	Treble float64

	// Beat is set for the single frame on which a bass transient was
	// detected.
	Beat bool

	// PeakImpact spikes with waveform peaks and decays over a few frames.
	PeakImpact float64
}

// analysisState smooths analyser readings and mood feel targets between
// frames.
type analysisState struct {
	snapshot VisualParams

	feelTarget   VisualParams
	bassAvg      float64 // trailing bass average for beat detection
	lastBeatTime float64
}

// setMoodFeel retargets the smoothed feel scalars from a mood's parameter
// bag. The actual values glide there over the following frames.
func (a *analysisState) setMoodFeel(p MoodParams) {
	a.feelTarget.Movement = p.Movement
	a.feelTarget.Fluidity = p.Fluidity
	a.feelTarget.Dreaminess = p.Dreaminess
	a.feelTarget.Intensity = p.Intensity
}

// update folds one frame of analyser readings into the snapshot.
func (a *analysisState) update(an AnalyserNode, cfg *Config, now, delta float64) {
	s := &a.snapshot

	// Exponential smoothing with per-second factors so the feel is frame
	// rate independent.
	fk := smoothingCoeff(cfg.FeelSmoothing, delta)
	s.Movement += (a.feelTarget.Movement - s.Movement) * fk
	s.Fluidity += (a.feelTarget.Fluidity - s.Fluidity) * fk
	s.Dreaminess += (a.feelTarget.Dreaminess - s.Dreaminess) * fk
	s.Intensity += (a.feelTarget.Intensity - s.Intensity) * fk

	s.Beat = false
	if an == nil {
		return
	}

	bass, mid, treble := an.BandEnergies()
	bk := smoothingCoeff(cfg.BandSmoothing, delta)
	s.Bass += (bass - s.Bass) * bk
	s.Mid += (mid - s.Mid) * bk
	s.Treble += (treble - s.Treble) * bk

	// Beat detection: a bass reading well above its trailing average, with
	// a refractory interval so one transient flags one frame.
	a.bassAvg += (bass - a.bassAvg) * smoothingCoeff(0.8, delta)
	if bass > a.bassAvg*cfg.BeatThreshold && bass > 0.05 &&
		now-a.lastBeatTime > cfg.BeatRefractory {
		s.Beat = true
		a.lastBeatTime = now
	}

	peak := an.Peak()
	if peak > s.PeakImpact {
		s.PeakImpact = peak
	} else {
		s.PeakImpact -= cfg.PeakDecay * delta * s.PeakImpact
		if s.PeakImpact < 0 {
			s.PeakImpact = 0
		}
	}
}

// smoothingCoeff converts a per-second rate into a per-frame blend factor.
func smoothingCoeff(rate, delta float64) float64 {
	k := rate * delta
	if k > 1 {
		k = 1
	}
	if k < 0 {
		k = 0
	}
	return k
}
