package audio

import "math"

func init() {
	RegisterModule("pad", newPadModule)
}

// padVoice groups the nodes of one pad voice so a structural rebuild can
// tear down exactly the affected substructure.
type padVoice struct {
	osc     OscillatorNode
	filter  BiquadFilterNode
	lfo     OscillatorNode
	lfoGain GainNode
	gain    GainNode
}

// padModule is the atmospheric drone pad: detuned sawtooth voices, each with
// its own lowpass and a slow LFO sweeping the cutoff. The intensity dial
// decides the voice count, which makes it the module that exercises the
// structural rebuild path of ChangeMood.
type padModule struct {
	baseModule

	voices []padVoice
	params MoodParams
	dial   ModuleDial
}

func newPadModule(env ModuleEnv) Module {
	return &padModule{baseModule: baseModule{env: env}}
}

func (m *padModule) voiceCount(dial ModuleDial) int {
	span := float64(m.env.Cfg.PadVoicesMax - m.env.Cfg.PadVoicesMin)
	return m.env.Cfg.PadVoicesMin + int(math.Round(MapDial(dial.Intensity, 0, span)))
}

func (m *padModule) voiceFreq(i int) float64 {
	notes := m.params.Chord
	if len(notes) == 0 {
		notes = scaleFreqs(m.params)
	}
	f := notes[i%len(notes)]
	// Voices past the chord length move up an octave.
	if i >= len(notes) {
		f *= 2
	}
	return f
}

func (m *padModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.params = p
	m.dial = dial
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.PadVolumeMax), p.Attack, p.Release)
	if err := m.buildVoices(m.voiceCount(dial)); err != nil {
		m.releaseNodes(m.now())
		return err
	}
	return nil
}

func (m *padModule) buildVoices(count int) error {
	cfg := m.env.Cfg
	cutoff := MapDial(m.dial.Intensity, m.params.FilterMin, m.params.FilterMax)
	for i := 0; i < count; i++ {
		// Own each node as soon as it exists, so a creation failure
		// partway through rolls back everything already built.
		osc := m.env.Ctx.CreateOscillator()
		if osc == nil {
			return &ModuleError{Key: "pad", Op: "build", Err: errNodeCreate}
		}
		m.ownSource(osc)
		filter := m.env.Ctx.CreateBiquadFilter()
		if filter == nil {
			return &ModuleError{Key: "pad", Op: "build", Err: errNodeCreate}
		}
		m.own(filter)
		lfo := m.env.Ctx.CreateOscillator()
		if lfo == nil {
			return &ModuleError{Key: "pad", Op: "build", Err: errNodeCreate}
		}
		m.ownSource(lfo)
		lfoGain := m.env.Ctx.CreateGain()
		if lfoGain == nil {
			return &ModuleError{Key: "pad", Op: "build", Err: errNodeCreate}
		}
		m.own(lfoGain)
		gain := m.env.Ctx.CreateGain()
		if gain == nil {
			return &ModuleError{Key: "pad", Op: "build", Err: errNodeCreate}
		}
		m.own(gain)

		osc.SetWaveform("sawtooth")
		osc.Frequency().SetValue(m.voiceFreq(i))
		osc.Detune().SetValue(m.env.Rand.Jitter(cfg.PadDetuneCents))

		filter.SetFilterType("lowpass")
		filter.Frequency().SetValue(cutoff)
		filter.Q().SetValue(1)

		// Slow filter sweep, rate re-rolled per voice.
		lfo.SetWaveform("sine")
		lfo.Frequency().SetValue(cfg.PadFilterLFOHz + m.env.Rand.Random()*cfg.PadFilterLFOHz)
		lfoGain.Gain().SetValue(cfg.PadFilterMod)
		lfo.Connect(lfoGain)
		lfoGain.ConnectParam(filter.Frequency())

		gain.Gain().SetValue(1.0 / float64(count))

		osc.Connect(filter)
		filter.Connect(gain)
		gain.Connect(m.out)

		now := m.now()
		osc.Start(now)
		lfo.Start(now)

		m.voices = append(m.voices, padVoice{osc: osc, filter: filter, lfo: lfo, lfoGain: lfoGain, gain: gain})
	}
	return nil
}

func (m *padModule) Play(startTime float64) {
	m.playBase(startTime)
}

func (m *padModule) Stop(stopTime, fadeHint float64) {
	m.stopBase(stopTime, fadeHint)
}

func (m *padModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.out == nil {
		return nil
	}
	oldCount := len(m.voices)
	m.params = p
	m.dial = dial
	newCount := m.voiceCount(dial)
	now := m.now()
	level := MapDial(dial.Volume, 0, m.env.Cfg.PadVolumeMax)
	m.attack = p.Attack
	m.release = p.Release

	if newCount != oldCount {
		return m.rebuildVoices(newCount, now, level)
	}

	// Continuous change: ramp cutoffs and retune, re-rolling the detune
	// spread so repeat transitions to the same mood differ subtly.
	ramp := transition * m.env.Cfg.ParamRampFrac
	cutoff := MapDial(dial.Intensity, p.FilterMin, p.FilterMax)
	for i, v := range m.voices {
		f := v.filter.Frequency()
		f.CancelAndHoldAtTime(now)
		f.SetTargetAtTime(cutoff, now, ramp/3)
		fr := v.osc.Frequency()
		fr.CancelAndHoldAtTime(now)
		fr.LinearRampToValueAtTime(m.voiceFreq(i), now+ramp)
		v.osc.Detune().SetValueAtTime(m.env.Rand.Jitter(m.env.Cfg.PadDetuneCents), now)
	}
	m.rampLevel(level, now, ramp)
	return nil
}

// rebuildVoices tears down the voice substructure and rebuilds it at the new
// count. While playing, the output gain dips to zero across the rebuild so
// the restart stays inside the transition's fast-fade window.
func (m *padModule) rebuildVoices(count int, now, level float64) error {
	fade := m.env.Cfg.RebuildFade
	wasPlaying := m.playing

	old := m.voices
	m.voices = nil
	for _, v := range old {
		v.osc.Stop(now + fade)
		v.lfo.Stop(now + fade)
	}
	voices := old
	m.pending.At(m.env.Sched, now+fade+0.05, func() {
		for _, v := range voices {
			m.disown(v.osc)
			m.disown(v.lfo)
			m.disown(v.lfoGain)
			m.disown(v.filter)
			m.disown(v.gain)
		}
	})

	if err := m.buildVoices(count); err != nil {
		return err
	}

	m.level = level
	if wasPlaying {
		g := m.out.Gain()
		g.CancelAndHoldAtTime(now)
		g.LinearRampToValueAtTime(0, now+fade)
		g.LinearRampToValueAtTime(level, now+fade+m.attack)
	}
	return nil
}

func (m *padModule) Update(Frame) {}

func (m *padModule) Dispose() {
	m.voices = nil
	m.disposeBase()
}

func (m *padModule) ReleaseTail() float64 {
	return m.release
}
