package audio

func init() {
	RegisterModule("shimmer", newShimmerModule)
}

// shimmerVoice is one detuned sine pair sharing a vibrato LFO.
type shimmerVoice struct {
	oscA    OscillatorNode
	oscB    OscillatorNode
	lfo     OscillatorNode
	lfoGain GainNode
}

// shimmerModule adds the high sparkle: sine pairs two octaves over the chord,
// slightly detuned against each other for beating, with a slow shared vibrato
// and a bandpass keeping them out of the midrange.
type shimmerModule struct {
	baseModule

	voices []shimmerVoice
	filter BiquadFilterNode
	params MoodParams
}

func newShimmerModule(env ModuleEnv) Module {
	return &shimmerModule{baseModule: baseModule{env: env}}
}

func (m *shimmerModule) voiceFreqs() []float64 {
	notes := m.params.Chord
	if len(notes) == 0 {
		notes = scaleFreqs(m.params)
	}
	freqs := make([]float64, 0, 2)
	for i := 0; i < 2 && i < len(notes); i++ {
		freqs = append(freqs, notes[i]*4)
	}
	return freqs
}

func (m *shimmerModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.params = p
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.ShimmerVolumeMax), p.Attack, p.Release)

	cfg := m.env.Cfg
	if m.filter = m.env.Ctx.CreateBiquadFilter(); m.filter == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "shimmer", Op: "build", Err: errNodeCreate}
	}
	m.own(m.filter)
	m.filter.SetFilterType("bandpass")
	m.filter.Q().SetValue(cfg.ShimmerFilterQ)
	m.filter.Connect(m.out)

	now := m.now()
	freqs := m.voiceFreqs()
	var sum float64
	for _, f := range freqs {
		sum += f
	}
	m.filter.Frequency().SetValue(sum / float64(len(freqs)))

	detune := MapDial(dial.Intensity, 1, 8)
	fail := func() error {
		m.releaseNodes(now)
		m.voices = nil
		m.filter = nil
		return &ModuleError{Key: "shimmer", Op: "build", Err: errNodeCreate}
	}
	for _, f := range freqs {
		oscA := m.env.Ctx.CreateOscillator()
		if oscA == nil {
			return fail()
		}
		m.ownSource(oscA)
		oscB := m.env.Ctx.CreateOscillator()
		if oscB == nil {
			return fail()
		}
		m.ownSource(oscB)
		lfo := m.env.Ctx.CreateOscillator()
		if lfo == nil {
			return fail()
		}
		m.ownSource(lfo)
		lfoGain := m.env.Ctx.CreateGain()
		if lfoGain == nil {
			return fail()
		}
		m.own(lfoGain)

		oscA.SetWaveform("sine")
		oscA.Frequency().SetValue(f)
		oscB.SetWaveform("sine")
		oscB.Frequency().SetValue(f)
		oscB.Detune().SetValue(detune)

		lfo.SetWaveform("sine")
		lfo.Frequency().SetValue(cfg.ShimmerVibratoRate * (1 + m.env.Rand.Jitter(0.5)))
		lfoGain.Gain().SetValue(cfg.ShimmerVibratoCent * f / 1200)
		lfo.Connect(lfoGain)
		lfoGain.ConnectParam(oscA.Frequency())
		lfoGain.ConnectParam(oscB.Frequency())

		oscA.Connect(m.filter)
		oscB.Connect(m.filter)
		oscA.Start(now)
		oscB.Start(now)
		lfo.Start(now)

		m.voices = append(m.voices, shimmerVoice{oscA: oscA, oscB: oscB, lfo: lfo, lfoGain: lfoGain})
	}
	return nil
}

func (m *shimmerModule) Play(startTime float64) {
	m.playBase(startTime)
}

func (m *shimmerModule) Stop(stopTime, fadeHint float64) {
	m.stopBase(stopTime, fadeHint)
}

func (m *shimmerModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.filter == nil {
		return nil
	}
	m.params = p
	now := m.now()
	ramp := transition * m.env.Cfg.ParamRampFrac
	m.attack = p.Attack
	m.release = p.Release

	freqs := m.voiceFreqs()
	detune := MapDial(dial.Intensity, 1, 8)
	var sum float64
	for i, v := range m.voices {
		f := freqs[i%len(freqs)]
		sum += f
		fa := v.oscA.Frequency()
		fa.CancelAndHoldAtTime(now)
		fa.LinearRampToValueAtTime(f, now+ramp)
		fb := v.oscB.Frequency()
		fb.CancelAndHoldAtTime(now)
		fb.LinearRampToValueAtTime(f, now+ramp)
		v.oscB.Detune().SetTargetAtTime(detune, now, ramp/3)
		v.lfoGain.Gain().SetTargetAtTime(m.env.Cfg.ShimmerVibratoCent*f/1200, now, ramp/3)
	}
	if len(freqs) > 0 {
		cf := m.filter.Frequency()
		cf.CancelAndHoldAtTime(now)
		cf.SetTargetAtTime(sum/float64(len(freqs)), now, ramp/3)
	}
	m.rampLevel(MapDial(dial.Volume, 0, m.env.Cfg.ShimmerVolumeMax), now, ramp)
	return nil
}

func (m *shimmerModule) Update(Frame) {}

func (m *shimmerModule) Dispose() {
	m.voices = nil
	m.filter = nil
	m.disposeBase()
}

func (m *shimmerModule) ReleaseTail() float64 {
	return m.release
}
