package audio

func init() {
	RegisterModule("bassline", newBasslineModule)
}

// basslineModule is the moving bass: three always-running oscillators (saw,
// sub-octave sine, detuned saw) through a resonant lowpass, with a recurring
// scheduled note-change event that glides the pitch and kicks the filter
// envelope. The oscillators never restart; only their parameters move.
type basslineModule struct {
	baseModule

	osc    OscillatorNode
	subOsc OscillatorNode
	detOsc OscillatorNode
	filter BiquadFilterNode

	params    MoodParams
	dial      ModuleDial
	noteIndex int
	armed     *ScheduledEvent
}

func newBasslineModule(env ModuleEnv) Module {
	return &basslineModule{baseModule: baseModule{env: env}}
}

func (m *basslineModule) notes() []float64 {
	if len(m.params.BassNotes) > 0 {
		return m.params.BassNotes
	}
	return scaleFreqs(m.params)
}

// noteDuration is two beats per bass note, for a half-time feel against the
// percussion grid.
func (m *basslineModule) noteDuration() float64 {
	return stepDuration(m.params) * 8
}

func (m *basslineModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.params = p
	m.dial = dial
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.BassVolumeMax), p.Attack, p.Release)

	if m.osc = m.env.Ctx.CreateOscillator(); m.osc == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "bassline", Op: "build", Err: errNodeCreate}
	}
	m.ownSource(m.osc)
	if m.subOsc = m.env.Ctx.CreateOscillator(); m.subOsc == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "bassline", Op: "build", Err: errNodeCreate}
	}
	m.ownSource(m.subOsc)
	if m.detOsc = m.env.Ctx.CreateOscillator(); m.detOsc == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "bassline", Op: "build", Err: errNodeCreate}
	}
	m.ownSource(m.detOsc)
	if m.filter = m.env.Ctx.CreateBiquadFilter(); m.filter == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "bassline", Op: "build", Err: errNodeCreate}
	}
	m.own(m.filter)

	first := m.notes()[0]
	m.osc.SetWaveform("sawtooth")
	m.osc.Frequency().SetValue(first)
	m.subOsc.SetWaveform("sine")
	m.subOsc.Frequency().SetValue(first / 2)
	m.detOsc.SetWaveform("sawtooth")
	m.detOsc.Frequency().SetValue(first)
	m.detOsc.Detune().SetValue(m.env.Cfg.BassDetune)

	m.filter.SetFilterType("lowpass")
	m.filter.Frequency().SetValue(m.params.FilterMin)
	m.filter.Q().SetValue(m.env.Cfg.BassFilterQ)

	m.osc.Connect(m.filter)
	m.detOsc.Connect(m.filter)
	m.filter.Connect(m.out)
	// Pure sine sub goes straight to the output gain.
	m.subOsc.Connect(m.out)

	now := m.now()
	m.osc.Start(now)
	m.subOsc.Start(now)
	m.detOsc.Start(now)
	return nil
}

func (m *basslineModule) Play(startTime float64) {
	if !m.playBase(startTime) {
		return
	}
	// Let the note the oscillators already hold sound first.
	m.armNext(startTime + m.noteDuration())
}

func (m *basslineModule) Stop(stopTime, fadeHint float64) {
	if !m.stopBase(stopTime, fadeHint) {
		return
	}
	m.pending.Cancel(m.armed)
	m.armed = nil
}

// armNext schedules the note change at absolute clock time t, waking up a
// lookahead early so the parameter ramps land on time.
func (m *basslineModule) armNext(t float64) {
	m.armed = m.pending.At(m.env.Sched, t-m.env.Cfg.Lookahead, func() {
		m.fireNote(t)
	})
}

func (m *basslineModule) fireNote(t float64) {
	m.armed = nil
	if !m.playing || m.disposed {
		return
	}
	cfg := m.env.Cfg
	notes := m.notes()
	freq := notes[m.noteIndex%len(notes)]

	// Portamento glide onto the new note.
	for _, osc := range []OscillatorNode{m.osc, m.detOsc} {
		f := osc.Frequency()
		f.CancelAndHoldAtTime(t)
		f.LinearRampToValueAtTime(freq, t+cfg.BassGlide)
	}
	sf := m.subOsc.Frequency()
	sf.CancelAndHoldAtTime(t)
	sf.LinearRampToValueAtTime(freq/2, t+cfg.BassGlide)

	// Filter envelope: open on the note change, then settle back.
	peak := MapDial(m.dial.Intensity, m.params.FilterMin, m.params.FilterMax)
	ff := m.filter.Frequency()
	ff.CancelAndHoldAtTime(t)
	ff.SetValueAtTime(peak, t)
	ff.SetTargetAtTime(m.params.FilterMin, t+0.05, 0.3)

	// Advance with hold/skip randomness; occurrence scales how often the
	// line actually moves.
	if m.env.Rand.Chance(MapDial(m.dial.Occurrence, 0.3, 1.0)) {
		if m.env.Rand.Chance(cfg.BassHoldChance) {
			// hold
		} else if m.env.Rand.Chance(cfg.BassSkipChance) {
			m.noteIndex = (m.noteIndex + 2) % len(notes)
		} else {
			m.noteIndex = (m.noteIndex + 1) % len(notes)
		}
	}

	// Next fire time comes off the absolute clock baseline, never earlier
	// than now, so jitter cannot accumulate into drift.
	step := m.noteDuration() * (1 + m.env.Rand.Jitter(0.125))
	next := t + step
	if now := m.now(); next < now {
		next = now
	}
	m.armNext(next)
}

func (m *basslineModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.osc == nil {
		return nil
	}
	m.params = p
	m.dial = dial
	if p.ResetPatterns {
		m.noteIndex = 0
	} else {
		m.noteIndex = m.noteIndex % len(m.notes())
	}
	now := m.now()
	ramp := transition * m.env.Cfg.ParamRampFrac
	m.attack = p.Attack
	m.release = p.Release
	ff := m.filter.Frequency()
	ff.CancelAndHoldAtTime(now)
	ff.SetTargetAtTime(p.FilterMin, now, ramp/3)
	m.rampLevel(MapDial(dial.Volume, 0, m.env.Cfg.BassVolumeMax), now, ramp)
	return nil
}

func (m *basslineModule) Update(Frame) {}

func (m *basslineModule) Dispose() {
	m.armed = nil
	m.osc = nil
	m.subOsc = nil
	m.detOsc = nil
	m.filter = nil
	m.disposeBase()
}

func (m *basslineModule) ReleaseTail() float64 {
	return m.release
}
