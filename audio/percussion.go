package audio

func init() {
	RegisterModule("percussion", newPercussionModule)
}

// percHit is one sounding noise burst, tracked so Dispose can sweep bursts
// whose cleanup has not fired yet.
type percHit struct {
	noise   NoiseNode
	filter  BiquadFilterNode
	gain    GainNode
	cleanup *ScheduledEvent
	done    bool
}

// percussionModule steps through the mood's rhythm pattern on a 16th grid and
// spawns a filtered noise burst for each step that rolls under its
// probability. Timing is humanized with a small jitter around the grid.
type percussionModule struct {
	baseModule

	params  MoodParams
	dial    ModuleDial
	stepIdx int
	armed   *ScheduledEvent
	active  map[*percHit]struct{}
}

func newPercussionModule(env ModuleEnv) Module {
	return &percussionModule{
		baseModule: baseModule{env: env},
		active:     map[*percHit]struct{}{},
	}
}

// defaultRhythm backs moods that enable percussion without shipping a
// pattern: a sparse pulse on the downbeats.
var defaultRhythm = []RhythmStep{
	{Probability: 0.9, Velocity: 1.0}, {}, {}, {},
	{Probability: 0.3, Velocity: 0.5}, {}, {}, {},
	{Probability: 0.7, Velocity: 0.8}, {}, {}, {},
	{Probability: 0.3, Velocity: 0.5}, {}, {Probability: 0.2, Velocity: 0.4}, {},
}

func (m *percussionModule) rhythm() []RhythmStep {
	if len(m.params.Rhythm) > 0 {
		return m.params.Rhythm
	}
	return defaultRhythm
}

func (m *percussionModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.params = p
	m.dial = dial
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.PercVolumeMax), p.Attack, p.Release)
	return nil
}

func (m *percussionModule) Play(startTime float64) {
	if !m.playBase(startTime) {
		return
	}
	m.armNext(startTime + stepDuration(m.params))
}

func (m *percussionModule) Stop(stopTime, fadeHint float64) {
	if !m.stopBase(stopTime, fadeHint) {
		return
	}
	m.pending.Cancel(m.armed)
	m.armed = nil
}

func (m *percussionModule) armNext(t float64) {
	m.armed = m.pending.At(m.env.Sched, t-m.env.Cfg.Lookahead, func() {
		m.fireStep(t)
	})
}

func (m *percussionModule) fireStep(t float64) {
	m.armed = nil
	if !m.playing || m.disposed {
		return
	}
	pattern := m.rhythm()
	step := pattern[m.stepIdx%len(pattern)]
	m.stepIdx++

	p := step.Probability * MapDial(m.dial.Occurrence, 0.2, 1.0)
	if p > 0 && m.env.Rand.Chance(p) {
		m.spawnHit(t+m.env.Rand.Jitter(m.env.Cfg.PercJitter), step.Velocity)
	}

	next := t + stepDuration(m.params)
	if now := m.now(); next < now {
		next = now
	}
	m.armNext(next)
}

// spawnHit builds one noise burst: noise source through a bandpass whose
// center drops with intensity into a short exponential-decay gain.
func (m *percussionModule) spawnHit(t, velocity float64) {
	cfg := m.env.Cfg
	noise := m.env.Ctx.CreateNoise()
	filter := m.env.Ctx.CreateBiquadFilter()
	gain := m.env.Ctx.CreateGain()
	if noise == nil || filter == nil || gain == nil {
		for _, n := range []Node{noise, filter, gain} {
			if n != nil {
				n.Disconnect()
			}
		}
		return
	}
	m.ownSource(noise)
	m.own(filter)
	m.own(gain)

	center := MapDial(m.dial.Intensity, 2500, 600)
	filter.SetFilterType("bandpass")
	filter.Frequency().SetValue(center)
	filter.Q().SetValue(cfg.PercFilterQ)

	g := gain.Gain()
	g.SetValue(0)
	g.SetValueAtTime(velocity, t)
	g.SetTargetAtTime(0, t, cfg.PercDecay/4)

	noise.Connect(filter)
	filter.Connect(gain)
	gain.Connect(m.out)

	end := t + cfg.PercDecay
	noise.Start(t)
	noise.Stop(end)

	hit := &percHit{noise: noise, filter: filter, gain: gain}
	m.active[hit] = struct{}{}
	hit.cleanup = m.pending.At(m.env.Sched, end+0.05, func() {
		m.reapHit(hit)
	})
}

func (m *percussionModule) reapHit(hit *percHit) {
	if hit.done {
		return
	}
	hit.done = true
	delete(m.active, hit)
	m.disown(hit.noise)
	m.disown(hit.filter)
	m.disown(hit.gain)
}

func (m *percussionModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.out == nil {
		return nil
	}
	m.params = p
	m.dial = dial
	if p.ResetPatterns {
		m.stepIdx = 0
	}
	m.attack = p.Attack
	m.release = p.Release
	m.rampLevel(MapDial(dial.Volume, 0, m.env.Cfg.PercVolumeMax), m.now(), transition*m.env.Cfg.ParamRampFrac)
	return nil
}

func (m *percussionModule) Update(Frame) {}

func (m *percussionModule) Dispose() {
	m.armed = nil
	for hit := range m.active {
		m.reapHit(hit)
	}
	m.active = nil
	m.disposeBase()
}

func (m *percussionModule) ReleaseTail() float64 {
	return m.env.Cfg.PercDecay
}
