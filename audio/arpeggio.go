package audio

func init() {
	RegisterModule("arpeggio", newArpeggioModule)
}

// arpHit is one sounding arpeggio note: nodes allocated for this event only,
// released by its cleanup callback or by Dispose, whichever comes first.
type arpHit struct {
	osc     OscillatorNode
	gain    GainNode
	cleanup *ScheduledEvent
	done    bool
}

// arpeggioModule walks the mood scale with short plucked notes. Unlike the
// continuous modules it allocates an oscillator per note, so it exercises the
// event-owned-node path: every hit registers a cleanup callback and the module
// tracks live hits so Dispose can sweep whatever is still sounding.
type arpeggioModule struct {
	baseModule

	params    MoodParams
	dial      ModuleDial
	noteIndex int
	direction int
	armed     *ScheduledEvent
	active    map[*arpHit]struct{}
}

func newArpeggioModule(env ModuleEnv) Module {
	return &arpeggioModule{
		baseModule: baseModule{env: env},
		direction:  1,
		active:     map[*arpHit]struct{}{},
	}
}

func (m *arpeggioModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.params = p
	m.dial = dial
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.ArpVolumeMax), p.Attack, p.Release)
	return nil
}

// hitDuration is one step per note at double the bass rate.
func (m *arpeggioModule) hitDuration() float64 {
	return stepDuration(m.params) * 2
}

func (m *arpeggioModule) Play(startTime float64) {
	if !m.playBase(startTime) {
		return
	}
	m.armNext(startTime + m.hitDuration())
}

func (m *arpeggioModule) Stop(stopTime, fadeHint float64) {
	if !m.stopBase(stopTime, fadeHint) {
		return
	}
	// Cancel the recurrence only. Hits already sounding keep their own
	// release and cleanup; they decay under the closing output gain.
	m.pending.Cancel(m.armed)
	m.armed = nil
}

func (m *arpeggioModule) armNext(t float64) {
	m.armed = m.pending.At(m.env.Sched, t-m.env.Cfg.Lookahead, func() {
		m.fireHit(t)
	})
}

func (m *arpeggioModule) fireHit(t float64) {
	m.armed = nil
	if !m.playing || m.disposed {
		return
	}
	if m.env.Rand.Chance(MapDial(m.dial.Occurrence, 0.2, 0.95)) {
		m.spawnHit(t)
	}
	m.advance()

	next := t + m.hitDuration()
	if now := m.now(); next < now {
		next = now
	}
	m.armNext(next)
}

// spawnHit allocates the nodes for one note, schedules its envelope on the
// audio clock and arms the cleanup callback that releases them.
func (m *arpeggioModule) spawnHit(t float64) {
	cfg := m.env.Cfg
	osc := m.env.Ctx.CreateOscillator()
	gain := m.env.Ctx.CreateGain()
	if osc == nil || gain == nil {
		if osc != nil {
			osc.Disconnect()
		}
		if gain != nil {
			gain.Disconnect()
		}
		return
	}
	m.ownSource(osc)
	m.own(gain)

	notes := scaleFreqs(m.params)
	freq := notes[m.noteIndex%len(notes)]
	freq *= 1 + m.env.Rand.Jitter(cfg.ArpDetune)

	osc.SetWaveform("triangle")
	osc.Frequency().SetValue(freq)

	velocity := MapDial(m.dial.Intensity, 0.3, 1.0)
	g := gain.Gain()
	g.SetValue(0)
	g.SetValueAtTime(0, t)
	g.LinearRampToValueAtTime(velocity, t+cfg.ArpAttack)
	g.SetTargetAtTime(0, t+cfg.ArpAttack, cfg.ArpRelease/4)

	osc.Connect(gain)
	gain.Connect(m.out)

	end := t + cfg.ArpAttack + cfg.ArpRelease
	osc.Start(t)
	osc.Stop(end)

	hit := &arpHit{osc: osc, gain: gain}
	m.active[hit] = struct{}{}
	hit.cleanup = m.pending.At(m.env.Sched, end+0.05, func() {
		m.reapHit(hit)
	})
}

// reapHit releases one hit's nodes. Guarded against running twice: the
// cleanup callback and the dispose sweep can both reach a hit.
func (m *arpeggioModule) reapHit(hit *arpHit) {
	if hit.done {
		return
	}
	hit.done = true
	delete(m.active, hit)
	m.disown(hit.osc)
	m.disown(hit.gain)
}

// advance walks up and down the scale, occasionally jumping to a random note.
func (m *arpeggioModule) advance() {
	notes := scaleFreqs(m.params)
	if m.env.Rand.Chance(m.env.Cfg.ArpJumpChance) {
		m.noteIndex = m.env.Rand.Pick(len(notes))
		return
	}
	m.noteIndex += m.direction
	if m.noteIndex >= len(notes)-1 || m.noteIndex <= 0 {
		m.direction = -m.direction
	}
	if m.noteIndex < 0 {
		m.noteIndex = 0
	}
	if m.noteIndex >= len(notes) {
		m.noteIndex = len(notes) - 1
	}
}

func (m *arpeggioModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.out == nil {
		return nil
	}
	m.params = p
	m.dial = dial
	if p.ResetPatterns {
		m.noteIndex = 0
		m.direction = 1
	} else {
		m.noteIndex = m.noteIndex % len(scaleFreqs(p))
	}
	now := m.now()
	m.attack = p.Attack
	m.release = p.Release
	m.rampLevel(MapDial(dial.Volume, 0, m.env.Cfg.ArpVolumeMax), now, transition*m.env.Cfg.ParamRampFrac)
	return nil
}

func (m *arpeggioModule) Update(Frame) {}

// Dispose sweeps every hit still sounding before the base teardown. Cleanup
// events for swept hits are cancelled by the pending-set drain; the done flag
// covers the other order.
func (m *arpeggioModule) Dispose() {
	m.armed = nil
	for hit := range m.active {
		m.reapHit(hit)
	}
	m.active = nil
	m.disposeBase()
}

func (m *arpeggioModule) ReleaseTail() float64 {
	return m.env.Cfg.ArpAttack + m.env.Cfg.ArpRelease
}
