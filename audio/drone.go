package audio

func init() {
	RegisterModule("drone", newDroneModule)
}

// droneModule is the sub-bass drone: one sine an octave under the mood's
// root with a slow pitch wobble. The simplest continuous module.
type droneModule struct {
	baseModule

	osc      OscillatorNode
	lfo      OscillatorNode
	lfoGain  GainNode
	baseFreq float64
}

func newDroneModule(env ModuleEnv) Module {
	return &droneModule{baseModule: baseModule{env: env}}
}

func (m *droneModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.DroneVolumeMax), p.Attack, p.Release)
	m.baseFreq = droneFreq(p)

	if m.osc = m.env.Ctx.CreateOscillator(); m.osc == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "drone", Op: "build", Err: errNodeCreate}
	}
	m.ownSource(m.osc)
	if m.lfo = m.env.Ctx.CreateOscillator(); m.lfo == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "drone", Op: "build", Err: errNodeCreate}
	}
	m.ownSource(m.lfo)
	if m.lfoGain = m.env.Ctx.CreateGain(); m.lfoGain == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "drone", Op: "build", Err: errNodeCreate}
	}
	m.own(m.lfoGain)

	m.osc.SetWaveform("sine")
	m.osc.Frequency().SetValue(m.baseFreq)

	// Wobble depth scales with intensity.
	m.lfo.SetWaveform("sine")
	m.lfo.Frequency().SetValue(m.env.Cfg.DroneWobbleHz)
	m.lfoGain.Gain().SetValue(MapDial(dial.Intensity, 0, m.env.Cfg.DroneWobble))
	m.lfo.Connect(m.lfoGain)
	m.lfoGain.ConnectParam(m.osc.Frequency())

	m.osc.Connect(m.out)

	now := m.now()
	m.osc.Start(now)
	m.lfo.Start(now)
	return nil
}

func droneFreq(p MoodParams) float64 {
	f := p.BaseFreq
	if f <= 0 {
		f = 55
	}
	// Keep the drone in sub territory.
	for f > 80 {
		f /= 2
	}
	return f
}

func (m *droneModule) Play(startTime float64) {
	m.playBase(startTime)
}

func (m *droneModule) Stop(stopTime, fadeHint float64) {
	m.stopBase(stopTime, fadeHint)
}

func (m *droneModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.osc == nil {
		return nil
	}
	now := m.now()
	ramp := transition * m.env.Cfg.ParamRampFrac
	m.attack = p.Attack
	m.release = p.Release
	m.baseFreq = droneFreq(p)

	f := m.osc.Frequency()
	f.CancelAndHoldAtTime(now)
	f.SetTargetAtTime(m.baseFreq, now, ramp/3)
	m.lfoGain.Gain().SetTargetAtTime(MapDial(dial.Intensity, 0, m.env.Cfg.DroneWobble), now, ramp/3)
	m.rampLevel(MapDial(dial.Volume, 0, m.env.Cfg.DroneVolumeMax), now, ramp)
	return nil
}

func (m *droneModule) Update(Frame) {}

func (m *droneModule) Dispose() {
	m.osc = nil
	m.lfo = nil
	m.lfoGain = nil
	m.disposeBase()
}

func (m *droneModule) ReleaseTail() float64 {
	return m.release
}
