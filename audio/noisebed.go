package audio

func init() {
	RegisterModule("noisebed", newNoisebedModule)
}

// noisebedModule is the textural floor: looped noise through a bandpass whose
// center drifts slowly each frame. The only module that does real work in
// Update.
type noisebedModule struct {
	baseModule

	noise  NoiseNode
	filter BiquadFilterNode

	params MoodParams
	dial   ModuleDial
	center float64
	drift  float64
}

func newNoisebedModule(env ModuleEnv) Module {
	return &noisebedModule{baseModule: baseModule{env: env}}
}

func (m *noisebedModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.params = p
	m.dial = dial
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, m.env.Cfg.NoiseVolumeMax), p.Attack, p.Release)

	if m.noise = m.env.Ctx.CreateNoise(); m.noise == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "noisebed", Op: "build", Err: errNodeCreate}
	}
	m.ownSource(m.noise)
	if m.filter = m.env.Ctx.CreateBiquadFilter(); m.filter == nil {
		m.releaseNodes(m.now())
		return &ModuleError{Key: "noisebed", Op: "build", Err: errNodeCreate}
	}
	m.own(m.filter)

	m.center = (p.FilterMin + p.FilterMax) / 2
	m.drift = m.env.Cfg.NoiseDriftRate * MapDial(dial.Intensity, 0.2, 1.5)

	m.filter.SetFilterType("bandpass")
	m.filter.Frequency().SetValue(m.center)
	m.filter.Q().SetValue(m.env.Cfg.NoiseFilterQ)

	m.noise.Connect(m.filter)
	m.filter.Connect(m.out)
	m.noise.Start(m.now())
	return nil
}

func (m *noisebedModule) Play(startTime float64) {
	m.playBase(startTime)
}

func (m *noisebedModule) Stop(stopTime, fadeHint float64) {
	m.stopBase(stopTime, fadeHint)
}

func (m *noisebedModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	if m.disposed || m.filter == nil {
		return nil
	}
	m.params = p
	m.dial = dial
	m.drift = m.env.Cfg.NoiseDriftRate * MapDial(dial.Intensity, 0.2, 1.5)
	m.attack = p.Attack
	m.release = p.Release
	now := m.now()
	ramp := transition * m.env.Cfg.ParamRampFrac
	mid := (p.FilterMin + p.FilterMax) / 2
	f := m.filter.Frequency()
	f.CancelAndHoldAtTime(now)
	f.SetTargetAtTime(mid, now, ramp/3)
	m.center = mid
	m.rampLevel(MapDial(dial.Volume, 0, m.env.Cfg.NoiseVolumeMax), now, ramp)
	return nil
}

// Update wanders the bandpass center inside the mood's filter range with a
// bounded random walk.
func (m *noisebedModule) Update(f Frame) {
	if !m.playing || m.disposed || m.filter == nil {
		return
	}
	m.center += m.env.Rand.Jitter(m.drift) * f.Delta
	if m.center < m.params.FilterMin {
		m.center = m.params.FilterMin
	}
	if m.center > m.params.FilterMax {
		m.center = m.params.FilterMax
	}
	m.filter.Frequency().SetTargetAtTime(m.center, f.Now, 0.2)
}

func (m *noisebedModule) Dispose() {
	m.noise = nil
	m.filter = nil
	m.disposeBase()
}

func (m *noisebedModule) ReleaseTail() float64 {
	return m.release
}
