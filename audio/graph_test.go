package audio

// The fakes below stand in for a real audio backend: every node and param
// records what was done to it, and the clock is advanced by hand. All
// engine and module tests run against these.

type fakeParam struct {
	value float64
	calls []string
	ramps int
}

func (p *fakeParam) Value() float64 { return p.value }

func (p *fakeParam) SetValue(v float64) {
	p.value = v
	p.calls = append(p.calls, "set")
}

func (p *fakeParam) SetValueAtTime(v, t float64) {
	p.value = v
	p.calls = append(p.calls, "setAt")
}

func (p *fakeParam) LinearRampToValueAtTime(v, t float64) {
	p.value = v
	p.ramps++
	p.calls = append(p.calls, "ramp")
}

func (p *fakeParam) SetTargetAtTime(v, t, tc float64) {
	p.value = v
	p.calls = append(p.calls, "target")
}

func (p *fakeParam) CancelAndHoldAtTime(t float64) {
	p.calls = append(p.calls, "cancelHold")
}

// lastCalls returns the tail of the recorded call log.
func (p *fakeParam) lastCalls(n int) []string {
	if len(p.calls) < n {
		return p.calls
	}
	return p.calls[len(p.calls)-n:]
}

type fakeNode struct {
	kind         string
	params       map[string]*fakeParam
	connections  int
	disconnected bool
	started      bool
	stopped      bool
	startAt      float64
	stopAt       float64
	waveform     string
	filterType   string
	impulses     int
}

func (n *fakeNode) param(name string) *fakeParam {
	if n.params == nil {
		n.params = map[string]*fakeParam{}
	}
	p, ok := n.params[name]
	if !ok {
		p = &fakeParam{}
		n.params[name] = p
	}
	return p
}

func (n *fakeNode) Connect(dst Node)        { n.connections++ }
func (n *fakeNode) ConnectParam(p Param)    { n.connections++ }
func (n *fakeNode) Disconnect()             { n.disconnected = true }
func (n *fakeNode) Start(t float64)         { n.started = true; n.startAt = t }
func (n *fakeNode) Stop(t float64)          { n.stopped = true; n.stopAt = t }
func (n *fakeNode) Gain() Param             { return n.param("gain") }
func (n *fakeNode) SetWaveform(w string)    { n.waveform = w }
func (n *fakeNode) Frequency() Param        { return n.param("frequency") }
func (n *fakeNode) Detune() Param           { return n.param("detune") }
func (n *fakeNode) SetFilterType(ft string) { n.filterType = ft }
func (n *fakeNode) Q() Param                { return n.param("Q") }
func (n *fakeNode) DelayTime() Param        { return n.param("delayTime") }
func (n *fakeNode) Pan() Param              { return n.param("pan") }
func (n *fakeNode) Threshold() Param        { return n.param("threshold") }
func (n *fakeNode) Ratio() Param            { return n.param("ratio") }
func (n *fakeNode) Knee() Param             { return n.param("knee") }
func (n *fakeNode) Attack() Param           { return n.param("attack") }
func (n *fakeNode) Release() Param          { return n.param("release") }

func (n *fakeNode) SetImpulse(seconds, decay float64) { n.impulses++ }

type fakeContext struct {
	now     float64
	state   ContextState
	nodes   []*fakeNode
	dest    *fakeNode
	resumes []func()
	closed  bool

	// failAfter > 0 makes every creation past that count return nil, to
	// exercise construction rollback paths.
	failAfter int
}

func newFakeContext() *fakeContext {
	c := &fakeContext{state: StateRunning}
	c.dest = &fakeNode{kind: "destination"}
	return c
}

func (c *fakeContext) create(kind string) *fakeNode {
	if c.failAfter > 0 && len(c.nodes) >= c.failAfter {
		return nil
	}
	n := &fakeNode{kind: kind}
	c.nodes = append(c.nodes, n)
	return n
}

func (c *fakeContext) CreateGain() GainNode {
	if n := c.create("gain"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateOscillator() OscillatorNode {
	if n := c.create("oscillator"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateBiquadFilter() BiquadFilterNode {
	if n := c.create("biquad"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateDelay(maxDelay float64) DelayNode {
	if n := c.create("delay"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateNoise() NoiseNode {
	if n := c.create("noise"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateStereoPanner() StereoPannerNode {
	if n := c.create("panner"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateCompressor() CompressorNode {
	if n := c.create("compressor"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateConvolver() ConvolverNode {
	if n := c.create("convolver"); n != nil {
		return n
	}
	return nil
}

func (c *fakeContext) CreateAnalyser() AnalyserNode {
	if n := c.create("analyser"); n != nil {
		return n
	}
	return nil
}

func (n *fakeNode) BandEnergies() (bass, mid, treble float64) {
	return bandSource.bass, bandSource.mid, bandSource.treble
}

func (n *fakeNode) Peak() float64 {
	return bandSource.peak
}

// bandSource is shared analyser backing state; tests set it before Update.
var bandSource struct {
	bass, mid, treble, peak float64
}

func (c *fakeContext) Destination() Node    { return c.dest }
func (c *fakeContext) CurrentTime() float64 { return c.now }
func (c *fakeContext) SampleRate() float64  { return 44100 }
func (c *fakeContext) State() ContextState  { return c.state }

func (c *fakeContext) Resume(onResumed func()) {
	if c.state == StateRunning {
		if onResumed != nil {
			onResumed()
		}
		return
	}
	if onResumed != nil {
		c.resumes = append(c.resumes, onResumed)
	}
}

// finishResume flips a suspended context to running and delivers the queued
// callbacks, like a user gesture would.
func (c *fakeContext) finishResume() {
	c.state = StateRunning
	cbs := c.resumes
	c.resumes = nil
	for _, cb := range cbs {
		cb()
	}
}

func (c *fakeContext) Close() { c.closed = true }

func (c *fakeContext) advance(dt float64) { c.now += dt }

// leakedNodes returns every created node that was never disconnected.
func (c *fakeContext) leakedNodes() []*fakeNode {
	var leaked []*fakeNode
	for _, n := range c.nodes {
		if !n.disconnected {
			leaked = append(leaked, n)
		}
	}
	return leaked
}
