//go:build js
// +build js

// Package webaudio backs the engine's node interfaces with the browser's Web
// Audio API through GopherJS. Every wrapper is a thin shim over the native
// object; scheduling semantics come from the browser itself.
package webaudio

import (
	"github.com/gopherjs/gopherjs/js"

	"github.com/driftscape/driftscape/audio"
)

// Context wraps a native AudioContext.
type Context struct {
	obj *js.Object
}

// NewContext creates the browser audio context, falling back to the webkit
// prefix for older Safari. Returns nil if the API is missing entirely.
func NewContext() *Context {
	ctor := js.Global.Get("AudioContext")
	if ctor == js.Undefined {
		ctor = js.Global.Get("webkitAudioContext")
	}
	if ctor == js.Undefined {
		return nil
	}
	return &Context{obj: ctor.New()}
}

func (c *Context) CreateGain() audio.GainNode {
	return &gainNode{node{c.obj.Call("createGain")}}
}

func (c *Context) CreateOscillator() audio.OscillatorNode {
	return &oscillatorNode{node{c.obj.Call("createOscillator")}}
}

func (c *Context) CreateBiquadFilter() audio.BiquadFilterNode {
	return &biquadFilterNode{node{c.obj.Call("createBiquadFilter")}}
}

func (c *Context) CreateDelay(maxDelay float64) audio.DelayNode {
	return &delayNode{node{c.obj.Call("createDelay", maxDelay)}}
}

// CreateNoise builds a looped AudioBufferSourceNode over two seconds of
// white noise. The browser has no native noise source.
func (c *Context) CreateNoise() audio.NoiseNode {
	sampleRate := c.obj.Get("sampleRate").Int()
	length := sampleRate * 2
	buffer := c.obj.Call("createBuffer", 1, length, sampleRate)
	data := buffer.Call("getChannelData", 0)
	for i := 0; i < length; i++ {
		data.SetIndex(i, js.Global.Get("Math").Call("random").Float()*2-1)
	}
	src := c.obj.Call("createBufferSource")
	src.Set("buffer", buffer)
	src.Set("loop", true)
	return &noiseNode{node{src}}
}

func (c *Context) CreateStereoPanner() audio.StereoPannerNode {
	return &stereoPannerNode{node{c.obj.Call("createStereoPanner")}}
}

func (c *Context) CreateCompressor() audio.CompressorNode {
	return &compressorNode{node{c.obj.Call("createDynamicsCompressor")}}
}

func (c *Context) CreateConvolver() audio.ConvolverNode {
	return &convolverNode{node{c.obj.Call("createConvolver")}, c}
}

func (c *Context) CreateAnalyser() audio.AnalyserNode {
	obj := c.obj.Call("createAnalyser")
	obj.Set("fftSize", 2048)
	obj.Set("smoothingTimeConstant", 0.8)
	binCount := obj.Get("frequencyBinCount").Int()
	return &analyserNode{
		node:     node{obj},
		ctx:      c,
		freqData: js.Global.Get("Uint8Array").New(binCount),
		timeData: js.Global.Get("Uint8Array").New(obj.Get("fftSize").Int()),
	}
}

func (c *Context) Destination() audio.Node {
	return &node{c.obj.Get("destination")}
}

func (c *Context) CurrentTime() float64 {
	return c.obj.Get("currentTime").Float()
}

func (c *Context) SampleRate() float64 {
	return c.obj.Get("sampleRate").Float()
}

func (c *Context) State() audio.ContextState {
	switch c.obj.Get("state").String() {
	case "running":
		return audio.StateRunning
	case "closed":
		return audio.StateClosed
	default:
		return audio.StateSuspended
	}
}

func (c *Context) Resume(onResumed func()) {
	if c.State() == audio.StateRunning {
		if onResumed != nil {
			onResumed()
		}
		return
	}
	promise := c.obj.Call("resume")
	if onResumed != nil {
		promise.Call("then", func(*js.Object) {
			onResumed()
		})
	}
}

func (c *Context) Close() {
	if c.State() != audio.StateClosed {
		c.obj.Call("close")
	}
}

// node is the shared wrapper for every AudioNode.
type node struct {
	obj *js.Object
}

func (n *node) Connect(dst audio.Node) {
	n.obj.Call("connect", dst.(interface{ native() *js.Object }).native())
}

func (n *node) ConnectParam(p audio.Param) {
	n.obj.Call("connect", p.(*param).obj)
}

func (n *node) Disconnect() {
	// disconnect throws on some browsers if nothing is connected.
	defer func() { recover() }()
	n.obj.Call("disconnect")
}

func (n *node) native() *js.Object {
	return n.obj
}

// param wraps a native AudioParam.
type param struct {
	obj *js.Object
}

func (n *node) param(name string) audio.Param {
	return &param{obj: n.obj.Get(name)}
}

func (p *param) Value() float64 {
	return p.obj.Get("value").Float()
}

func (p *param) SetValue(v float64) {
	p.obj.Set("value", v)
}

func (p *param) SetValueAtTime(v, t float64) {
	p.obj.Call("setValueAtTime", v, t)
}

func (p *param) LinearRampToValueAtTime(v, t float64) {
	p.obj.Call("linearRampToValueAtTime", v, t)
}

func (p *param) SetTargetAtTime(v, t, timeConstant float64) {
	p.obj.Call("setTargetAtTime", v, t, timeConstant)
}

// CancelAndHoldAtTime falls back to cancelScheduledValues plus pinning the
// current value where the native method is missing (Firefox).
func (p *param) CancelAndHoldAtTime(t float64) {
	if p.obj.Get("cancelAndHoldAtTime") != js.Undefined {
		p.obj.Call("cancelAndHoldAtTime", t)
		return
	}
	held := p.obj.Get("value").Float()
	p.obj.Call("cancelScheduledValues", t)
	p.obj.Call("setValueAtTime", held, t)
}

type gainNode struct{ node }

func (n *gainNode) Gain() audio.Param { return n.param("gain") }

type oscillatorNode struct{ node }

func (n *oscillatorNode) SetWaveform(w string) { n.obj.Set("type", w) }
func (n *oscillatorNode) Frequency() audio.Param {
	return n.param("frequency")
}
func (n *oscillatorNode) Detune() audio.Param { return n.param("detune") }
func (n *oscillatorNode) Start(t float64)     { n.obj.Call("start", t) }
func (n *oscillatorNode) Stop(t float64) {
	// stop throws if the source never started or already stopped.
	defer func() { recover() }()
	n.obj.Call("stop", t)
}

type biquadFilterNode struct{ node }

func (n *biquadFilterNode) SetFilterType(ft string) { n.obj.Set("type", ft) }
func (n *biquadFilterNode) Frequency() audio.Param  { return n.param("frequency") }
func (n *biquadFilterNode) Q() audio.Param          { return n.param("Q") }

type delayNode struct{ node }

func (n *delayNode) DelayTime() audio.Param { return n.param("delayTime") }

type noiseNode struct{ node }

func (n *noiseNode) Start(t float64) { n.obj.Call("start", t) }
func (n *noiseNode) Stop(t float64) {
	defer func() { recover() }()
	n.obj.Call("stop", t)
}

type stereoPannerNode struct{ node }

func (n *stereoPannerNode) Pan() audio.Param { return n.param("pan") }

type compressorNode struct{ node }

func (n *compressorNode) Threshold() audio.Param { return n.param("threshold") }
func (n *compressorNode) Ratio() audio.Param     { return n.param("ratio") }
func (n *compressorNode) Knee() audio.Param      { return n.param("knee") }
func (n *compressorNode) Attack() audio.Param    { return n.param("attack") }
func (n *compressorNode) Release() audio.Param   { return n.param("release") }

type convolverNode struct {
	node
	ctx *Context
}

// SetImpulse generates an exponentially-decaying noise impulse response in
// place of a recorded one.
func (n *convolverNode) SetImpulse(seconds, decay float64) {
	sampleRate := n.ctx.obj.Get("sampleRate").Int()
	length := int(float64(sampleRate) * seconds)
	if length < 1 {
		length = 1
	}
	impulse := n.ctx.obj.Call("createBuffer", 2, length, sampleRate)
	math := js.Global.Get("Math")
	for channel := 0; channel < 2; channel++ {
		data := impulse.Call("getChannelData", channel)
		for i := 0; i < length; i++ {
			noise := math.Call("random").Float()*2 - 1
			progress := float64(i) / float64(length)
			envelope := math.Call("pow", 1-progress, decay).Float()
			data.SetIndex(i, noise*envelope)
		}
	}
	n.obj.Set("buffer", impulse)
}

type analyserNode struct {
	node
	ctx      *Context
	freqData *js.Object
	timeData *js.Object
}

// BandEnergies splits the FFT bins at 250 Hz and 2 kHz and averages the
// byte magnitudes of each band.
func (n *analyserNode) BandEnergies() (bass, mid, treble float64) {
	n.obj.Call("getByteFrequencyData", n.freqData)
	binCount := n.freqData.Get("length").Int()
	nyquist := n.ctx.SampleRate() / 2
	binHz := nyquist / float64(binCount)

	bassEnd := int(250 / binHz)
	midEnd := int(2000 / binHz)
	if bassEnd < 1 {
		bassEnd = 1
	}
	if midEnd <= bassEnd {
		midEnd = bassEnd + 1
	}
	if midEnd > binCount {
		midEnd = binCount
	}

	sum := func(from, to int) float64 {
		if to <= from {
			return 0
		}
		var s float64
		for i := from; i < to; i++ {
			s += n.freqData.Index(i).Float()
		}
		return s / float64(to-from) / 255
	}
	return sum(0, bassEnd), sum(bassEnd, midEnd), sum(midEnd, binCount)
}

func (n *analyserNode) Peak() float64 {
	n.obj.Call("getByteTimeDomainData", n.timeData)
	length := n.timeData.Get("length").Int()
	var peak float64
	for i := 0; i < length; i++ {
		v := (n.timeData.Index(i).Float() - 128) / 128
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
