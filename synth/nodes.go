package synth

import (
	"math"

	"github.com/driftscape/driftscape/audio"
)

// baseNode carries the graph plumbing every node shares: input mixing,
// fan-out caching and connection bookkeeping. self is the concrete node, so
// connections register the outer type rather than the embedded base.
type baseNode struct {
	ctx          *Context
	self         renderer
	inputs       []renderer
	targets      []*baseNode
	paramTargets []*param
	out          []float64
	in           []float64
	lastBlock    uint64
}

func newBaseNode(c *Context) baseNode {
	return baseNode{
		ctx: c,
		out: make([]float64, blockSize),
		in:  make([]float64, blockSize),
	}
}

type graphNode interface {
	base() *baseNode
}

func (n *baseNode) base() *baseNode { return n }

func (n *baseNode) Connect(dst audio.Node) {
	g, ok := dst.(graphNode)
	if !ok {
		return
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	b := g.base()
	b.inputs = append(b.inputs, n.self)
	n.targets = append(n.targets, b)
}

func (n *baseNode) ConnectParam(p audio.Param) {
	sp, ok := p.(*param)
	if !ok {
		return
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	sp.addMod(n.self)
	n.paramTargets = append(n.paramTargets, sp)
}

func (n *baseNode) Disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, b := range n.targets {
		for i, in := range b.inputs {
			if in == n.self {
				b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
				break
			}
		}
	}
	for _, p := range n.paramTargets {
		p.removeMod(n.self)
	}
	n.targets = nil
	n.paramTargets = nil
}

// beginBlock reports whether this block still needs rendering, claiming it
// if so.
func (n *baseNode) beginBlock(blockID uint64) bool {
	if n.lastBlock == blockID {
		return false
	}
	n.lastBlock = blockID
	return true
}

// mixInputs sums every input's block into the node's input scratch buffer.
func (n *baseNode) mixInputs(blockID uint64) []float64 {
	for i := range n.in {
		n.in[i] = 0
	}
	for _, src := range n.inputs {
		block := src.render(blockID)
		for i := range n.in {
			n.in[i] += block[i]
		}
	}
	return n.in
}

func (n *baseNode) blockStart() float64 {
	return n.ctx.now()
}

// destNode is the context's terminal sink: a unity mix of its inputs.
type destNode struct {
	baseNode
}

func (n *destNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	in := n.mixInputs(blockID)
	copy(n.out, in)
	return n.out
}

type gainNode struct {
	baseNode
	gain *param
}

func newGainNode(c *Context) *gainNode {
	n := &gainNode{baseNode: newBaseNode(c), gain: newParam(c, 1)}
	n.self = n
	return n
}

func (n *gainNode) Gain() audio.Param { return n.gain }

func (n *gainNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	in := n.mixInputs(blockID)
	g := n.gain.fill(blockID, start)
	for i := range n.out {
		n.out[i] = in[i] * g[i]
	}
	return n.out
}

type oscillatorNode struct {
	baseNode
	waveform  string
	frequency *param
	detune    *param
	phase     float64
	startTime float64
	stopTime  float64
}

func newOscillatorNode(c *Context) *oscillatorNode {
	n := &oscillatorNode{
		baseNode:  newBaseNode(c),
		waveform:  "sine",
		frequency: newParam(c, 440),
		detune:    newParam(c, 0),
		startTime: math.Inf(1),
		stopTime:  math.Inf(1),
	}
	n.self = n
	return n
}

func (n *oscillatorNode) Frequency() audio.Param { return n.frequency }
func (n *oscillatorNode) Detune() audio.Param    { return n.detune }

func (n *oscillatorNode) SetWaveform(w string) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.waveform = w
}

func (n *oscillatorNode) Start(t float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.startTime = t
}

func (n *oscillatorNode) Stop(t float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.stopTime = t
}

func (n *oscillatorNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	sr := n.ctx.sampleRate
	freq := n.frequency.fill(blockID, start)
	det := n.detune.fill(blockID, start)
	for i := range n.out {
		t := start + float64(i)/sr
		if t < n.startTime || t >= n.stopTime {
			n.out[i] = 0
			continue
		}
		f := freq[i] * math.Pow(2, det[i]/1200)
		n.phase += f / sr
		n.phase -= math.Floor(n.phase)
		n.out[i] = waveSample(n.waveform, n.phase)
	}
	return n.out
}

func waveSample(waveform string, phase float64) float64 {
	switch waveform {
	case "square":
		if phase < 0.5 {
			return 1
		}
		return -1
	case "sawtooth":
		return 2*phase - 1
	case "triangle":
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// noiseNode is a white noise source driven by a 64-bit LCG, one step per
// sample.
type noiseNode struct {
	baseNode
	lcg       uint64
	startTime float64
	stopTime  float64
}

func newNoiseNode(c *Context) *noiseNode {
	n := &noiseNode{
		baseNode:  newBaseNode(c),
		lcg:       0x2545F491,
		startTime: math.Inf(1),
		stopTime:  math.Inf(1),
	}
	n.self = n
	return n
}

func (n *noiseNode) Start(t float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.startTime = t
}

func (n *noiseNode) Stop(t float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.stopTime = t
}

func (n *noiseNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	sr := n.ctx.sampleRate
	for i := range n.out {
		t := start + float64(i)/sr
		if t < n.startTime || t >= n.stopTime {
			n.out[i] = 0
			continue
		}
		n.lcg = n.lcg*6364136223846793005 + 1442695040888963407
		n.out[i] = float64(int64(n.lcg>>11))/float64(1<<52) - 1
	}
	return n.out
}

// stereoPannerNode records the pan position. The render pipeline is mono, so
// panning only attenuates with an equal-power law toward the edges.
type stereoPannerNode struct {
	baseNode
	pan *param
}

func newStereoPannerNode(c *Context) *stereoPannerNode {
	n := &stereoPannerNode{baseNode: newBaseNode(c), pan: newParam(c, 0)}
	n.self = n
	return n
}

func (n *stereoPannerNode) Pan() audio.Param { return n.pan }

func (n *stereoPannerNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	in := n.mixInputs(blockID)
	pan := n.pan.fill(blockID, start)
	for i := range n.out {
		p := pan[i]
		if p < -1 {
			p = -1
		}
		if p > 1 {
			p = 1
		}
		n.out[i] = in[i] * math.Cos(math.Abs(p)*math.Pi/4)
	}
	return n.out
}

type delayNode struct {
	baseNode
	delayTime *param
	ring      []float64
	writePos  int
}

func newDelayNode(c *Context, maxDelay float64) *delayNode {
	size := int(maxDelay * c.sampleRate)
	if size < 1 {
		size = 1
	}
	n := &delayNode{
		baseNode:  newBaseNode(c),
		delayTime: newParam(c, 0),
		ring:      make([]float64, size),
	}
	n.self = n
	return n
}

func (n *delayNode) DelayTime() audio.Param { return n.delayTime }

func (n *delayNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	in := n.mixInputs(blockID)
	delay := int(n.delayTime.scalar(blockID, start) * n.ctx.sampleRate)
	if delay < 0 {
		delay = 0
	}
	if delay >= len(n.ring) {
		delay = len(n.ring) - 1
	}
	for i := range n.out {
		readPos := n.writePos - delay
		if readPos < 0 {
			readPos += len(n.ring)
		}
		n.out[i] = n.ring[readPos]
		n.ring[n.writePos] = in[i]
		n.writePos++
		if n.writePos >= len(n.ring) {
			n.writePos = 0
		}
	}
	return n.out
}
