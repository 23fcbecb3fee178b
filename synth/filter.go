package synth

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/driftscape/driftscape/audio"
)

// biquadFilterNode wraps an RBJ biquad section, redesigning coefficients at
// control rate when the frequency or Q parameters move.
type biquadFilterNode struct {
	baseNode
	filterType string
	frequency  *param
	q          *param
	section    *biquad.Section

	lastFreq float64
	lastQ    float64
}

func newBiquadFilterNode(c *Context) *biquadFilterNode {
	n := &biquadFilterNode{
		baseNode:   newBaseNode(c),
		filterType: "lowpass",
		frequency:  newParam(c, 350),
		q:          newParam(c, 1),
		section:    biquad.NewSection(design.Lowpass(350, 1, c.sampleRate)),
		lastFreq:   350,
		lastQ:      1,
	}
	n.self = n
	return n
}

func (n *biquadFilterNode) SetFilterType(ft string) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.filterType = ft
	n.redesign(n.lastFreq, n.lastQ)
}

func (n *biquadFilterNode) Frequency() audio.Param { return n.frequency }
func (n *biquadFilterNode) Q() audio.Param         { return n.q }

func (n *biquadFilterNode) redesign(freq, q float64) {
	sr := n.ctx.sampleRate
	if freq <= 0 {
		freq = 1
	}
	if freq >= sr/2 {
		freq = sr/2 - 1
	}
	if q <= 0 {
		q = 0.0001
	}
	var coeffs biquad.Coefficients
	switch n.filterType {
	case "highpass":
		coeffs = design.Highpass(freq, q, sr)
	case "bandpass":
		coeffs = design.Bandpass(freq, q, sr)
	default:
		coeffs = design.Lowpass(freq, q, sr)
	}
	n.section.Coefficients = coeffs
	n.lastFreq = freq
	n.lastQ = q
}

func (n *biquadFilterNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	in := n.mixInputs(blockID)

	freq := n.frequency.scalar(blockID, start)
	q := n.q.scalar(blockID, start)
	if freq != n.lastFreq || q != n.lastQ {
		n.redesign(freq, q)
	}

	n.section.ProcessBlockTo(n.out, in)
	return n.out
}
