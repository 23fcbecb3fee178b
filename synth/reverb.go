package synth

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// combDelays are mutually prime tap lengths in seconds, Schroeder style.
var combDelays = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}

// convolverNode approximates the browser's impulse-response reverb with a
// bank of damped feedback combs. SetImpulse maps the duration and decay onto
// the comb feedback and damping instead of generating a buffer.
type convolverNode struct {
	baseNode
	combs    [4]combFilter
	feedback float64
	mix      float64
}

type combFilter struct {
	ring     []float64
	writePos int
	damp     *biquad.Section
}

func newConvolverNode(c *Context) *convolverNode {
	n := &convolverNode{baseNode: newBaseNode(c), feedback: 0.82, mix: 0.6}
	for i := range n.combs {
		size := int(combDelays[i] * c.sampleRate)
		if size < 1 {
			size = 1
		}
		n.combs[i] = combFilter{
			ring: make([]float64, size),
			damp: biquad.NewSection(design.Lowpass(4500, 0.7, c.sampleRate)),
		}
	}
	n.self = n
	return n
}

// SetImpulse derives the comb feedback from the requested RT60-like duration
// and tilts the damping with the decay exponent.
func (n *convolverNode) SetImpulse(seconds, decay float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if seconds < 0.1 {
		seconds = 0.1
	}
	// Feedback so a 30 ms comb loop decays 60 dB over the duration.
	n.feedback = math.Pow(10, -3*0.03/seconds)
	if n.feedback > 0.98 {
		n.feedback = 0.98
	}
	cutoff := 6000.0 / (1 + decay/2)
	for i := range n.combs {
		n.combs[i].damp.Coefficients = design.Lowpass(cutoff, 0.7, n.ctx.sampleRate)
	}
}

func (n *convolverNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	in := n.mixInputs(blockID)
	for i := range n.out {
		var wet float64
		for c := range n.combs {
			comb := &n.combs[c]
			delayed := comb.ring[comb.writePos]
			wet += delayed
			comb.ring[comb.writePos] = in[i] + comb.damp.ProcessSample(delayed)*n.feedback
			comb.writePos++
			if comb.writePos >= len(comb.ring) {
				comb.writePos = 0
			}
		}
		n.out[i] = wet * n.mix / float64(len(n.combs))
	}
	return n.out
}
