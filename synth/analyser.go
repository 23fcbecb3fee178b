package synth

import (
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
)

const analyserSize = 2048

// analyserNode taps the signal into a ring buffer and runs a windowed FFT
// on demand. It passes its input through unchanged so it can sit inline at
// the end of the master chain, like the browser analyser.
type analyserNode struct {
	baseNode
	ring     []float64
	writePos int
	win      []float64
	plan     *algofft.Plan[complex128]
	fftIn    []complex128
	fftOut   []complex128
}

func newAnalyserNode(c *Context) *analyserNode {
	plan, err := algofft.NewPlan64(analyserSize)
	if err != nil {
		plan = nil
	}
	n := &analyserNode{
		baseNode: newBaseNode(c),
		ring:     make([]float64, analyserSize),
		win:      window.Generate(window.TypeHann, analyserSize, window.WithPeriodic()),
		plan:     plan,
		fftIn:    make([]complex128, analyserSize),
		fftOut:   make([]complex128, analyserSize),
	}
	n.self = n
	return n
}

func (n *analyserNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	in := n.mixInputs(blockID)
	copy(n.out, in)
	for _, s := range in {
		n.ring[n.writePos] = s
		n.writePos++
		if n.writePos >= len(n.ring) {
			n.writePos = 0
		}
	}
	return n.out
}

// BandEnergies windows the most recent buffer, transforms it and averages
// the normalized magnitudes below 250 Hz, up to 2 kHz, and above.
func (n *analyserNode) BandEnergies() (bass, mid, treble float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if n.plan == nil {
		return 0, 0, 0
	}
	read := n.writePos
	for i := 0; i < analyserSize; i++ {
		n.fftIn[i] = complex(n.ring[read]*n.win[i], 0)
		read++
		if read >= analyserSize {
			read = 0
		}
	}
	if err := n.plan.Forward(n.fftOut, n.fftIn); err != nil {
		return 0, 0, 0
	}

	binHz := n.ctx.sampleRate / analyserSize
	bassEnd := int(250 / binHz)
	midEnd := int(2000 / binHz)
	if bassEnd < 1 {
		bassEnd = 1
	}
	if midEnd <= bassEnd {
		midEnd = bassEnd + 1
	}
	half := analyserSize / 2
	if midEnd > half {
		midEnd = half
	}

	band := func(from, to int) float64 {
		if to <= from {
			return 0
		}
		var s float64
		for k := from; k < to; k++ {
			s += cmplx.Abs(n.fftOut[k])
		}
		// Normalize to roughly [0, 1] for full-scale band-limited input.
		return math.Min(1, s/float64(to-from)/(analyserSize/8))
	}
	return band(0, bassEnd), band(bassEnd, midEnd), band(midEnd, half)
}

// Peak returns the largest magnitude in the ring buffer.
func (n *analyserNode) Peak() float64 {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	var peak float64
	for _, s := range n.ring {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}
