package synth

import (
	"math"

	"github.com/driftscape/driftscape/audio"
)

// compressorNode is a feed-forward compressor with a soft knee and
// per-sample envelope follower. With a high ratio and fast attack it serves
// as the chain limiter too.
type compressorNode struct {
	baseNode
	threshold *param
	ratio     *param
	knee      *param
	attack    *param
	release   *param

	envelope float64 // follower level in dB
}

func newCompressorNode(c *Context) *compressorNode {
	n := &compressorNode{
		baseNode:  newBaseNode(c),
		threshold: newParam(c, -24),
		ratio:     newParam(c, 12),
		knee:      newParam(c, 30),
		attack:    newParam(c, 0.003),
		release:   newParam(c, 0.25),
	}
	n.envelope = -120
	n.self = n
	return n
}

func (n *compressorNode) Threshold() audio.Param { return n.threshold }
func (n *compressorNode) Ratio() audio.Param     { return n.ratio }
func (n *compressorNode) Knee() audio.Param      { return n.knee }
func (n *compressorNode) Attack() audio.Param    { return n.attack }
func (n *compressorNode) Release() audio.Param   { return n.release }

func (n *compressorNode) render(blockID uint64) []float64 {
	if !n.beginBlock(blockID) {
		return n.out
	}
	start := n.blockStart()
	in := n.mixInputs(blockID)
	sr := n.ctx.sampleRate

	threshold := n.threshold.scalar(blockID, start)
	ratio := n.ratio.scalar(blockID, start)
	if ratio < 1 {
		ratio = 1
	}
	knee := n.knee.scalar(blockID, start)
	attack := n.attack.scalar(blockID, start)
	release := n.release.scalar(blockID, start)

	atkCoeff := coeffFor(attack, sr)
	relCoeff := coeffFor(release, sr)

	for i, x := range in {
		levelDB := -120.0
		if a := math.Abs(x); a > 1e-6 {
			levelDB = 20 * math.Log10(a)
		}
		if levelDB > n.envelope {
			n.envelope += (levelDB - n.envelope) * atkCoeff
		} else {
			n.envelope += (levelDB - n.envelope) * relCoeff
		}

		reductionDB := gainReduction(n.envelope, threshold, ratio, knee)
		n.out[i] = x * math.Pow(10, reductionDB/20)
	}
	return n.out
}

// gainReduction computes dB of reduction for the given level with a soft
// knee around the threshold.
func gainReduction(levelDB, threshold, ratio, knee float64) float64 {
	over := levelDB - threshold
	if knee > 0 && over > -knee/2 && over < knee/2 {
		t := over + knee/2
		return -(1 - 1/ratio) * t * t / (2 * knee)
	}
	if over <= 0 {
		return 0
	}
	return -over * (1 - 1/ratio)
}

func coeffFor(seconds, sr float64) float64 {
	if seconds <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(seconds*sr))
}
