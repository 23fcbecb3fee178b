package synth

import "math"

const (
	evSet = iota
	evRamp
	evTarget
)

// paramEvent is one automation segment. Ramp events carry their end time;
// target events run until the next event supersedes them.
type paramEvent struct {
	kind  int
	value float64
	time  float64
	tc    float64
}

// param implements scheduled automation over a scalar, plus audio-rate
// modulation from connected nodes. All mutation happens under the context
// lock; the render goroutine reads it under the same lock.
type param struct {
	ctx    *Context
	base   float64
	events []paramEvent
	mods   []renderer
	buf    []float64
}

func newParam(ctx *Context, initial float64) *param {
	return &param{ctx: ctx, base: initial, buf: make([]float64, blockSize)}
}

func (p *param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.valueAt(p.ctx.now())
}

func (p *param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: evSet, value: v, time: p.ctx.now()})
}

func (p *param) SetValueAtTime(v, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: evSet, value: v, time: t})
}

func (p *param) LinearRampToValueAtTime(v, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: evRamp, value: v, time: t})
}

func (p *param) SetTargetAtTime(v, t, timeConstant float64) {
	if timeConstant <= 0 {
		timeConstant = 1e-3
	}
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: evTarget, value: v, time: t, tc: timeConstant})
}

func (p *param) CancelAndHoldAtTime(t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	held := p.valueAt(t)
	kept := p.events[:0]
	for _, ev := range p.events {
		if ev.time < t {
			kept = append(kept, ev)
		}
	}
	p.events = kept
	p.insert(paramEvent{kind: evSet, value: held, time: t})
}

// insert keeps the event list time-ordered; equal times preserve call order.
func (p *param) insert(ev paramEvent) {
	i := len(p.events)
	for i > 0 && p.events[i-1].time > ev.time {
		i--
	}
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
}

// valueAt evaluates the automation curve, ignoring modulation. Caller holds
// the context lock.
func (p *param) valueAt(t float64) float64 {
	v := p.base
	prevTime := math.Inf(-1)
	for i, ev := range p.events {
		switch ev.kind {
		case evSet:
			if ev.time > t {
				return v
			}
			v = ev.value
			prevTime = ev.time
		case evRamp:
			if ev.time <= t {
				v = ev.value
				prevTime = ev.time
				continue
			}
			// Ramp in progress.
			if ev.time > prevTime {
				start := prevTime
				if math.IsInf(start, -1) {
					start = ev.time
				}
				if t > start {
					v += (ev.value - v) * (t - start) / (ev.time - start)
				}
			}
			return v
		case evTarget:
			if ev.time > t {
				return v
			}
			end := t
			if i+1 < len(p.events) && p.events[i+1].time < t {
				end = p.events[i+1].time
			}
			v = ev.value + (v-ev.value)*math.Exp(-(end-ev.time)/ev.tc)
			prevTime = ev.time
		}
	}
	return v
}

func (p *param) addMod(src renderer) {
	p.mods = append(p.mods, src)
}

func (p *param) removeMod(src renderer) {
	for i, m := range p.mods {
		if m == src {
			p.mods = append(p.mods[:i], p.mods[i+1:]...)
			return
		}
	}
}

// fill renders one block of parameter values: automation plus the sum of the
// connected modulators. Caller holds the context lock.
func (p *param) fill(blockID uint64, blockStart float64) []float64 {
	sr := p.ctx.sampleRate
	for i := range p.buf {
		p.buf[i] = p.valueAt(blockStart + float64(i)/sr)
	}
	for _, m := range p.mods {
		mod := m.render(blockID)
		for i := range p.buf {
			p.buf[i] += mod[i]
		}
	}
	return p.buf
}

// scalar evaluates the parameter at the block start only, for nodes that
// update at control rate (filter coefficients).
func (p *param) scalar(blockID uint64, blockStart float64) float64 {
	v := p.valueAt(blockStart)
	for _, m := range p.mods {
		mod := m.render(blockID)
		v += mod[0]
	}
	return v
}
