package audio

import (
	"fmt"

	"github.com/driftscape/driftscape/common"
)

// Frame is the per-tick input handed to every live module's Update hook.
type Frame struct {
	Now     float64 // audio clock time (seconds)
	Delta   float64 // time since the previous tick (seconds)
	MoodKey string
	Visual  VisualParams
}

// ModuleEnv is the environment a module factory receives: the node factory,
// the shared cooperative scheduler and the variation RNG. Modules never reach
// for globals.
type ModuleEnv struct {
	Ctx   Context
	Sched *Scheduler
	Rand  *common.SeededRNG
	Cfg   *Config
}

// Module is the contract every synthesizer module implements. The coordinator
// orders the lifecycle calls; they are never interleaved against the same
// instance.
//
// Init builds the module's private subgraph and connects its tail into out,
// leaving the module's own output gain at near-zero. Any failure must leave
// zero live nodes behind.
//
// Play begins sound production and ramps the output gain up over the attack
// time. Idempotent while playing.
//
// Stop ramps the output gain to near-zero over the module's own release time
// (fadeHint is only a suggestion for modules without an envelope concept) and
// cancels future scheduling. Already-sounding events decay naturally. Stop
// never destroys nodes; that is Dispose's job.
//
// ChangeMood re-derives parameters as in Init and ramps continuously-variable
// ones toward their new targets. If the new configuration needs a different
// node topology the module rebuilds only the affected substructure.
//
// Update is the cheap per-frame hook for slow drift and diagnostics.
//
// Dispose releases every owned node and cancels every scheduled callback.
// Safe on a partially-initialized or already-disposed instance.
type Module interface {
	Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error
	Play(startTime float64)
	Stop(stopTime, fadeHint float64)
	ChangeMood(p MoodParams, transition float64, dial ModuleDial) error
	Update(f Frame)
	Dispose()

	// ReleaseTail reports how long after Stop the module keeps sounding,
	// so the coordinator knows when Dispose is safe.
	ReleaseTail() float64
}

// baseModule carries the bookkeeping discipline shared by every module:
// the owned-node set, the pending-event set, and the output gain envelope.
// Concrete modules embed it and contribute only topology and event rules.
type baseModule struct {
	env ModuleEnv

	out      GainNode
	owned    []Node
	sources  []SourceNode
	pending  PendingSet
	playing  bool
	disposed bool

	level   float64 // output gain target, from the volume dial
	attack  float64
	release float64
}

func (b *baseModule) now() float64 {
	return b.env.Ctx.CurrentTime()
}

// own registers a node for release on dispose and returns nothing; call it
// immediately after creating any node the module keeps.
func (b *baseModule) own(n Node) {
	b.owned = append(b.owned, n)
}

// ownSource registers a source node for both stop-on-dispose and release.
func (b *baseModule) ownSource(s SourceNode) {
	b.owned = append(b.owned, s)
	b.sources = append(b.sources, s)
}

// setupOutput creates the module's output gain at near-zero and connects it
// into the coordinator-provided node.
func (b *baseModule) setupOutput(dst Node) {
	b.out = b.env.Ctx.CreateGain()
	b.own(b.out)
	b.out.Gain().SetValue(0)
	b.out.Connect(dst)
}

// applyEnvelope records the envelope parameters derived from the mood.
func (b *baseModule) applyEnvelope(level, attack, release float64) {
	b.level = level
	b.attack = attack
	b.release = release
}

// playBase ramps the output gain from its held value up to the target level.
// Returns false if the call should be ignored (already playing or disposed).
func (b *baseModule) playBase(startTime float64) bool {
	if b.playing || b.disposed || b.out == nil {
		return false
	}
	b.playing = true
	g := b.out.Gain()
	g.CancelAndHoldAtTime(startTime)
	g.LinearRampToValueAtTime(b.level, startTime+b.attack)
	return true
}

// stopBase ramps the output gain to near-zero over the module's release, or
// the caller's hint when the module declared none. Returns false if not
// playing.
func (b *baseModule) stopBase(stopTime, fadeHint float64) bool {
	if !b.playing || b.disposed || b.out == nil {
		return false
	}
	b.playing = false
	fade := b.release
	if fade <= 0 {
		fade = fadeHint
	}
	if fade <= 0 {
		fade = 0.1
	}
	g := b.out.Gain()
	g.CancelAndHoldAtTime(stopTime)
	g.LinearRampToValueAtTime(0, stopTime+fade)
	return true
}

// rampLevel moves the output gain target, ramping the live gain only while
// playing.
func (b *baseModule) rampLevel(level, t, ramp float64) {
	b.level = level
	if b.playing && b.out != nil {
		g := b.out.Gain()
		g.CancelAndHoldAtTime(t)
		g.LinearRampToValueAtTime(level, t+ramp)
	}
}

// releaseNodes stops every source and disconnects every owned node. Used by
// dispose and by init rollback. Idempotent: the second call sees empty sets.
func (b *baseModule) releaseNodes(t float64) {
	for _, s := range b.sources {
		s.Stop(t)
	}
	for i := len(b.owned) - 1; i >= 0; i-- {
		b.owned[i].Disconnect()
	}
	b.owned = nil
	b.sources = nil
	b.out = nil
}

// disown disconnects a single node and removes it from the owned sets.
// Used by structural rebuilds that replace part of a subgraph; callers stop
// source nodes before disowning them.
func (b *baseModule) disown(n Node) {
	n.Disconnect()
	for i, m := range b.owned {
		if m == n {
			b.owned = append(b.owned[:i], b.owned[i+1:]...)
			break
		}
	}
	for i, s := range b.sources {
		if Node(s) == n {
			b.sources = append(b.sources[:i], b.sources[i+1:]...)
			break
		}
	}
}

// disposeBase drains pending events and releases every node. Safe to call
// repeatedly and on a partially-initialized module.
func (b *baseModule) disposeBase() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.playing = false
	b.pending.Drain()
	b.releaseNodes(b.now())
}

// NodeCount reports the number of owned live nodes. Exposed for the leak
// invariant checks in tests and the engine's diagnostics.
func (b *baseModule) NodeCount() int {
	return len(b.owned)
}

// PendingCount reports the number of armed scheduled events.
func (b *baseModule) PendingCount() int {
	return b.pending.Len()
}

// scaleFreqs returns the mood scale, or a fallback built from the base
// frequency when a mood ships without one.
func scaleFreqs(p MoodParams) []float64 {
	if len(p.Scale) > 0 {
		return p.Scale
	}
	base := p.BaseFreq
	if base <= 0 {
		base = 110
	}
	return []float64{base, base * 9 / 8, base * 5 / 4, base * 3 / 2, base * 5 / 3, base * 2}
}

// stepDuration converts the mood tempo into the duration of one 16th step.
func stepDuration(p MoodParams) float64 {
	tempo := p.Tempo
	if tempo <= 0 {
		tempo = 60
	}
	return 60.0 / tempo / 4.0
}

// errNilOutput is returned when Init is called without a destination, which
// indicates a coordinator bug rather than a configuration problem.
var errNilOutput = fmt.Errorf("nil output node")

// errNodeCreate is wrapped when the backend refuses to create a node mid
// construction. The caller rolls back whatever was built before it.
var errNodeCreate = fmt.Errorf("node creation failed")
