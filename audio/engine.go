package audio

import (
	"fmt"

	"github.com/driftscape/driftscape/common"
)

// moduleSlot is the coordinator's owning handle for one live module.
type moduleSlot struct {
	key      string
	dial     ModuleDial
	mod      Module
	stopping bool
	cleanup  *ScheduledEvent // deferred dispose armed while stopping
}

// Engine is the mood transition coordinator. It owns the shared master chain,
// the registry of live module instances, and the diff/transition algorithm
// that reconciles the live set against a requested mood.
//
// The engine is single-threaded: construct it, then drive it from one
// goroutine (or the browser event loop) via the public calls and Update.
type Engine struct {
	ctx   Context
	sched *Scheduler
	rng   *common.SeededRNG
	cfg   *Config

	// Shared chain, input to output. Modules connect only to input; the
	// rest is mutated exclusively by the engine.
	input        GainNode
	toneFilter   BiquadFilterNode
	comp         CompressorNode
	reverbSend   GainNode
	reverb       ConvolverNode
	reverbReturn GainNode
	playGain     GainNode // play/pause envelope
	volumeGain   GainNode // master volume
	limiter      CompressorNode
	analyser     AnalyserNode

	modules    map[string]*moduleSlot
	moodKey    string
	moodParams MoodParams

	playing      bool // intended state, survives a suspended context
	pendingStart bool
	volume       float64

	pending      PendingSet // engine-level deferred work
	analysis     analysisState
	lastTick     float64
	lastDiag     float64
	failures     map[string]int
	dropped      map[string]bool
	inTransition bool
	initialized  bool
	disabled     bool
}

// NewEngine creates an engine over the given audio context. seed drives the
// session's variation RNG.
func NewEngine(ctx Context, seed uint32) *Engine {
	return &Engine{
		ctx:      ctx,
		sched:    NewScheduler(),
		rng:      common.NewSeededRNG(seed),
		cfg:      &EngineConfig,
		modules:  make(map[string]*moduleSlot),
		volume:   EngineConfig.MasterVolume,
		failures: make(map[string]int),
		dropped:  make(map[string]bool),
	}
}

// Initialize builds the shared master chain:
// input sum -> tone filter -> compressor -> reverb send/return -> play gain
// -> volume gain -> limiter -> analysis tap -> destination.
// It fails only when the audio subsystem itself is unavailable; lesser
// construction failures degrade that feature and continue.
func (e *Engine) Initialize() error {
	if e.ctx == nil {
		e.disabled = true
		return &SubsystemUnavailableError{Reason: "no audio context"}
	}
	if err := ValidateMoods(); err != nil {
		e.disabled = true
		return err
	}

	e.input = e.ctx.CreateGain()
	e.input.Gain().SetValue(1)

	e.toneFilter = e.ctx.CreateBiquadFilter()
	e.toneFilter.SetFilterType("lowpass")
	e.toneFilter.Frequency().SetValue(e.cfg.ToneFilterHz)
	e.toneFilter.Q().SetValue(e.cfg.ToneFilterQ)
	e.input.Connect(e.toneFilter)

	e.comp = e.ctx.CreateCompressor()
	e.comp.Threshold().SetValue(e.cfg.CompThreshold)
	e.comp.Ratio().SetValue(e.cfg.CompRatio)
	e.comp.Knee().SetValue(e.cfg.CompKnee)
	e.comp.Attack().SetValue(e.cfg.CompAttack)
	e.comp.Release().SetValue(e.cfg.CompRelease)
	e.toneFilter.Connect(e.comp)

	e.playGain = e.ctx.CreateGain()
	e.playGain.Gain().SetValue(0)
	e.comp.Connect(e.playGain)

	// Reverb is a send/return pair around the compressor output. A failed
	// convolver leaves the engine dry rather than dead.
	e.reverb = e.ctx.CreateConvolver()
	if e.reverb != nil {
		e.reverbSend = e.ctx.CreateGain()
		e.reverbSend.Gain().SetValue(e.cfg.ReverbSend)
		e.reverbReturn = e.ctx.CreateGain()
		e.reverbReturn.Gain().SetValue(e.cfg.ReverbReturn)
		e.comp.Connect(e.reverbSend)
		e.reverbSend.Connect(e.reverb)
		e.reverb.Connect(e.reverbReturn)
		e.reverbReturn.Connect(e.playGain)
	}

	e.volumeGain = e.ctx.CreateGain()
	e.volumeGain.Gain().SetValue(e.volume)
	e.playGain.Connect(e.volumeGain)

	e.limiter = e.ctx.CreateCompressor()
	e.limiter.Threshold().SetValue(e.cfg.LimitThreshold)
	e.limiter.Ratio().SetValue(e.cfg.LimitRatio)
	e.limiter.Knee().SetValue(0)
	e.limiter.Attack().SetValue(0.002)
	e.limiter.Release().SetValue(0.1)
	e.volumeGain.Connect(e.limiter)

	e.analyser = e.ctx.CreateAnalyser()
	if e.analyser != nil {
		e.limiter.Connect(e.analyser)
		e.analyser.Connect(e.ctx.Destination())
	} else {
		e.limiter.Connect(e.ctx.Destination())
	}

	e.initialized = true
	return nil
}

func (e *Engine) env() ModuleEnv {
	return ModuleEnv{Ctx: e.ctx, Sched: e.sched, Rand: e.rng, Cfg: e.cfg}
}

// MoodKey returns the key of the current mood, or "" before the first
// successful SetMood.
func (e *Engine) MoodKey() string {
	return e.moodKey
}

// Playing reports the intended playing state.
func (e *Engine) Playing() bool {
	return e.playing
}

// LiveModules returns the keys of currently registered module instances,
// including ones still fading out.
func (e *Engine) LiveModules() []string {
	keys := make([]string, 0, len(e.modules))
	for k := range e.modules {
		keys = append(keys, k)
	}
	return keys
}

func (e *Engine) liveKeys() []string {
	return e.LiveModules()
}

// SetMood reconciles the live module set against the target mood over the
// given transition duration (seconds). An unknown key is rejected with a
// ConfigurationError and leaves every module and connection untouched.
func (e *Engine) SetMood(key string, transition float64) error {
	if e.disabled || !e.initialized {
		return nil
	}
	mood, err := GetMood(key)
	if err != nil {
		return err
	}
	if e.inTransition {
		// A reentrant SetMood from inside a transition's own callback
		// would interleave lifecycle calls; ignore it.
		Warn("reentrant SetMood ignored:", key)
		return nil
	}
	e.inTransition = true
	defer func() { e.inTransition = false }()

	if transition <= 0 {
		transition = 1
	}
	now := e.ctx.CurrentTime()

	dials := make(map[string]ModuleDial, len(mood.Modules))
	for _, d := range mood.Modules {
		dials[d.Key] = d
	}
	plan := planTransition(e.liveKeys(), mood.Modules)

	// Stop-set: fast fade, then a cancelable deferred dispose once the
	// fade plus the module's own release tail has elapsed.
	fade := transition * e.cfg.StopFadeFraction
	for _, k := range plan.stop {
		slot := e.modules[k]
		if slot.stopping {
			continue
		}
		e.guard(k, "stop", func() error {
			slot.mod.Stop(now, fade)
			return nil
		})
		slot.stopping = true
		wait := fade + slot.mod.ReleaseTail()
		s := slot
		slot.cleanup = e.pending.At(e.sched, now+wait, func() {
			s.cleanup = nil
			e.disposeSlot(s)
		})
	}

	// Keep-set: ramp parameters in place. A module still fading out from a
	// superseded transition is revived instead of rebuilt.
	for _, k := range plan.keep {
		slot := e.modules[k]
		revive := slot.stopping
		if revive {
			e.pending.Cancel(slot.cleanup)
			slot.cleanup = nil
			slot.stopping = false
		}
		slot.dial = dials[k]
		ok := e.guard(k, "changeMood", func() error {
			return slot.mod.ChangeMood(mood.Params, transition, slot.dial)
		})
		if ok && revive && e.playing {
			slot.mod.Play(now)
		}
	}

	// Add-set: construct, init and start with a small stagger so a chord
	// of new modules does not attack on the same sample.
	stagger := 0.0
	for _, k := range plan.add {
		if e.dropped[k] {
			continue
		}
		mod, merr := NewModule(k, e.env())
		if merr != nil {
			Warn(merr)
			continue
		}
		slot := &moduleSlot{key: k, dial: dials[k], mod: mod}
		ok := e.guard(k, "init", func() error {
			return mod.Init(e.input, mood.Params, key, slot.dial)
		})
		if !ok {
			mod.Dispose()
			continue
		}
		e.modules[k] = slot
		if e.playing {
			slot.mod.Play(now + stagger)
			stagger += e.cfg.AddStagger
		}
	}

	// Shared chain character follows the mood.
	if e.reverb != nil {
		e.reverb.SetImpulse(mood.Params.ReverbTime, mood.Params.ReverbDecay)
	}
	if e.toneFilter != nil {
		tone := mood.Params.FilterMax * 4
		if tone < 2000 {
			tone = 2000
		}
		if tone > e.cfg.ToneFilterHz {
			tone = e.cfg.ToneFilterHz
		}
		e.toneFilter.Frequency().SetTargetAtTime(tone, now, transition/3)
	}

	e.moodKey = key
	e.moodParams = mood.Params
	e.analysis.setMoodFeel(mood.Params)
	return nil
}

// SetPlaying fades the master output in or out and starts or stops every
// live module. If the context is still suspended (no user interaction yet)
// the intended state is queued and applied when the context resumes.
func (e *Engine) SetPlaying(playing bool) {
	if e.disabled || !e.initialized {
		return
	}
	e.playing = playing
	if playing && e.ctx.State() == StateSuspended {
		if !e.pendingStart {
			e.pendingStart = true
			e.ctx.Resume(func() {
				e.pendingStart = false
				if e.playing && !e.disabled {
					e.applyPlaying(true)
				}
			})
		}
		return
	}
	e.applyPlaying(playing)
}

func (e *Engine) applyPlaying(playing bool) {
	now := e.ctx.CurrentTime()
	g := e.playGain.Gain()
	// Cancel-and-hold so a pause/resume mid-fade ramps from the gain
	// actually in effect, not from a stale target.
	g.CancelAndHoldAtTime(now)
	if playing {
		g.LinearRampToValueAtTime(1, now+e.cfg.PlayFadeIn)
	} else {
		g.LinearRampToValueAtTime(0, now+e.cfg.PlayFadeOut)
	}
	for _, slot := range e.modules {
		if slot.stopping {
			continue
		}
		s := slot
		if playing {
			e.guard(s.key, "play", func() error {
				s.mod.Play(now)
				return nil
			})
		} else {
			e.guard(s.key, "stop", func() error {
				s.mod.Stop(now, e.cfg.PlayFadeOut)
				return nil
			})
		}
	}
}

// SetVolume ramps the master volume to v in [0, 1] with a short fixed time
// constant to avoid discontinuities.
func (e *Engine) SetVolume(v float64) {
	if e.disabled || !e.initialized {
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
	e.volumeGain.Gain().SetTargetAtTime(v, e.ctx.CurrentTime(), e.cfg.VolumeRampTC)
}

// Volume returns the master volume target.
func (e *Engine) Volume() float64 {
	return e.volume
}

// Update is the cooperative per-frame driver: it fires due scheduled events,
// ticks every live module's Update hook, refreshes the analysis snapshot and
// periodically runs the signal-presence diagnostic. now is the audio clock.
func (e *Engine) Update(now float64) {
	if e.disabled || !e.initialized {
		return
	}
	delta := now - e.lastTick
	if e.lastTick == 0 || delta < 0 {
		delta = 0
	}
	if delta > 0.25 {
		delta = 0.25
	}
	e.lastTick = now

	e.sched.Tick(now)

	frame := Frame{
		Now:     now,
		Delta:   delta,
		MoodKey: e.moodKey,
		Visual:  e.analysis.snapshot,
	}
	for _, slot := range e.modules {
		if slot.stopping {
			continue
		}
		s := slot
		e.guard(s.key, "update", func() error {
			s.mod.Update(frame)
			return nil
		})
	}

	e.analysis.update(e.analyser, e.cfg, now, delta)

	if now-e.lastDiag >= e.cfg.DiagInterval {
		e.lastDiag = now
		e.runDiagnostics()
	}
}

// runDiagnostics flags the playing-but-silent state: modules are live and
// started, the master envelope is up, yet nothing reaches the analysis tap.
func (e *Engine) runDiagnostics() {
	if !e.playing || e.analyser == nil {
		return
	}
	active := 0
	for _, slot := range e.modules {
		if !slot.stopping {
			active++
		}
	}
	if active == 0 {
		return
	}
	if e.analyser.Peak() < 1e-4 {
		Warn("signal presence check: ", active, " modules playing but output is silent")
	}
}

// GetAnalysisSnapshot returns the current audio-derived feature snapshot for
// the visual layer. The returned struct is a copy.
func (e *Engine) GetAnalysisSnapshot() VisualParams {
	return e.analysis.snapshot
}

// guard runs one per-module lifecycle call, converting errors and panics into
// isolation: the failure is logged and counted, and after repeated failures
// the module is dropped for the session. One module's failure never aborts
// the transition for the rest.
func (e *Engine) guard(key, op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.noteFailure(key, op, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		e.noteFailure(key, op, err)
		return false
	}
	return true
}

func (e *Engine) noteFailure(key, op string, err error) {
	e.failures[key]++
	Warn(&ModuleError{Key: key, Op: op, Err: err})
	if e.failures[key] >= e.cfg.MaxModuleFailure {
		e.dropped[key] = true
		if slot, found := e.modules[key]; found {
			e.disposeSlot(slot)
		}
		Warn("module ", key, " disabled for this session")
	}
}

// disposeSlot tears one module down and deregisters it. Tolerates a slot
// already removed.
func (e *Engine) disposeSlot(s *moduleSlot) {
	if s.cleanup != nil {
		e.pending.Cancel(s.cleanup)
		s.cleanup = nil
	}
	func() {
		defer func() { recover() }()
		s.mod.Dispose()
	}()
	delete(e.modules, s.key)
}

// Dispose stops everything, cancels every pending scheduled event and
// deferred cleanup across all instances, disconnects the shared chain and
// releases the audio subsystem. Every public call afterwards is a no-op.
func (e *Engine) Dispose() {
	if e.disabled {
		return
	}
	e.disabled = true
	e.playing = false

	for _, slot := range e.modules {
		e.disposeSlot(slot)
	}
	e.pending.Drain()

	for _, n := range []Node{
		e.input, e.toneFilter, e.comp, e.reverbSend, e.reverb,
		e.reverbReturn, e.playGain, e.volumeGain, e.limiter, e.analyser,
	} {
		if n != nil {
			n.Disconnect()
		}
	}

	if e.ctx != nil {
		e.ctx.Close()
	}
}
