package audio

import (
	"errors"
	"fmt"
	"sort"
	"testing"
)

func newTestEngine(t *testing.T) (*Engine, *fakeContext) {
	t.Helper()
	ctx := newFakeContext()
	e := NewEngine(ctx, 1234)
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e, ctx
}

func sortedLive(e *Engine) []string {
	keys := e.LiveModules()
	sort.Strings(keys)
	return keys
}

func TestEngine_InitializeWithoutContext(t *testing.T) {
	e := NewEngine(nil, 1)
	err := e.Initialize()
	var subErr *SubsystemUnavailableError
	if !errors.As(err, &subErr) {
		t.Fatalf("error = %v, want *SubsystemUnavailableError", err)
	}
	// Everything afterwards is a silent no-op.
	if err := e.SetMood("calm", 1); err != nil {
		t.Errorf("SetMood on disabled engine = %v", err)
	}
	e.SetPlaying(true)
	e.SetVolume(0.5)
	e.Update(1.0)
	e.Dispose()
}

func TestEngine_SetMoodBuildsModuleSet(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	got := sortedLive(e)
	want := []string{"noisebed", "pad", "shimmer"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("live modules = %v, want %v", got, want)
	}
	if e.MoodKey() != "calm" {
		t.Errorf("mood = %q", e.MoodKey())
	}
}

// An unknown mood key is rejected before anything is touched: same modules,
// same mood, no new nodes, no new scheduled work.
func TestEngine_UnknownMoodLeavesStateUntouched(t *testing.T) {
	e, ctx := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	liveBefore := sortedLive(e)
	nodesBefore := len(ctx.nodes)
	pendingBefore := e.sched.Pending()

	err := e.SetMood("nonexistent", 2)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}

	if got := sortedLive(e); fmt.Sprint(got) != fmt.Sprint(liveBefore) {
		t.Errorf("live modules changed: %v -> %v", liveBefore, got)
	}
	if e.MoodKey() != "calm" {
		t.Errorf("mood changed to %q", e.MoodKey())
	}
	if len(ctx.nodes) != nodesBefore {
		t.Errorf("node count changed: %d -> %d", nodesBefore, len(ctx.nodes))
	}
	if e.sched.Pending() != pendingBefore {
		t.Errorf("scheduled events changed: %d -> %d", pendingBefore, e.sched.Pending())
	}
}

// Transitioning calm -> cosmic keeps the pad instance (no rebuild), adds the
// drone, and fades out then disposes the module set difference.
func TestEngine_CalmToCosmicTransition(t *testing.T) {
	e, ctx := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood(calm): %v", err)
	}
	e.SetPlaying(true)

	padBefore := e.modules["pad"].mod
	noisebed := e.modules["noisebed"]

	if err := e.SetMood("cosmic", 4); err != nil {
		t.Fatalf("SetMood(cosmic): %v", err)
	}

	if e.modules["pad"] == nil || e.modules["pad"].mod != padBefore {
		t.Error("pad instance was rebuilt instead of kept")
	}
	if e.modules["drone"] == nil {
		t.Error("drone was not added")
	}
	if e.modules["arpeggio"] == nil {
		t.Error("arpeggio was not added")
	}
	if !noisebed.stopping {
		t.Error("noisebed is not fading out")
	}
	if noisebed.cleanup == nil {
		t.Fatal("noisebed has no deferred dispose")
	}

	// The old module survives (fading) until its fade plus release tail.
	if _, ok := e.modules["noisebed"]; !ok {
		t.Fatal("noisebed disposed immediately instead of fading")
	}
	ctx.advance(4*e.cfg.StopFadeFraction + noisebed.mod.ReleaseTail() + 0.1)
	e.Update(ctx.now)
	if _, ok := e.modules["noisebed"]; ok {
		t.Error("noisebed still live after fade and release tail")
	}
	nb := noisebed.mod.(*noisebedModule)
	if nb.NodeCount() != 0 {
		t.Errorf("noisebed holds %d nodes after deferred dispose", nb.NodeCount())
	}
}

// A mood change back toward a module that is still fading out revives it in
// place instead of building a second instance.
func TestEngine_TransitionRevivesFadingModule(t *testing.T) {
	e, ctx := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood(calm): %v", err)
	}
	e.SetPlaying(true)

	noisebedBefore := e.modules["noisebed"].mod
	if err := e.SetMood("cosmic", 4); err != nil {
		t.Fatalf("SetMood(cosmic): %v", err)
	}
	if !e.modules["noisebed"].stopping {
		t.Fatal("noisebed not fading after cosmic")
	}

	// Back to calm before the fade completes.
	ctx.advance(0.2)
	if err := e.SetMood("calm", 2); err != nil {
		t.Fatalf("SetMood(calm) again: %v", err)
	}
	slot := e.modules["noisebed"]
	if slot == nil {
		t.Fatal("noisebed gone after revival")
	}
	if slot.stopping {
		t.Error("revived noisebed still marked stopping")
	}
	if slot.cleanup != nil {
		t.Error("revived noisebed still has a deferred dispose")
	}
	if slot.mod != noisebedBefore {
		t.Error("revival built a new instance")
	}

	// The canceled cleanup must never fire.
	ctx.advance(20)
	e.Update(ctx.now)
	if _, ok := e.modules["noisebed"]; !ok {
		t.Error("revived noisebed was disposed by a stale cleanup")
	}
}

func TestEngine_SetPlayingWhileSuspendedDefers(t *testing.T) {
	ctx := newFakeContext()
	ctx.state = StateSuspended
	e := NewEngine(ctx, 1)
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}

	e.SetPlaying(true)
	playGain := e.playGain.(*fakeNode).param("gain")
	if playGain.ramps != 0 {
		t.Fatal("master fade started while the context was suspended")
	}
	if !e.Playing() {
		t.Error("intent not recorded")
	}

	ctx.finishResume()
	if playGain.ramps == 0 {
		t.Error("master fade did not start after resume")
	}
}

// A pause or resume mid-fade must ramp from the value actually in effect:
// cancel-and-hold directly before the new ramp.
func TestEngine_PlayPauseRampsFromHeldValue(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	e.SetPlaying(true)
	e.SetPlaying(false)
	e.SetPlaying(true)

	p := e.playGain.(*fakeNode).param("gain")
	tail := p.lastCalls(2)
	if len(tail) != 2 || tail[0] != "cancelHold" || tail[1] != "ramp" {
		t.Errorf("last param calls = %v, want [cancelHold ramp]", tail)
	}
}

func TestEngine_SetVolumeClamps(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetVolume(1.5)
	if e.Volume() != 1 {
		t.Errorf("volume = %v, want 1", e.Volume())
	}
	e.SetVolume(-0.2)
	if e.Volume() != 0 {
		t.Errorf("volume = %v, want 0", e.Volume())
	}
	e.SetVolume(0.42)
	if v := e.volumeGain.(*fakeNode).param("gain").value; v != 0.42 {
		t.Errorf("gain target = %v, want 0.42", v)
	}
}

func TestEngine_GuardIsolatesPanics(t *testing.T) {
	e, _ := newTestEngine(t)
	ok := e.guard("pad", "update", func() error {
		panic("boom")
	})
	if ok {
		t.Error("guard reported success for a panicking call")
	}
	if e.failures["pad"] != 1 {
		t.Errorf("failure count = %d, want 1", e.failures["pad"])
	}
}

func init() {
	RegisterModule("flaky", func(env ModuleEnv) Module {
		return &flakyModule{baseModule: baseModule{env: env}}
	})
}

// flakyModule initializes fine but fails every ChangeMood, to exercise the
// repeated-failure drop path.
type flakyModule struct {
	baseModule
}

func (m *flakyModule) Init(out Node, p MoodParams, moodKey string, dial ModuleDial) error {
	if out == nil {
		return errNilOutput
	}
	m.setupOutput(out)
	m.applyEnvelope(MapDial(dial.Volume, 0, 0.1), p.Attack, p.Release)
	return nil
}

func (m *flakyModule) Play(startTime float64) { m.playBase(startTime) }

func (m *flakyModule) Stop(stopTime, fadeHint float64) { m.stopBase(stopTime, fadeHint) }

func (m *flakyModule) ChangeMood(p MoodParams, transition float64, dial ModuleDial) error {
	return fmt.Errorf("transient failure")
}

func (m *flakyModule) Update(Frame) {}

func (m *flakyModule) Dispose() { m.disposeBase() }

func (m *flakyModule) ReleaseTail() float64 { return m.release }

// One module failing repeatedly is logged, counted and eventually dropped
// for the session; the rest of the mood keeps running throughout.
func TestEngine_RepeatedModuleFailureDropsIt(t *testing.T) {
	Moods["flakytest"] = &Mood{
		Name: "Flaky Test",
		Modules: []ModuleDial{
			{Key: "pad", Volume: 80, Occurrence: 50, Intensity: 40},
			{Key: "flaky", Volume: 50, Occurrence: 50, Intensity: 50},
		},
		Params: Moods["calm"].Params,
	}
	defer delete(Moods, "flakytest")

	e, _ := newTestEngine(t)
	if err := e.SetMood("flakytest", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	if e.modules["flaky"] == nil {
		t.Fatal("flaky module did not initialize")
	}

	for i := 0; i < EngineConfig.MaxModuleFailure; i++ {
		if err := e.SetMood("flakytest", 1); err != nil {
			t.Fatalf("SetMood round %d: %v", i, err)
		}
	}

	if _, ok := e.modules["flaky"]; ok {
		t.Error("flaky module still live after repeated failures")
	}
	if !e.dropped["flaky"] {
		t.Error("flaky module not marked dropped")
	}
	if _, ok := e.modules["pad"]; !ok {
		t.Error("healthy module was lost alongside the failing one")
	}

	// A dropped module is skipped by later transitions.
	if err := e.SetMood("calm", 1); err != nil {
		t.Fatalf("SetMood(calm): %v", err)
	}
	if err := e.SetMood("flakytest", 1); err != nil {
		t.Fatalf("SetMood(flakytest): %v", err)
	}
	if _, ok := e.modules["flaky"]; ok {
		t.Error("dropped module was re-added")
	}
}

func TestEngine_ReentrantSetMoodIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	e.inTransition = true
	if err := e.SetMood("calm", 1); err != nil {
		t.Errorf("reentrant SetMood = %v, want nil", err)
	}
	if len(e.modules) != 0 {
		t.Error("reentrant SetMood mutated the module set")
	}
}

func TestEngine_UpdateFiresScheduledEvents(t *testing.T) {
	e, ctx := newTestEngine(t)
	fired := false
	e.sched.At(1.0, func() { fired = true })
	ctx.advance(0.5)
	e.Update(ctx.now)
	if fired {
		t.Fatal("event fired early")
	}
	ctx.advance(0.6)
	e.Update(ctx.now)
	if !fired {
		t.Error("event did not fire from Update")
	}
}

func TestEngine_AnalysisSnapshotTracksBands(t *testing.T) {
	e, ctx := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}

	bandSource.bass = 0.6
	bandSource.mid = 0.3
	bandSource.treble = 0.1
	bandSource.peak = 0.8
	defer func() { bandSource.bass, bandSource.mid, bandSource.treble, bandSource.peak = 0, 0, 0, 0 }()

	ctx.advance(1.0)
	e.Update(ctx.now)
	ctx.advance(0.016)
	e.Update(ctx.now)

	v := e.GetAnalysisSnapshot()
	if v.Bass <= 0 || v.Bass > 0.6 {
		t.Errorf("bass = %v, want in (0, 0.6]", v.Bass)
	}
	// Rises to the peak on the first frame, then decays slowly.
	if v.PeakImpact < 0.7 || v.PeakImpact > 0.8 {
		t.Errorf("peak impact = %v, want just under 0.8", v.PeakImpact)
	}
	if v.Dreaminess <= 0 {
		t.Errorf("dreaminess = %v, want > 0 after calm", v.Dreaminess)
	}
}

func TestEngine_BeatDetectionHasRefractory(t *testing.T) {
	e, ctx := newTestEngine(t)
	if err := e.SetMood("storm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	defer func() { bandSource.bass, bandSource.peak = 0, 0 }()

	// Establish a low trailing average, then spike.
	bandSource.bass = 0.01
	for i := 0; i < 10; i++ {
		ctx.advance(0.05)
		e.Update(ctx.now)
	}
	bandSource.bass = 0.7
	ctx.advance(0.05)
	e.Update(ctx.now)
	if !e.GetAnalysisSnapshot().Beat {
		t.Fatal("bass spike did not flag a beat")
	}

	// Still loud on the very next frame: inside the refractory interval.
	ctx.advance(0.05)
	e.Update(ctx.now)
	if e.GetAnalysisSnapshot().Beat {
		t.Error("beat flagged again inside the refractory interval")
	}
}

// Dispose during a mid-flight transition: every node released, every armed
// event canceled, the subsystem closed, and later calls inert.
func TestEngine_DisposeReleasesEverything(t *testing.T) {
	e, ctx := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	e.SetPlaying(true)
	ctx.advance(1.0)
	e.Update(ctx.now)
	// Leave a transition's deferred cleanups armed.
	if err := e.SetMood("storm", 6); err != nil {
		t.Fatalf("SetMood(storm): %v", err)
	}

	e.Dispose()

	if leaked := ctx.leakedNodes(); len(leaked) != 0 {
		kinds := make([]string, len(leaked))
		for i, n := range leaked {
			kinds[i] = n.kind
		}
		t.Errorf("%d nodes leaked: %v", len(leaked), kinds)
	}
	if e.sched.Pending() != 0 {
		t.Errorf("%d events still armed after dispose", e.sched.Pending())
	}
	if !ctx.closed {
		t.Error("context not closed")
	}
	if len(e.modules) != 0 {
		t.Errorf("%d modules still registered", len(e.modules))
	}

	// Idempotent, and everything afterwards is a no-op.
	e.Dispose()
	if err := e.SetMood("calm", 1); err != nil {
		t.Errorf("SetMood after dispose = %v", err)
	}
	if len(e.modules) != 0 {
		t.Error("SetMood after dispose rebuilt modules")
	}
}

func TestEngine_SetMoodUpdatesSharedReverb(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.SetMood("calm", 0); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	if n := e.reverb.(*fakeNode); n.impulses != 1 {
		t.Errorf("impulse regenerations = %d, want 1", n.impulses)
	}
	if err := e.SetMood("cosmic", 2); err != nil {
		t.Fatalf("SetMood: %v", err)
	}
	if n := e.reverb.(*fakeNode); n.impulses != 2 {
		t.Errorf("impulse regenerations = %d, want 2", n.impulses)
	}
}
