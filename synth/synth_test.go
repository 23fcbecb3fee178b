package synth

import (
	"math"
	"testing"

	"github.com/driftscape/driftscape/audio"
)

const testRate = 48000

// tapped builds osc -> analyser -> destination so tests can observe the
// rendered signal through the analyser ring.
func tapped(ctx *Context) (audio.OscillatorNode, audio.AnalyserNode) {
	osc := ctx.CreateOscillator()
	an := ctx.CreateAnalyser()
	osc.Connect(an)
	an.Connect(ctx.Destination())
	return osc, an
}

func TestContext_ClockAdvances(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	if got := ctx.CurrentTime(); got != 0 {
		t.Fatalf("fresh context CurrentTime = %v", got)
	}
	ctx.Advance(1.0)
	if got := ctx.CurrentTime(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("after Advance(1.0) CurrentTime = %v", got)
	}
	if ctx.State() != audio.StateRunning {
		t.Error("offline context should start running")
	}
}

func TestOscillator_RendersAfterStart(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	osc, an := tapped(ctx)
	osc.Frequency().SetValue(440)
	osc.Start(0)
	ctx.Advance(0.1)
	if peak := an.Peak(); peak < 0.9 || peak > 1.01 {
		t.Errorf("sine peak = %v, want close to 1", peak)
	}
}

func TestOscillator_SilentBeforeStart(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	_, an := tapped(ctx)
	ctx.Advance(0.1)
	if peak := an.Peak(); peak != 0 {
		t.Errorf("unstarted oscillator peak = %v", peak)
	}
}

func TestOscillator_StopSilences(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	osc, an := tapped(ctx)
	osc.Start(0)
	osc.Stop(0.05)
	// The analyser ring holds ~43 ms, so after 0.2 s it sees only silence.
	ctx.Advance(0.2)
	if peak := an.Peak(); peak != 0 {
		t.Errorf("stopped oscillator peak = %v", peak)
	}
}

func TestGain_ScalesSignal(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	osc := ctx.CreateOscillator()
	gain := ctx.CreateGain()
	an := ctx.CreateAnalyser()
	osc.Connect(gain)
	gain.Connect(an)
	an.Connect(ctx.Destination())
	gain.Gain().SetValue(0.25)
	osc.Start(0)
	ctx.Advance(0.1)
	if peak := an.Peak(); math.Abs(peak-0.25) > 0.01 {
		t.Errorf("peak through 0.25 gain = %v", peak)
	}
}

func TestParam_LinearRampInterpolates(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	gain := ctx.CreateGain()
	g := gain.Gain()
	g.SetValueAtTime(0, 0)
	g.LinearRampToValueAtTime(1, 1)
	ctx.Advance(0.5)
	now := ctx.CurrentTime()
	if got := g.Value(); math.Abs(got-now) > 1e-9 {
		t.Errorf("mid-ramp Value = %v, want %v", got, now)
	}
	ctx.Advance(1.0)
	if got := g.Value(); got != 1 {
		t.Errorf("post-ramp Value = %v, want 1", got)
	}
}

func TestParam_SetTargetConverges(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	gain := ctx.CreateGain()
	g := gain.Gain()
	g.SetValue(1)
	g.SetTargetAtTime(0, 0, 0.05)
	ctx.Advance(1.0)
	if got := g.Value(); got > 0.01 {
		t.Errorf("Value after long target decay = %v", got)
	}
}

func TestParam_CancelAndHoldFreezesRamp(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	gain := ctx.CreateGain()
	g := gain.Gain()
	g.SetValueAtTime(0, 0)
	g.LinearRampToValueAtTime(1, 1)
	g.CancelAndHoldAtTime(0.5)
	ctx.Advance(2.0)
	if got := g.Value(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("held Value = %v, want 0.5", got)
	}
}

func TestBiquad_LowpassAttenuatesHighs(t *testing.T) {
	measure := func(freq float64) float64 {
		ctx := NewOfflineContext(testRate)
		osc := ctx.CreateOscillator()
		filter := ctx.CreateBiquadFilter()
		an := ctx.CreateAnalyser()
		osc.Connect(filter)
		filter.Connect(an)
		an.Connect(ctx.Destination())
		filter.SetFilterType("lowpass")
		filter.Frequency().SetValue(500)
		filter.Q().SetValue(0.7)
		osc.Frequency().SetValue(freq)
		osc.Start(0)
		ctx.Advance(0.2)
		return an.Peak()
	}
	low := measure(100)
	high := measure(8000)
	if low < 0.7 {
		t.Errorf("passband peak = %v, want near unity", low)
	}
	if high > 0.2 {
		t.Errorf("stopband peak = %v, want strongly attenuated", high)
	}
}

func TestNoise_ProducesSignalInWindow(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	noise := ctx.CreateNoise()
	an := ctx.CreateAnalyser()
	noise.Connect(an)
	an.Connect(ctx.Destination())
	noise.Start(0)
	ctx.Advance(0.1)
	if peak := an.Peak(); peak < 0.1 {
		t.Errorf("noise peak = %v", peak)
	}
}

func TestAnalyser_BandEnergiesSeparate(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	osc, an := tapped(ctx)
	osc.Frequency().SetValue(110)
	osc.Start(0)
	ctx.Advance(0.2)
	bass, mid, treble := an.BandEnergies()
	if bass < 0.1 {
		t.Errorf("bass energy for 110 Hz tone = %v", bass)
	}
	if bass <= mid || bass <= treble {
		t.Errorf("110 Hz tone: bass %v should dominate mid %v and treble %v", bass, mid, treble)
	}
}

func TestConvolver_TailOutlivesInput(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	noise := ctx.CreateNoise()
	reverb := ctx.CreateConvolver()
	an := ctx.CreateAnalyser()
	noise.Connect(reverb)
	reverb.Connect(an)
	an.Connect(ctx.Destination())
	reverb.SetImpulse(2, 2)
	noise.Start(0)
	noise.Stop(0.05)
	// Well past both the burst and the analyser window only the tail remains.
	ctx.Advance(0.3)
	if peak := an.Peak(); peak < 0.01 {
		t.Errorf("reverb tail peak = %v, want audible decay", peak)
	}
}

func TestDisconnect_RemovesSignalPath(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	osc, an := tapped(ctx)
	osc.Start(0)
	ctx.Advance(0.1)
	if an.Peak() == 0 {
		t.Fatal("expected signal before disconnect")
	}
	osc.Disconnect()
	ctx.Advance(0.1)
	if peak := an.Peak(); peak != 0 {
		t.Errorf("peak after disconnect = %v", peak)
	}
}

func TestConnectParam_ModulatesFrequency(t *testing.T) {
	ctx := NewOfflineContext(testRate)
	osc := ctx.CreateOscillator()
	lfo := ctx.CreateOscillator()
	depth := ctx.CreateGain()
	an := ctx.CreateAnalyser()
	osc.Connect(an)
	an.Connect(ctx.Destination())

	osc.Frequency().SetValue(440)
	lfo.Frequency().SetValue(2)
	depth.Gain().SetValue(20)
	lfo.Connect(depth)
	depth.ConnectParam(osc.Frequency())

	osc.Start(0)
	lfo.Start(0)
	ctx.Advance(0.1)
	if peak := an.Peak(); peak < 0.9 {
		t.Errorf("modulated oscillator peak = %v", peak)
	}
}
