package audio

// The engine never touches samples directly. It builds graphs of signal nodes
// and schedules future parameter changes and start/stop times against the
// audio subsystem's own clock. The interfaces below mirror the Web Audio API
// surface the engine actually uses; the webaudio package backs them with real
// browser nodes and the synth package with a native sample renderer.

// ContextState mirrors the platform audio context lifecycle.
type ContextState int

const (
	// StateSuspended means the context exists but will not produce sound
	// until a user interaction allows it to resume.
	StateSuspended ContextState = iota
	StateRunning
	StateClosed
)

// Context is the audio subsystem handle: a node factory plus the shared
// real-time clock all scheduling is expressed against.
type Context interface {
	CreateGain() GainNode
	CreateOscillator() OscillatorNode
	CreateBiquadFilter() BiquadFilterNode
	CreateDelay(maxDelay float64) DelayNode
	CreateNoise() NoiseNode
	CreateStereoPanner() StereoPannerNode
	CreateCompressor() CompressorNode
	CreateConvolver() ConvolverNode
	CreateAnalyser() AnalyserNode

	// Destination is the terminal output node of the context.
	Destination() Node

	// CurrentTime is the context's monotonic clock in seconds.
	CurrentTime() float64
	SampleRate() float64

	State() ContextState

	// Resume asks a suspended context to start running. onResumed is invoked
	// once the context is actually running; it may be called synchronously
	// if the context is already running.
	Resume(onResumed func())

	Close()
}

// Node is an atomic signal-processing unit in the graph.
type Node interface {
	// Connect routes this node's output into dst.
	Connect(dst Node)
	// ConnectParam routes this node's output into a parameter, for
	// LFO-style modulation.
	ConnectParam(p Param)
	// Disconnect removes every outgoing connection. Disconnecting an
	// already-disconnected node is a no-op.
	Disconnect()
}

// Param is an independently time-schedulable node parameter.
type Param interface {
	// Value returns the parameter's value at the current clock time.
	Value() float64
	// SetValue sets the value immediately.
	SetValue(v float64)
	SetValueAtTime(v, t float64)
	LinearRampToValueAtTime(v, t float64)
	// SetTargetAtTime starts an exponential approach toward v with the
	// given time constant. Used for anything perceptually logarithmic.
	SetTargetAtTime(v, t, timeConstant float64)
	// CancelAndHoldAtTime cancels pending automation and holds the value
	// in effect at t, so a new ramp starts from the value actually heard.
	CancelAndHoldAtTime(t float64)
}

// SourceNode is a node that generates signal and has a start/stop lifecycle.
type SourceNode interface {
	Node
	Start(t float64)
	Stop(t float64)
}

// GainNode scales its input.
type GainNode interface {
	Node
	Gain() Param
}

// OscillatorNode is a periodic source. Waveform is one of "sine", "triangle",
// "sawtooth", "square".
type OscillatorNode interface {
	SourceNode
	SetWaveform(w string)
	Frequency() Param
	// Detune offsets the frequency in cents.
	Detune() Param
}

// BiquadFilterNode is a second-order filter. FilterType is one of "lowpass",
// "highpass", "bandpass".
type BiquadFilterNode interface {
	Node
	SetFilterType(ft string)
	Frequency() Param
	Q() Param
}

// DelayNode delays its input.
type DelayNode interface {
	Node
	DelayTime() Param
}

// NoiseNode is a looped broadband noise source.
type NoiseNode interface {
	SourceNode
}

// StereoPannerNode positions its input in the stereo field.
type StereoPannerNode interface {
	Node
	Pan() Param
}

// CompressorNode is a dynamics processor; with a high ratio and low attack it
// doubles as the limiter at the end of the master chain.
type CompressorNode interface {
	Node
	Threshold() Param
	Ratio() Param
	Knee() Param
	Attack() Param
	Release() Param
}

// ConvolverNode is a reverb stage. The impulse response is generated
// algorithmically from a duration and decay exponent.
type ConvolverNode interface {
	Node
	SetImpulse(seconds, decay float64)
}

// AnalyserNode taps the signal for feature extraction without affecting it.
type AnalyserNode interface {
	Node
	// BandEnergies returns smoothed energy in the bass, mid and treble
	// bands, each normalized to roughly [0, 1].
	BandEnergies() (bass, mid, treble float64)
	// Peak returns the recent waveform peak magnitude in [0, 1].
	Peak() float64
}
