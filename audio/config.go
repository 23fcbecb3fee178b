package audio

// Config holds the engine-wide tuning knobs that are not per-mood. Per-mood
// values live in the mood table; these are the fixed characteristics of the
// master chain, the transition timing and the individual module voices.
type Config struct {
	// Master chain settings
	MasterVolume   float64 // initial master volume, 0.0 - 1.0
	VolumeRampTC   float64 // time constant for SetVolume ramps (seconds)
	PlayFadeIn     float64 // master fade-in on SetPlaying(true)
	PlayFadeOut    float64 // master fade-out on SetPlaying(false)
	ToneFilterHz   float64 // master tone-shaping lowpass cutoff
	ToneFilterQ    float64 // master tone filter resonance
	ReverbSend     float64 // master reverb send level
	ReverbReturn   float64 // master reverb return level
	CompThreshold  float64 // compressor threshold (dB)
	CompRatio      float64 // compressor ratio
	CompKnee       float64 // compressor knee (dB)
	CompAttack     float64 // compressor attack (seconds)
	CompRelease    float64 // compressor release (seconds)
	LimitThreshold float64 // limiter threshold (dB)
	LimitRatio     float64 // limiter ratio

	// Transition settings
	StopFadeFraction float64 // fraction of transition used for stop-set fades
	ParamRampFrac    float64 // fraction of transition used for parameter ramps
	AddStagger       float64 // stagger between add-set module starts (seconds)
	RebuildFade      float64 // fade window around a structural rebuild

	// Scheduling settings
	Lookahead        float64 // event schedule lookahead (seconds)
	DiagInterval     float64 // signal-presence diagnostic cadence (seconds)
	MaxModuleFailure int     // repeated failures before a module is dropped

	// Drone pad settings
	PadVolumeMax   float64 // volume dial ceiling for the pad output gain
	PadFilterLFOHz float64 // base filter sweep LFO rate
	PadFilterMod   float64 // filter sweep depth (Hz)
	PadDetuneCents float64 // max random per-voice detune (cents)
	PadVoicesMin   int     // voice count at intensity 0
	PadVoicesMax   int     // voice count at intensity 100

	// Sub drone settings
	DroneVolumeMax float64 // volume dial ceiling
	DroneWobbleHz  float64 // pitch wobble LFO rate
	DroneWobble    float64 // pitch wobble depth (Hz)

	// Bass line settings
	BassVolumeMax  float64 // volume dial ceiling
	BassDetune     float64 // detuned oscillator offset (cents)
	BassFilterQ    float64 // filter resonance
	BassGlide      float64 // portamento time (seconds)
	BassHoldChance float64 // chance to hold the current note
	BassSkipChance float64 // chance to skip ahead two notes

	// Arpeggio settings
	ArpVolumeMax  float64 // volume dial ceiling
	ArpAttack     float64 // per-note attack (seconds)
	ArpRelease    float64 // per-note release (seconds)
	ArpDetune     float64 // max random detune (fraction of frequency)
	ArpJumpChance float64 // chance to jump to a random scale note

	// Percussion settings
	PercVolumeMax float64 // volume dial ceiling
	PercDecay     float64 // hit decay (seconds)
	PercJitter    float64 // humanizing timing jitter (seconds)
	PercFilterQ   float64 // hit bandpass resonance

	// Noise bed settings
	NoiseVolumeMax float64 // volume dial ceiling
	NoiseFilterQ   float64 // bandpass resonance
	NoiseDriftRate float64 // cutoff drift speed (Hz per second)

	// Shimmer settings
	ShimmerVolumeMax   float64 // volume dial ceiling
	ShimmerVibratoRate float64 // vibrato LFO base rate
	ShimmerVibratoCent float64 // vibrato depth (cents)
	ShimmerFilterQ     float64 // bandpass resonance

	// Analysis settings
	FeelSmoothing  float64 // per-second smoothing factor for mood feel values
	BandSmoothing  float64 // per-second smoothing factor for band energies
	BeatThreshold  float64 // bass ratio over trailing average that flags a beat
	BeatRefractory float64 // minimum spacing between beat flags (seconds)
	PeakDecay      float64 // peak impact decay per second
}
