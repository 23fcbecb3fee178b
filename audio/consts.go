package audio

// EngineConfig is the shipped tuning. Values follow the same register as the
// mood table: gains well under unity so many simultaneous layers sum cleanly
// into the compressor.
var EngineConfig = Config{
	// Master chain settings
	MasterVolume:   0.7,
	VolumeRampTC:   0.05,
	PlayFadeIn:     1.2,
	PlayFadeOut:    0.8,
	ToneFilterHz:   9000,
	ToneFilterQ:    0.7,
	ReverbSend:     0.35,
	ReverbReturn:   0.8,
	CompThreshold:  -18,
	CompRatio:      3,
	CompKnee:       12,
	CompAttack:     0.01,
	CompRelease:    0.25,
	LimitThreshold: -2,
	LimitRatio:     20,

	// Transition settings
	StopFadeFraction: 0.2,
	ParamRampFrac:    0.6,
	AddStagger:       0.12,
	RebuildFade:      0.15,

	// Scheduling settings
	Lookahead:        0.05,
	DiagInterval:     5.0,
	MaxModuleFailure: 3,

	// Drone pad settings
	PadVolumeMax:   0.16,
	PadFilterLFOHz: 0.05,
	PadFilterMod:   200,
	PadDetuneCents: 10,
	PadVoicesMin:   2,
	PadVoicesMax:   5,

	// Sub drone settings
	DroneVolumeMax: 0.3,
	DroneWobbleHz:  0.07,
	DroneWobble:    0.8,

	// Bass line settings
	BassVolumeMax:  0.22,
	BassDetune:     8,
	BassFilterQ:    4,
	BassGlide:      0.08,
	BassHoldChance: 0.2,
	BassSkipChance: 0.5,

	// Arpeggio settings
	ArpVolumeMax:  0.12,
	ArpAttack:     0.1,
	ArpRelease:    1.5,
	ArpDetune:     0.01,
	ArpJumpChance: 0.3,

	// Percussion settings
	PercVolumeMax: 0.25,
	PercDecay:     0.18,
	PercJitter:    0.012,
	PercFilterQ:   6,

	// Noise bed settings
	NoiseVolumeMax: 0.1,
	NoiseFilterQ:   1.2,
	NoiseDriftRate: 40,

	// Shimmer settings
	ShimmerVolumeMax:   0.08,
	ShimmerVibratoRate: 0.4,
	ShimmerVibratoCent: 6,
	ShimmerFilterQ:     2,

	// Analysis settings
	FeelSmoothing:  1.5,
	BandSmoothing:  8,
	BeatThreshold:  1.4,
	BeatRefractory: 0.25,
	PeakDecay:      2.5,
}

// MapDial maps a 0-100 dial linearly onto [min, max]. Every dial-derived
// parameter in every module goes through this one helper.
func MapDial(dial, min, max float64) float64 {
	if dial < 0 {
		dial = 0
	}
	if dial > 100 {
		dial = 100
	}
	return min + (max-min)*dial/100
}
