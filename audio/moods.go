package audio

import "sort"

// ModuleDial is one module's entry in a mood: which module, and its three
// 0-100 dials. Volume scales the module's output gain, occurrence scales
// event density/probability, intensity scales effect strength and voice
// counts.
type ModuleDial struct {
	Key        string
	Volume     float64
	Occurrence float64
	Intensity  float64
}

// RhythmStep is one step of a percussion pattern.
type RhythmStep struct {
	Probability float64 // 0-1 chance the hit fires
	Velocity    float64 // 0-1 accent
}

// MoodParams is the per-mood parameter bag shared by every module in the
// mood. Modules merge these over their built-in defaults.
type MoodParams struct {
	Tempo     float64   // BPM for event-scheduling modules
	ScaleName string    // display name of the scale
	Scale     []float64 // scale frequencies (Hz), low to high
	BaseFreq  float64   // root frequency (Hz)

	FilterMin float64 // low end of the mood's filter cutoff range (Hz)
	FilterMax float64 // high end of the mood's filter cutoff range (Hz)

	Attack  float64 // default module attack (seconds)
	Release float64 // default module release (seconds)

	ReverbTime  float64 // shared reverb impulse length (seconds)
	ReverbDecay float64 // shared reverb decay exponent

	Rhythm    []RhythmStep // percussion pattern, one step per 16th
	BassNotes []float64    // bass line sequence (Hz)
	Chord     []float64    // sustained chord tones (Hz)

	// ResetPatterns restarts pattern cursors from zero when the mood
	// changes. Off by default: sequences continue across transitions
	// unless a structural rebuild forces a restart.
	ResetPatterns bool

	// Mood feel scalars consumed by the visual layer, 0-1.
	Movement   float64
	Fluidity   float64
	Dreaminess float64
	Intensity  float64
}

// Mood is a named preset: the active module set with its dials, plus the
// shared parameter bag.
type Mood struct {
	Name    string
	Modules []ModuleDial
	Params  MoodParams
}

// DefaultMoodKey is the mood the engine starts in.
const DefaultMoodKey = "calm"

// Moods is the static mood configuration table.
var Moods = map[string]*Mood{
	"calm": {
		Name: "Calm",
		Modules: []ModuleDial{
			{Key: "pad", Volume: 100, Occurrence: 50, Intensity: 30},
			{Key: "noisebed", Volume: 45, Occurrence: 50, Intensity: 25},
			{Key: "shimmer", Volume: 35, Occurrence: 40, Intensity: 30},
		},
		Params: MoodParams{
			Tempo:     58,
			ScaleName: "A minor pentatonic",
			Scale:     []float64{220.0, 261.63, 293.66, 329.63, 392.0, 440.0},
			BaseFreq:  110.0,
			FilterMin: 280, FilterMax: 1400,
			Attack: 2.5, Release: 3.5,
			ReverbTime: 2.8, ReverbDecay: 2.2,
			Chord:      []float64{220.0, 261.63, 329.63, 392.0},
			Movement:   0.25, Fluidity: 0.8, Dreaminess: 0.7, Intensity: 0.2,
		},
	},
	"cosmic": {
		Name: "Cosmic",
		Modules: []ModuleDial{
			{Key: "pad", Volume: 80, Occurrence: 50, Intensity: 70},
			{Key: "drone", Volume: 90, Occurrence: 50, Intensity: 60},
			{Key: "shimmer", Volume: 60, Occurrence: 60, Intensity: 70},
			{Key: "arpeggio", Volume: 55, Occurrence: 45, Intensity: 50},
		},
		Params: MoodParams{
			Tempo:     50,
			ScaleName: "D dorian",
			Scale:     []float64{146.83, 174.61, 196.0, 220.0, 246.94, 293.66, 349.23},
			BaseFreq:  73.42,
			FilterMin: 200, FilterMax: 2400,
			Attack: 3.5, Release: 5.0,
			ReverbTime: 4.5, ReverbDecay: 1.8,
			Chord:      []float64{146.83, 174.61, 220.0, 261.63},
			Movement:   0.35, Fluidity: 0.9, Dreaminess: 0.95, Intensity: 0.35,
		},
	},
	"storm": {
		Name: "Storm",
		Modules: []ModuleDial{
			{Key: "drone", Volume: 85, Occurrence: 50, Intensity: 85},
			{Key: "bassline", Volume: 75, Occurrence: 70, Intensity: 75},
			{Key: "percussion", Volume: 70, Occurrence: 80, Intensity: 85},
			{Key: "noisebed", Volume: 80, Occurrence: 60, Intensity: 80},
		},
		Params: MoodParams{
			Tempo:     96,
			ScaleName: "E phrygian",
			Scale:     []float64{82.41, 87.31, 98.0, 110.0, 123.47, 130.81, 146.83},
			BaseFreq:  41.2,
			FilterMin: 120, FilterMax: 3200,
			Attack: 0.8, Release: 1.6,
			ReverbTime: 1.6, ReverbDecay: 3.0,
			Rhythm: []RhythmStep{
				{1.0, 1.0}, {0, 0}, {0.25, 0.4}, {0, 0},
				{0.7, 0.7}, {0, 0}, {0.3, 0.5}, {0.5, 0.6},
				{1.0, 0.9}, {0, 0}, {0.25, 0.4}, {0, 0},
				{0.7, 0.7}, {0.4, 0.5}, {0.3, 0.4}, {0.6, 0.8},
			},
			BassNotes: []float64{82.41, 82.41, 98.0, 87.31, 82.41, 110.0, 98.0, 87.31},
			Movement:  0.9, Fluidity: 0.3, Dreaminess: 0.15, Intensity: 0.9,
		},
	},
	"night": {
		Name: "Night",
		Modules: []ModuleDial{
			{Key: "pad", Volume: 65, Occurrence: 50, Intensity: 40},
			{Key: "drone", Volume: 70, Occurrence: 50, Intensity: 30},
			{Key: "arpeggio", Volume: 50, Occurrence: 35, Intensity: 40},
			{Key: "percussion", Volume: 35, Occurrence: 30, Intensity: 25},
		},
		Params: MoodParams{
			Tempo:     72,
			ScaleName: "F lydian",
			Scale:     []float64{174.61, 196.0, 220.0, 246.94, 261.63, 293.66, 329.63},
			BaseFreq:  87.31,
			FilterMin: 240, FilterMax: 1800,
			Attack: 1.8, Release: 2.8,
			ReverbTime: 3.2, ReverbDecay: 2.0,
			Rhythm: []RhythmStep{
				{0.8, 0.6}, {0, 0}, {0, 0}, {0.2, 0.3},
				{0, 0}, {0, 0}, {0.5, 0.5}, {0, 0},
				{0.8, 0.6}, {0, 0}, {0.2, 0.3}, {0, 0},
				{0, 0}, {0.4, 0.4}, {0, 0}, {0.2, 0.3},
			},
			Chord:      []float64{174.61, 220.0, 261.63, 329.63},
			Movement:   0.4, Fluidity: 0.6, Dreaminess: 0.6, Intensity: 0.4,
		},
	},
}

// GetMood looks up a mood by key.
func GetMood(key string) (*Mood, error) {
	m, ok := Moods[key]
	if !ok {
		return nil, &ConfigurationError{Key: key}
	}
	return m, nil
}

// MoodKeys returns the available mood keys, sorted.
func MoodKeys() []string {
	keys := make([]string, 0, len(Moods))
	for k := range Moods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateMoods checks that every module key referenced by the mood table has
// a registered factory. Called once at startup so a bad table fails fast
// instead of surfacing mid-transition.
func ValidateMoods() error {
	for key, mood := range Moods {
		for _, dial := range mood.Modules {
			if !HasModule(dial.Key) {
				return &ConfigurationError{Key: key + "/" + dial.Key}
			}
		}
	}
	return nil
}
