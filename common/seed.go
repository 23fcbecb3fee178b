package common

// SeededRNG implements a Mulberry32 seeded pseudo-random number generator.
// Every piece of per-instance variation in the engine (detune spread, timing
// jitter, pattern humanization) draws from one of these so a session can be
// reproduced from its seed.
type SeededRNG struct {
	state       uint32
	initialSeed uint32
}

// NewSeededRNG creates a new seeded random number generator.
func NewSeededRNG(seed uint32) *SeededRNG {
	return &SeededRNG{
		state:       seed,
		initialSeed: seed,
	}
}

// SetSeed sets a new seed and resets the generator state.
func (r *SeededRNG) SetSeed(seed uint32) {
	r.state = seed
	r.initialSeed = seed
}

// Reset resets the generator to its initial seed.
func (r *SeededRNG) Reset() {
	r.state = r.initialSeed
}

// Random generates the next random number using the Mulberry32 algorithm.
// Returns a float64 between 0 (inclusive) and 1 (exclusive).
func (r *SeededRNG) Random() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64((t^(t>>14))>>0) / 4294967296.0
}

// RandomFloat generates a random float in the specified range [min, max).
func (r *SeededRNG) RandomFloat(min, max float64) float64 {
	return r.Random()*(max-min) + min
}

// RandomInt generates a random integer in the specified range [min, max).
func (r *SeededRNG) RandomInt(min, max int) int {
	return int(r.Random()*float64(max-min)) + min
}

// Chance reports true with probability p.
func (r *SeededRNG) Chance(p float64) bool {
	return r.Random() < p
}

// Jitter returns a value in [-amount, amount), used for timing humanization
// and detune spread.
func (r *SeededRNG) Jitter(amount float64) float64 {
	return (r.Random()*2 - 1) * amount
}

// Pick returns a random index into a collection of length n.
func (r *SeededRNG) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Random() * float64(n))
}
