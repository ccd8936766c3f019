package seed

// Rng is a splitmix64 generator. It is not safe for concurrent use; each
// generation call owns its own instance.
type Rng struct {
	state uint64
}

// NewRng returns a generator starting at the given state.
func NewRng(seed uint64) *Rng {
	return &Rng{state: seed}
}

// Uint64 returns the next 64-bit word.
func (r *Rng) Uint64() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a value in [0, 1) built from the top 53 bits.
func (r *Rng) Float64() float64 {
	return float64(r.Uint64()>>11) * (1.0 / (1 << 53))
}

// Int returns a value in [min, max). An empty range returns min.
// The modulo reduction is slightly biased and must stay that way so that
// existing seeds keep producing the same output.
func (r *Rng) Int(min, max int) int {
	if max <= min {
		return min
	}
	n := uint64(max - min)
	return min + int(r.Uint64()%n)
}

// Pick returns a uniformly chosen element, or "" for an empty list.
func (r *Rng) Pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[r.Int(0, len(list))]
}
