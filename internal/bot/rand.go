package bot

import "math/rand/v2"

// rng is the random source owned by a single engine or strategy instance.
// Seed it explicitly for reproducible play; it is not safe for concurrent use.
type rng struct {
	r *rand.Rand
}

// newRng returns a PCG-backed source. A zero seed picks a random one.
func newRng(seed uint64) *rng {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &rng{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *rng) intn(n int) int {
	return g.r.IntN(n)
}

func (g *rng) float64() float64 {
	return g.r.Float64()
}

// percent returns true with probability p/100.
func (g *rng) percent(p int) bool {
	return g.r.IntN(100) < p
}

// shuffle applies a uniform random permutation to s.
func shuffle[T any](g *rng, s []T) {
	g.r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
