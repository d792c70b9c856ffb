package wildcard

import "math/rand/v2"

// SeedSequence derives a stream of independent RNG instances from one base
// seed. Every draw advances an internal counter by exactly one and builds a
// fresh generator from the advanced value, so a given base seed reproduces an
// entire resolution tree bit-for-bit. The relative order in which draws are
// consumed is part of the resolver's compatibility contract and must not be
// reordered.
type SeedSequence struct {
	seed uint64
}

// NewSeedSequence returns a sequence starting at base. The first generator
// handed out is derived from base+1.
func NewSeedSequence(base uint64) *SeedSequence {
	return &SeedSequence{seed: base}
}

// Next advances the counter and returns a new generator seeded from the
// advanced value. This is the only way randomness enters the resolver.
func (s *SeedSequence) Next() *rand.Rand {
	s.seed++
	return rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
}

// IntN consumes one draw and returns an integer in the inclusive range
// [lo, hi]. If hi <= lo it returns lo without consuming a draw.
func (s *SeedSequence) IntN(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	rng := s.Next()
	return lo + rng.IntN(hi-lo+1)
}

// Pick consumes one draw and returns a random element of items, or "" for an
// empty slice.
func (s *SeedSequence) Pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	rng := s.Next()
	return items[rng.IntN(len(items))]
}
