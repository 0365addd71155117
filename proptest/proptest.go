// Package proptest provides seeded random generation for property-based
// tests. Properties are checked over many random inputs; on failure the seed
// is logged so the run can be reproduced with PROPTEST_SEED.
package proptest

import (
	"math/rand"
	"time"
)

// Generator wraps a seeded random source. The seed is kept so failures can
// be reproduced.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New creates a Generator. A zero seed means time-based.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed this generator was created with.
func (g *Generator) Seed() int64 { return g.seed }

// Intn returns a random int in [0, n). Panics if n <= 0.
func (g *Generator) Intn(n int) int { return g.rng.Intn(n) }

// IntRange returns a random int in [min, max]. Panics if min > max.
func (g *Generator) IntRange(min, max int) int {
	if min > max {
		panic("proptest: IntRange min > max")
	}
	if min == max {
		return min
	}
	return min + g.rng.Intn(max-min+1)
}

// Bool returns a random boolean.
func (g *Generator) Bool() bool { return g.rng.Intn(2) == 1 }

const (
	identStart = "abcdefghijklmnopqrstuvwxyz_"
	identBody  = "abcdefghijklmnopqrstuvwxyz0123456789_"
)

// Identifier returns a lowercase identifier of length [1, maxLen]: a letter
// or underscore followed by letters, digits and underscores.
func (g *Generator) Identifier(maxLen int) string {
	if maxLen <= 0 {
		maxLen = 1
	}
	b := make([]byte, g.IntRange(1, maxLen))
	b[0] = identStart[g.Intn(len(identStart))]
	for i := 1; i < len(b); i++ {
		b[i] = identBody[g.Intn(len(identBody))]
	}
	return string(b)
}

// UniqueIdentifiers returns n distinct identifiers. It may return fewer if
// the space is too small for the requested length.
func (g *Generator) UniqueIdentifiers(n, maxLen int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for i := 0; i < n*10 && len(out) < n; i++ {
		s := g.Identifier(maxLen)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Pick returns a random element of a non-empty slice.
func Pick[T any](g *Generator, slice []T) T {
	return slice[g.Intn(len(slice))]
}

// Slice generates a slice of length [0, maxLen] using gen.
func Slice[T any](g *Generator, maxLen int, gen func(*Generator) T) []T {
	out := make([]T, g.IntRange(0, maxLen))
	for i := range out {
		out[i] = gen(g)
	}
	return out
}
