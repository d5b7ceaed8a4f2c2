package engine

import "math/rand"

// RNG is the session's deterministic dice. Its position counts draws from
// the underlying source, so a saved (seed, position) pair reproduces the
// exact sequence after a restore.
type RNG struct {
	seed int64
	src  *countingSource
	r    *rand.Rand
}

type countingSource struct {
	rand.Source
	n int64
}

func (c *countingSource) Int63() int64 {
	c.n++
	return c.Source.Int63()
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	src := &countingSource{Source: rand.NewSource(seed)}
	return &RNG{seed: seed, src: src, r: rand.New(src)}
}

// Roll returns a random integer in [1, sides], or 0 when sides < 1.
func (r *RNG) Roll(sides int) int {
	if sides < 1 {
		return 0
	}
	return r.r.Intn(sides) + 1
}

// WeightedSelect returns an index chosen by weighted random selection.
// Non-positive weights are never chosen; -1 means nothing was selectable.
func (r *RNG) WeightedSelect(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	roll := r.r.Intn(total)
	cumulative := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of source draws since creation.
func (r *RNG) Position() int64 {
	return r.src.n
}

// RestoreRNG creates an RNG and advances it to the given position.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for rng.src.n < position {
		rng.src.Int63()
	}
	return rng
}
