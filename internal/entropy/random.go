// Package entropy provides seedable random streams and the
// cumulative-distribution sampler behind profit-weighted choices.
// Every stochastic decision in the simulation draws from a Source so that a
// fixed seed reproduces a run exactly.
package entropy

import (
	"math/rand"
)

// Source is the randomness an agent needs. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

// Stream offsets keep independent consumers of one master seed from
// sharing a sequence.
const (
	StreamSpawn   int64 = 300
	StreamAgent   int64 = 1_000_003
	StreamAuction int64 = 500
)

// New returns a deterministic source for seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Derive returns the source for one member of a stream, e.g. one agent.
// The same (seed, stream, id) always yields the same sequence.
func Derive(seed, stream int64, id uint64) *rand.Rand {
	return New(seed + stream*int64(id+1))
}

// WeightedChoice draws an index with probability proportional to its
// weight. Non-positive weights are never chosen. It returns false when no
// weight is positive, so callers never normalise by zero.
func WeightedChoice(src Source, weights []float64) (int, bool) {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1, false
	}

	target := src.Float64() * total
	cum := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if target < cum {
			return i, true
		}
	}
	// Rounding can leave target == total; fall back to the last positive weight.
	return last, true
}

// Fixed is a scripted Source for tests: Float64 cycles through Values and
// NormFloat64 cycles through Normals.
type Fixed struct {
	Values  []float64
	Normals []float64
	i, j    int
}

// Float64 returns the next scripted uniform value (0 when none are scripted).
func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.i%len(f.Values)]
	f.i++
	return v
}

// NormFloat64 returns the next scripted normal value (0 when none are scripted).
func (f *Fixed) NormFloat64() float64 {
	if len(f.Normals) == 0 {
		return 0
	}
	v := f.Normals[f.j%len(f.Normals)]
	f.j++
	return v
}
