// Package economy provides goods, price vectors, production technologies,
// and the per-good clearing scan used by the market.
package economy

import "fmt"

// Good identifies a tradeable good by its index in the good list.
// Indices are stable for a simulation run.
type Good int

// Goods is the ordered list of good names for a run.
type Goods []string

// DefaultGoods is the stock three-good economy.
func DefaultGoods() Goods {
	return Goods{"water", "wood", "food"}
}

// Len returns the number of goods.
func (g Goods) Len() int { return len(g) }

// Name returns the display name for a good, or "good#N" for unknown indices.
func (g Goods) Name(good Good) string {
	if int(good) < 0 || int(good) >= len(g) {
		return fmt.Sprintf("good#%d", int(good))
	}
	return g[good]
}

// Lookup resolves a good by name.
func (g Goods) Lookup(name string) (Good, bool) {
	for i, n := range g {
		if n == name {
			return Good(i), true
		}
	}
	return 0, false
}

// Vector holds one quantity (or price) per good.
type Vector []float64

// NewVector returns a zero vector sized for n goods.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Dot returns the inner product of v and w. Extra components of the
// longer vector are ignored.
func (v Vector) Dot(w Vector) float64 {
	n := len(v)
	if len(w) < n {
		n = len(w)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += v[i] * w[i]
	}
	return sum
}

// Add accumulates w into v in place.
func (v Vector) Add(w Vector) {
	for i := range v {
		if i < len(w) {
			v[i] += w[i]
		}
	}
}

// Scale multiplies every component of v by f in place.
func (v Vector) Scale(f float64) {
	for i := range v {
		v[i] *= f
	}
}

// IsZero reports whether every component is exactly zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Prices is the market price vector, indexed by Good.
type Prices = Vector

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
