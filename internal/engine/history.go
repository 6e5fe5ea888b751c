// History recorder: append-only daily snapshots for external consumers.
package engine

import (
	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/economy"
)

// Snapshot is the state of the market at the end of one simulated day.
// Price, Supply and Demand are averaged over the day's trade rounds.
type Snapshot struct {
	Day        int              `json:"day"`
	Price      economy.Vector   `json:"price"`
	Supply     economy.Vector   `json:"supply"`
	Demand     economy.Vector   `json:"demand"`
	Skills     [][]float64      `json:"skills"`     // per agent, per technology
	Occupation []economy.TechID `json:"occupation"` // per agent; NoTech when idle
	Magic      []float64        `json:"magic"`      // per agent
	Converged  bool             `json:"converged"`  // every trade round cleared
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Price = s.Price.Clone()
	out.Supply = s.Supply.Clone()
	out.Demand = s.Demand.Clone()
	out.Skills = make([][]float64, len(s.Skills))
	for i, row := range s.Skills {
		out.Skills[i] = append([]float64(nil), row...)
	}
	out.Occupation = append([]economy.TechID(nil), s.Occupation...)
	out.Magic = append([]float64(nil), s.Magic...)
	return out
}

// History is the growable, append-only series of daily snapshots.
type History struct {
	days []Snapshot
}

// NewHistory pre-allocates room for capacity days.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{days: make([]Snapshot, 0, capacity)}
}

// Len returns the number of recorded days.
func (h *History) Len() int {
	return len(h.days)
}

// Day returns a copy of the snapshot for day i (0-based).
func (h *History) Day(i int) (Snapshot, bool) {
	if i < 0 || i >= len(h.days) {
		return Snapshot{}, false
	}
	return h.days[i].Clone(), true
}

// Last returns a copy of the most recent snapshot.
func (h *History) Last() (Snapshot, bool) {
	return h.Day(len(h.days) - 1)
}

// All returns copies of every snapshot in day order.
func (h *History) All() []Snapshot {
	out := make([]Snapshot, len(h.days))
	for i, s := range h.days {
		out[i] = s.Clone()
	}
	return out
}

// dayTotals accumulates per-round figures for averaging.
type dayTotals struct {
	price, supply, demand economy.Vector
	rounds                int
	converged             bool
}

func newDayTotals(n int) *dayTotals {
	return &dayTotals{
		price:     economy.NewVector(n),
		supply:    economy.NewVector(n),
		demand:    economy.NewVector(n),
		converged: true,
	}
}

func (t *dayTotals) add(prices economy.Prices, r Round) {
	t.price.Add(prices)
	t.supply.Add(r.Supply)
	t.demand.Add(r.Demand)
	t.rounds++
	t.converged = t.converged && r.Converged
}

// record appends the averaged totals and the population's end-of-day state.
func (h *History) record(t *dayTotals, population []*agents.Agent) Snapshot {
	price, supply, demand := t.price.Clone(), t.supply.Clone(), t.demand.Clone()
	if t.rounds > 0 {
		inv := 1.0 / float64(t.rounds)
		price.Scale(inv)
		supply.Scale(inv)
		demand.Scale(inv)
	}

	snap := Snapshot{
		Day:        len(h.days),
		Price:      price,
		Supply:     supply,
		Demand:     demand,
		Skills:     make([][]float64, len(population)),
		Occupation: make([]economy.TechID, len(population)),
		Magic:      make([]float64, len(population)),
		Converged:  t.converged,
	}
	for i, a := range population {
		snap.Skills[i] = append([]float64(nil), a.Skills...)
		snap.Occupation[i] = a.Spell
		snap.Magic[i] = a.Magic
	}

	h.days = append(h.days, snap)
	return snap.Clone()
}
