package auction

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/spell-market/internal/entropy"
)

// SessionConfig controls a zero-intelligence trading session.
type SessionConfig struct {
	Goods         int
	Sellers       int
	Buyers        int
	MaxCost       float64 // seller costs are uniform in [0, MaxCost)
	MaxRedemption float64 // buyer values are uniform in [0, MaxRedemption)
	InitialMoney  float64
	Turns         int // each turn opens a fresh book with every trader active
	MaxActs       int // actions per turn before it closes regardless
	Seed          int64
}

// DefaultSessionConfig returns fifty traders a side over six turns.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Goods:         1,
		Sellers:       50,
		Buyers:        50,
		MaxCost:       2.0,
		MaxRedemption: 2.0,
		InitialMoney:  10.0,
		Turns:         6,
		MaxActs:       10000,
		Seed:          42,
	}
}

// Session owns the traders and the trade log.
type Session struct {
	cfg     SessionConfig
	rng     *rand.Rand
	Sellers []*Trader
	Buyers  []*Trader
	Trades  []Trade
	// TurnStarts[i] is the index into Trades of turn i's first trade.
	TurnStarts []int
}

// NewSession draws the trader population.
func NewSession(cfg SessionConfig) *Session {
	rng := entropy.New(cfg.Seed + entropy.StreamAuction)
	s := &Session{cfg: cfg, rng: rng}

	id := 0
	newTrader := func(role Role, maxValue float64) *Trader {
		values := make([]float64, cfg.Goods)
		for g := range values {
			values[g] = rng.Float64() * maxValue
		}
		id++
		return &Trader{ID: id, Role: role, Values: values, MaxValue: maxValue, Money: cfg.InitialMoney}
	}
	for i := 0; i < cfg.Sellers; i++ {
		s.Sellers = append(s.Sellers, newTrader(RoleSeller, cfg.MaxCost))
	}
	for i := 0; i < cfg.Buyers; i++ {
		s.Buyers = append(s.Buyers, newTrader(RoleBuyer, cfg.MaxRedemption))
	}
	return s
}

// Run plays every turn. Within a turn a random active trader acts; both
// sides of a trade leave the turn.
func (s *Session) Run(ctx context.Context) error {
	for turn := 0; turn < s.cfg.Turns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.TurnStarts = append(s.TurnStarts, len(s.Trades))

		active := make([]*Trader, 0, len(s.Sellers)+len(s.Buyers))
		active = append(active, s.Sellers...)
		active = append(active, s.Buyers...)
		book := NewBook(s.cfg.Goods)

		for acts := 0; acts < s.cfg.MaxActs && len(active) > 0; acts++ {
			t := active[s.rng.Intn(len(active))]
			trade, ok := s.act(t, book)
			if !ok {
				continue
			}
			s.Trades = append(s.Trades, trade)
			active = remove(active, trade.Seller)
			active = remove(active, trade.Buyer)
		}

		slog.Debug("auction turn closed", "turn", turn, "trades", len(s.Trades)-s.TurnStarts[turn], "active", len(active))
	}
	return nil
}

// act submits one random quote for t.
func (s *Session) act(t *Trader, book *Book) (Trade, bool) {
	good := s.rng.Intn(s.cfg.Goods)
	switch t.Role {
	case RoleSeller:
		return book.Ask(t, good, s.rng.Float64()*t.Values[good])
	default:
		offer := t.Values[good] + s.rng.Float64()*(t.MaxValue-t.Values[good])
		if offer > t.Money {
			return Trade{}, false
		}
		return book.Bid(t, good, offer)
	}
}

func remove(ts []*Trader, t *Trader) []*Trader {
	for i, x := range ts {
		if x == t {
			return append(ts[:i], ts[i+1:]...)
		}
	}
	return ts
}

// Prices returns the executed prices for good in trade order.
func (s *Session) Prices(good int) []float64 {
	var out []float64
	for _, tr := range s.Trades {
		if tr.Good == good {
			out = append(out, tr.Price)
		}
	}
	return out
}

// EquilibriumPrice is the competitive price implied by the traders'
// values for good: walking sellers up by cost and buyers down by value,
// it is the cost of the first seller whose cost exceeds its paired
// buyer's value. It returns false when the curves never cross.
func EquilibriumPrice(sellers, buyers []*Trader, good int) (float64, bool) {
	costs := make([]float64, len(sellers))
	for i, t := range sellers {
		costs[i] = t.Values[good]
	}
	values := make([]float64, len(buyers))
	for i, t := range buyers {
		values[i] = t.Values[good]
	}
	sort.Float64s(costs)
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	n := len(costs)
	if len(values) < n {
		n = len(values)
	}
	for i := 0; i < n; i++ {
		if values[i] < costs[i] {
			return costs[i], true
		}
	}
	return 0, false
}

// Summary describes the executed prices of one good.
type Summary struct {
	Trades      int       `json:"trades"`
	Mean        float64   `json:"mean"`
	StdDev      float64   `json:"std_dev"`
	Equilibrium float64   `json:"equilibrium"`
	HasEquil    bool      `json:"has_equilibrium"`
	TurnRMSE    []float64 `json:"turn_rmse"` // distance from equilibrium per turn
}

// Summarize computes price statistics for good.
func (s *Session) Summarize(good int) Summary {
	prices := s.Prices(good)
	sum := Summary{Trades: len(prices)}
	sum.Equilibrium, sum.HasEquil = EquilibriumPrice(s.Sellers, s.Buyers, good)
	if len(prices) == 0 {
		return sum
	}

	for _, p := range prices {
		sum.Mean += p
	}
	sum.Mean /= float64(len(prices))
	for _, p := range prices {
		sum.StdDev += (p - sum.Mean) * (p - sum.Mean)
	}
	sum.StdDev = math.Sqrt(sum.StdDev / float64(len(prices)))

	if !sum.HasEquil {
		return sum
	}
	for turn, start := range s.TurnStarts {
		end := len(s.Trades)
		if turn+1 < len(s.TurnStarts) {
			end = s.TurnStarts[turn+1]
		}
		sq, n := 0.0, 0
		for _, tr := range s.Trades[start:end] {
			if tr.Good != good {
				continue
			}
			d := tr.Price - sum.Equilibrium
			sq += d * d
			n++
		}
		if n > 0 {
			sum.TurnRMSE = append(sum.TurnRMSE, math.Sqrt(sq/float64(n)))
		} else {
			sum.TurnRMSE = append(sum.TurnRMSE, 0)
		}
	}
	return sum
}
