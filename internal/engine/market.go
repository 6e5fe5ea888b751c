// Market ties the agent population, price vector and history together and
// runs the daily schedule: sleep, exploratory clearing, clearing with trade,
// snapshot.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/economy"
)

// Schedule sets how many rounds make up a day.
type Schedule struct {
	PriceSimulations int // discovery-only rounds; agents adapt, nobody trades
	TradeRounds      int // discovery followed by settlement
}

// DefaultSchedule returns seven exploratory rounds and three trading rounds.
func DefaultSchedule() Schedule {
	return Schedule{PriceSimulations: 7, TradeRounds: 3}
}

// Market holds the complete simulation state. It owns the agents and the
// price vector: only discovery writes prices and only trade writes agents.
// Readers get copies through Prices and Agents.
type Market struct {
	RunID    string
	Rules    *agents.Rules
	History  *History
	Schedule Schedule

	// Statistics for the most recent day.
	Stats DayStats

	agents       []*agents.Agent
	prices       economy.Prices
	discovery    *PriceDiscovery
	participants []Participant
	metrics      *Metrics
}

// DayStats summarises the population at the end of a day.
type DayStats struct {
	Day         int     `json:"day"`
	Working     int     `json:"working"`
	Idle        int     `json:"idle"`
	Insolvent   int     `json:"insolvent"`
	TotalMagic  float64 `json:"total_magic"`
	AvgSkill    float64 `json:"avg_skill"`
	Unconverged int     `json:"unconverged"` // clearing rounds that hit the retry bound
}

// NewMarket creates a market over population starting at initialPrices.
// metrics may be nil.
func NewMarket(rules *agents.Rules, population []*agents.Agent, initialPrices economy.Prices,
	clearing ClearingParams, schedule Schedule, historyDays int, metrics *Metrics) (*Market, error) {
	if len(initialPrices) != rules.Goods.Len() {
		return nil, fmt.Errorf("initial prices: got %d entries, want %d", len(initialPrices), rules.Goods.Len())
	}

	prices := initialPrices.Clone()
	for g := range prices {
		prices[g] = economy.Clamp(prices[g], 0, clearing.MaxPrice)
	}

	participants := make([]Participant, len(population))
	for i, a := range population {
		participants[i] = a
	}

	return &Market{
		RunID:    uuid.NewString(),
		Rules:    rules,
		History:  NewHistory(historyDays),
		Schedule: schedule,
		agents:   population,
		prices:   prices,
		discovery: &PriceDiscovery{
			Params:  clearing,
			Goods:   rules.Goods,
			Metrics: metrics,
		},
		participants: participants,
		metrics:      metrics,
	}, nil
}

// Prices returns a copy of the current price vector.
func (m *Market) Prices() economy.Prices {
	return m.prices.Clone()
}

// Agents returns a copy of every agent's state in population order.
func (m *Market) Agents() []agents.State {
	out := make([]agents.State, len(m.agents))
	for i, a := range m.agents {
		out[i] = a.State()
	}
	return out
}

// Population is the number of agents.
func (m *Market) Population() int {
	return len(m.agents)
}

// ChoosePrices runs one price discovery round over the population.
func (m *Market) ChoosePrices(ctx context.Context) (Round, error) {
	return m.discovery.Discover(ctx, m.prices, m.participants)
}

// Trade settles the population at the current prices.
func (m *Market) Trade() {
	Trade(m.prices, m.agents)
}

// Day simulates one day and returns a copy of its snapshot.
func (m *Market) Day(ctx context.Context) (Snapshot, error) {
	for _, a := range m.agents {
		a.Sleep()
	}

	unconverged := 0
	for i := 0; i < m.Schedule.PriceSimulations; i++ {
		r, err := m.ChoosePrices(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if !r.Converged {
			unconverged++
		}
	}

	totals := newDayTotals(m.Rules.Goods.Len())
	for i := 0; i < m.Schedule.TradeRounds; i++ {
		r, err := m.ChoosePrices(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if !r.Converged {
			unconverged++
		}
		m.Trade()
		totals.add(m.prices, r)
	}

	snap := m.History.record(totals, m.agents)
	m.updateStats(snap.Day, unconverged)
	m.metrics.recordDay(ctx, m.Stats.Insolvent)
	m.report()
	return snap, nil
}

func (m *Market) updateStats(day, unconverged int) {
	stats := DayStats{Day: day, Unconverged: unconverged}
	skillSum, skillCount := 0.0, 0
	for _, a := range m.agents {
		if a.Working() {
			stats.Working++
		} else {
			stats.Idle++
		}
		if a.Insolvent() {
			stats.Insolvent++
		}
		stats.TotalMagic += a.Magic
		for _, s := range a.Skills {
			skillSum += s
			skillCount++
		}
	}
	if skillCount > 0 {
		stats.AvgSkill = skillSum / float64(skillCount)
	}
	m.Stats = stats
}

func (m *Market) report() {
	attrs := []any{
		"run", m.RunID,
		"day", m.Stats.Day,
		"working", m.Stats.Working,
		"idle", m.Stats.Idle,
		"insolvent", m.Stats.Insolvent,
		"total_magic", fmt.Sprintf("%.2f", m.Stats.TotalMagic),
		"avg_skill", fmt.Sprintf("%.3f", m.Stats.AvgSkill),
		"unconverged", m.Stats.Unconverged,
	}
	for g, p := range m.prices {
		attrs = append(attrs, "price_"+m.Rules.Goods.Name(economy.Good(g)), fmt.Sprintf("%.3f", p))
	}
	slog.Info("daily report", attrs...)
}
