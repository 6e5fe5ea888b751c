package engine

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/economy"
)

func twoGoodRules() *agents.Rules {
	const (
		water economy.Good = 0
		food  economy.Good = 1
	)
	return &agents.Rules{
		Goods: economy.Goods{"water", "food"},
		Table: economy.Table{
			{Name: "draw-water", OutputMultiplier: 10, OutputGood: water, FixedCost: 3, Inputs: economy.Vector{0, 0}},
			{Name: "conjure-food", OutputMultiplier: 1.5, OutputGood: food, FixedCost: 12, Inputs: economy.Vector{0, 0}},
			{Name: "garden", OutputMultiplier: 5, OutputGood: food, FixedCost: 2, Inputs: economy.Vector{1, 0}},
		},
		MinimumProfitCostRatio: 1.2,
		MinimumProfit:          2.0,
		Regeneration:           10,
		Subsistence:            economy.Vector{0, 1},
		SubsistenceGood:        food,
		ReassessProbability:    0.2,
		LearningRate:           0.2,
	}
}

// Final prices of the three-agent, two-good economy after ten days at seed
// 42 with DefaultClearingParams. Both goods settle where the first ask to
// cover demand is a seller at the 2.0 minimum-profit floor, so the average
// rule lands on (0.5 + 2.0) / 2, after water spikes near 2.8 on the seventh
// day.
// The figures come from replaying the run step by step; the tolerance
// allows for fused multiply-add on some architectures.
const (
	threeAgentWaterPrice = 1.25
	threeAgentFoodPrice  = 1.25
	threeAgentTolerance  = 0.05
)

func newTestMarket(t *testing.T, seed int64, agentCount, workers int, rules *agents.Rules) *Market {
	t.Helper()
	spawn := agents.DefaultSpawnConfig()
	spawn.Seed = seed
	population := agents.NewSpawner(spawn, rules).SpawnPopulation(agentCount)

	clearing := DefaultClearingParams()
	clearing.Workers = workers

	initial := economy.NewVector(rules.Goods.Len())
	for g := range initial {
		initial[g] = 1
	}
	m, err := NewMarket(rules, population, initial, clearing, DefaultSchedule(), 16, nil)
	if err != nil {
		t.Fatalf("NewMarket: %v", err)
	}
	return m
}

func runDays(t *testing.T, m *Market, days int) {
	t.Helper()
	if err := NewEngine(m).Run(context.Background(), days); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunsAreDeterministic(t *testing.T) {
	a := newTestMarket(t, 42, 25, 1, agents.DefaultRules())
	b := newTestMarket(t, 42, 25, 1, agents.DefaultRules())
	runDays(t, a, 6)
	runDays(t, b, 6)

	if !reflect.DeepEqual(a.History.All(), b.History.All()) {
		t.Fatal("identical seeds produced different histories")
	}
	if !reflect.DeepEqual(a.prices, b.prices) {
		t.Errorf("final prices differ: %v vs %v", a.prices, b.prices)
	}
}

func TestParallelCollectionMatchesSequential(t *testing.T) {
	seq := newTestMarket(t, 7, 40, 1, agents.DefaultRules())
	par := newTestMarket(t, 7, 40, 8, agents.DefaultRules())
	runDays(t, seq, 4)
	runDays(t, par, 4)

	if !reflect.DeepEqual(seq.History.All(), par.History.All()) {
		t.Fatal("parallel collection changed the outcome")
	}
}

func TestThreeAgentsTwoGoodsTenDays(t *testing.T) {
	m := newTestMarket(t, 42, 3, 1, twoGoodRules())
	initial := make([][]float64, len(m.agents))
	for i, a := range m.agents {
		initial[i] = append([]float64(nil), a.Skills...)
	}

	var seen int
	e := NewEngine(m)
	e.OnDay = func(Snapshot) { seen++ }
	if err := e.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen != 10 || m.History.Len() != 10 {
		t.Fatalf("callbacks=%d history=%d, want 10", seen, m.History.Len())
	}

	want := economy.Prices{threeAgentWaterPrice, threeAgentFoodPrice}
	for g, p := range m.Prices() {
		if math.IsNaN(p) || math.Abs(p-want[g]) > threeAgentTolerance {
			t.Errorf("final %s price = %v, want %v ± %v", m.Rules.Goods.Name(economy.Good(g)), p, want[g], threeAgentTolerance)
		}
	}

	prev := initial
	for d, snap := range m.History.All() {
		if snap.Day != d {
			t.Errorf("snapshot %d has day %d", d, snap.Day)
		}
		for i := range snap.Skills {
			for tech, s := range snap.Skills[i] {
				if s < prev[i][tech] {
					t.Errorf("day %d agent %d tech %d: skill fell %v -> %v", d, i, tech, prev[i][tech], s)
				}
			}
			// The end-of-day occupation is the technology used in the last
			// trade round, so its skill must have grown.
			if occ := snap.Occupation[i]; occ != economy.NoTech && !(snap.Skills[i][occ] > prev[i][occ]) {
				t.Errorf("day %d agent %d worked tech %d but skill did not grow", d, i, occ)
			}
		}
		prev = snap.Skills
	}
}

func TestIdleAgentsKeepTheirSkills(t *testing.T) {
	rules := twoGoodRules()
	for i := range rules.Table {
		rules.Table[i].FixedCost = 1e6 // never worth doing
	}
	m := newTestMarket(t, 3, 5, 1, rules)
	before := make([][]float64, len(m.agents))
	for i, a := range m.agents {
		before[i] = append([]float64(nil), a.Skills...)
	}

	runDays(t, m, 3)

	for _, snap := range m.History.All() {
		for i, occ := range snap.Occupation {
			if occ != economy.NoTech {
				t.Fatalf("agent %d chose tech %d despite no profit", i, occ)
			}
		}
		if !snap.Demand.IsZero() || !snap.Supply.IsZero() {
			t.Errorf("day %d: idle market has demand %v supply %v", snap.Day, snap.Demand, snap.Supply)
		}
	}
	for i, a := range m.agents {
		if !reflect.DeepEqual(a.Skills, before[i]) {
			t.Errorf("agent %d skills changed while idle: %v -> %v", i, before[i], a.Skills)
		}
		// Three sleeps and no trade.
		if a.Magic != 30+3*rules.Regeneration {
			t.Errorf("agent %d magic = %v", i, a.Magic)
		}
	}
}

func TestSnapshotsAreReadOnly(t *testing.T) {
	m := newTestMarket(t, 1, 4, 1, agents.DefaultRules())
	runDays(t, m, 1)

	snap, ok := m.History.Last()
	if !ok {
		t.Fatal("no snapshot recorded")
	}
	snap.Price[0] = -99
	snap.Skills[0][0] = -99
	snap.Occupation[0] = 99

	again, _ := m.History.Day(0)
	if again.Price[0] == -99 || again.Skills[0][0] == -99 || again.Occupation[0] == 99 {
		t.Fatal("mutating a returned snapshot changed recorded history")
	}
	if _, ok := m.History.Day(5); ok {
		t.Error("Day(5) should not exist")
	}
}

func TestTradeSettlesAndTeaches(t *testing.T) {
	m := newTestMarket(t, 9, 1, 1, twoGoodRules())
	a := m.agents[0]
	a.Spell = 2 // garden
	a.Skills[2] = 2
	a.Magic = 0
	m.prices = economy.Prices{1, 3}

	m.Trade()

	// Buys 1 water + 1 food = 4, sells 10 food = 30.
	if a.Magic != 26 {
		t.Errorf("magic = %v, want 26", a.Magic)
	}
	if a.Skills[2] != math.Sqrt(4.2) {
		t.Errorf("skill = %v, want %v", a.Skills[2], math.Sqrt(4.2))
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	m := newTestMarket(t, 11, 2, 1, twoGoodRules())
	runDays(t, m, 1)

	prices := m.Prices()
	prices[0] = -1
	if m.prices[0] == -1 {
		t.Error("writing to Prices() changed the market")
	}

	states := m.Agents()
	if len(states) != m.Population() {
		t.Fatalf("Agents() = %d states, want %d", len(states), m.Population())
	}
	states[0].Skills[0] = -1
	states[0].Magic = -1e9
	if m.agents[0].Skills[0] == -1 || m.agents[0].Magic == -1e9 {
		t.Error("writing to Agents() changed the population")
	}
	if states[1].ID != m.agents[1].ID || states[1].Spell != m.agents[1].Spell {
		t.Errorf("state %+v does not match agent %d", states[1], m.agents[1].ID)
	}
}

func TestNewMarketRejectsBadPrices(t *testing.T) {
	rules := twoGoodRules()
	_, err := NewMarket(rules, nil, economy.Prices{1}, DefaultClearingParams(), DefaultSchedule(), 0, nil)
	if err == nil {
		t.Fatal("expected error for short price vector")
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	m := newTestMarket(t, 5, 3, 1, twoGoodRules())
	ctx, cancel := context.WithCancel(context.Background())

	e := NewEngine(m)
	e.Interval = time.Hour
	e.OnDay = func(Snapshot) { cancel() }

	if err := e.Run(ctx, 100); err == nil {
		t.Fatal("expected cancellation error")
	}
	if m.History.Len() != 1 {
		t.Errorf("history = %d days, want 1", m.History.Len())
	}
}

func TestMetricsRecordWithoutProvider(t *testing.T) {
	metrics, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	rules := twoGoodRules()
	population := agents.NewSpawner(agents.DefaultSpawnConfig(), rules).SpawnPopulation(3)
	m, err := NewMarket(rules, population, economy.Prices{1, 1}, DefaultClearingParams(), DefaultSchedule(), 2, metrics)
	if err != nil {
		t.Fatalf("NewMarket: %v", err)
	}
	runDays(t, m, 2)
	if m.Stats.Day != 1 {
		t.Errorf("stats day = %d, want 1", m.Stats.Day)
	}
	if m.Stats.Working+m.Stats.Idle != 3 {
		t.Errorf("working+idle = %d, want 3", m.Stats.Working+m.Stats.Idle)
	}
}
