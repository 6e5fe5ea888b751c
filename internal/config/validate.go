package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/auction"
	"github.com/talgya/spell-market/internal/economy"
	"github.com/talgya/spell-market/internal/engine"
)

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	check(c.Simulation.Agents > 0, "simulation.agents must be positive, got %d", c.Simulation.Agents)
	check(c.Simulation.Days >= 0, "simulation.days must not be negative, got %d", c.Simulation.Days)
	check(c.Simulation.Interval >= 0, "simulation.interval must not be negative")

	m := c.Market
	check(m.MaxPrice > 0, "market.max_price must be positive, got %v", m.MaxPrice)
	check(m.PriceIncrement > 0, "market.price_increment must be positive, got %v", m.PriceIncrement)
	check(m.Damping > 0 && m.Damping <= 1, "market.damping must be in (0, 1], got %v", m.Damping)
	check(m.ReservationPrice >= 0, "market.reservation_price must not be negative, got %v", m.ReservationPrice)
	check(m.MaxClearingAttempts >= 1, "market.max_clearing_attempts must be at least 1, got %d", m.MaxClearingAttempts)
	check(m.PriceSimulations >= 0, "market.price_simulations must not be negative, got %d", m.PriceSimulations)
	check(m.TradeRounds >= 0, "market.trade_rounds must not be negative, got %d", m.TradeRounds)
	if _, err := economy.ParseClearingRule(m.ClearingRule); err != nil {
		errs = append(errs, fmt.Errorf("market.clearing_rule: %w", err))
	}

	a := c.Agents
	check(a.MinimumProfitCostRatio >= 0, "agents.minimum_profit_cost_ratio must not be negative, got %v", a.MinimumProfitCostRatio)
	check(a.MinimumProfit >= 0, "agents.minimum_profit must not be negative, got %v", a.MinimumProfit)
	check(a.Regeneration >= 0, "agents.regeneration must not be negative, got %v", a.Regeneration)
	check(a.ReassessProbability >= 0 && a.ReassessProbability <= 1, "agents.reassess_probability must be in [0, 1], got %v", a.ReassessProbability)
	check(a.LearningRate >= 0, "agents.learning_rate must not be negative, got %v", a.LearningRate)
	check(a.SkillStdDev >= 0, "agents.skill_stddev must not be negative, got %v", a.SkillStdDev)

	au := c.Auction
	check(au.Sellers >= 0 && au.Buyers >= 0, "auction: trader counts must not be negative")
	check(au.MaxCost >= 0 && au.MaxRedemption >= 0, "auction: value bounds must not be negative")
	check(au.Turns >= 0 && au.MaxActs >= 0, "auction: turns and max_acts must not be negative")

	goods, err := c.goods()
	if err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}

	if _, ok := goods.Lookup(a.SubsistenceGood); !ok {
		errs = append(errs, fmt.Errorf("agents.subsistence_good: unknown good %q", a.SubsistenceGood))
	}
	if _, err := vectorFor(goods, a.Subsistence, "agents.subsistence"); err != nil {
		errs = append(errs, err)
	}
	if _, err := vectorFor(goods, m.InitialPrices, "market.initial_prices"); err != nil {
		errs = append(errs, err)
	}

	table, err := c.table(goods)
	if err != nil {
		errs = append(errs, err)
	} else if err := table.Validate(goods); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) goods() (economy.Goods, error) {
	if len(c.Goods) == 0 {
		return nil, errors.New("goods: at least one good is required")
	}
	seen := make(map[string]bool, len(c.Goods))
	for _, g := range c.Goods {
		if g == "" {
			return nil, errors.New("goods: empty good name")
		}
		if seen[g] {
			return nil, fmt.Errorf("goods: duplicate good %q", g)
		}
		seen[g] = true
	}
	return economy.Goods(c.Goods), nil
}

// vectorFor converts a name-keyed map into a vector; unknown names and
// negative quantities are errors.
func vectorFor(goods economy.Goods, m map[string]float64, field string) (economy.Vector, error) {
	v := economy.NewVector(goods.Len())
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		g, ok := goods.Lookup(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown good %q", field, name))
			continue
		}
		if m[name] < 0 {
			errs = append(errs, fmt.Errorf("%s: negative quantity for %q", field, name))
			continue
		}
		v[g] = m[name]
	}
	return v, errors.Join(errs...)
}

func (c *Config) table(goods economy.Goods) (economy.Table, error) {
	if len(c.Technologies) == 0 {
		return nil, errors.New("technologies: at least one technology is required")
	}
	var errs []error
	table := make(economy.Table, 0, len(c.Technologies))
	for i, tc := range c.Technologies {
		name := tc.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		out, ok := goods.Lookup(tc.OutputGood)
		if !ok {
			errs = append(errs, fmt.Errorf("technology %s: unknown output good %q", name, tc.OutputGood))
			continue
		}
		inputs, err := vectorFor(goods, tc.Inputs, "technology "+name+" inputs")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		table = append(table, economy.Technology{
			Name:             name,
			OutputMultiplier: tc.OutputMultiplier,
			OutputGood:       out,
			FixedCost:        tc.FixedCost,
			Inputs:           inputs,
		})
	}
	return table, errors.Join(errs...)
}

// Rules builds the shared agent parameters. Call only on a validated config.
func (c *Config) Rules() (*agents.Rules, error) {
	goods, err := c.goods()
	if err != nil {
		return nil, err
	}
	table, err := c.table(goods)
	if err != nil {
		return nil, err
	}
	subsistence, err := vectorFor(goods, c.Agents.Subsistence, "agents.subsistence")
	if err != nil {
		return nil, err
	}
	subGood, _ := goods.Lookup(c.Agents.SubsistenceGood)

	return &agents.Rules{
		Goods:                  goods,
		Table:                  table,
		MinimumProfitCostRatio: c.Agents.MinimumProfitCostRatio,
		MinimumProfit:          c.Agents.MinimumProfit,
		Regeneration:           c.Agents.Regeneration,
		Subsistence:            subsistence,
		SubsistenceGood:        subGood,
		ReassessProbability:    c.Agents.ReassessProbability,
		LearningRate:           c.Agents.LearningRate,
	}, nil
}

// Spawn returns the initial population parameters.
func (c *Config) Spawn() agents.SpawnConfig {
	return agents.SpawnConfig{
		Seed:         c.Simulation.Seed,
		SkillMean:    c.Agents.SkillMean,
		SkillStdDev:  c.Agents.SkillStdDev,
		InitialMagic: c.Agents.InitialMagic,
	}
}

// Clearing returns the price discovery parameters.
func (c *Config) Clearing() engine.ClearingParams {
	rule, _ := economy.ParseClearingRule(c.Market.ClearingRule)
	return engine.ClearingParams{
		MaxPrice:         c.Market.MaxPrice,
		PriceIncrement:   c.Market.PriceIncrement,
		Damping:          c.Market.Damping,
		ReservationPrice: c.Market.ReservationPrice,
		MaxAttempts:      c.Market.MaxClearingAttempts,
		Rule:             rule,
		Workers:          c.Simulation.Workers,
	}
}

// Schedule returns the rounds per day.
func (c *Config) Schedule() engine.Schedule {
	return engine.Schedule{
		PriceSimulations: c.Market.PriceSimulations,
		TradeRounds:      c.Market.TradeRounds,
	}
}

// InitialPrices returns the starting price vector; goods not listed start at 1.
func (c *Config) InitialPrices() (economy.Prices, error) {
	goods, err := c.goods()
	if err != nil {
		return nil, err
	}
	prices := economy.NewVector(goods.Len())
	for g := range prices {
		prices[g] = 1
	}
	for name, p := range c.Market.InitialPrices {
		g, ok := goods.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("market.initial_prices: unknown good %q", name)
		}
		prices[g] = p
	}
	return prices, nil
}

// Session returns the double auction parameters, seeded from the
// simulation seed.
func (c *Config) Session() auction.SessionConfig {
	return auction.SessionConfig{
		Goods:         1,
		Sellers:       c.Auction.Sellers,
		Buyers:        c.Auction.Buyers,
		MaxCost:       c.Auction.MaxCost,
		MaxRedemption: c.Auction.MaxRedemption,
		InitialMoney:  c.Auction.InitialMoney,
		Turns:         c.Auction.Turns,
		MaxActs:       c.Auction.MaxActs,
		Seed:          c.Simulation.Seed,
	}
}
