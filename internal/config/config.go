// Package config loads simulation settings from defaults, an optional YAML
// file and MARKETSIM_ environment variables, and turns them into the
// parameter structs the engine runs on.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/auction"
	"github.com/talgya/spell-market/internal/economy"
	"github.com/talgya/spell-market/internal/engine"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates levels: MARKETSIM_MARKET__MAX_PRICE sets market.max_price.
const EnvPrefix = "MARKETSIM_"

type Config struct {
	Log          LogConfig          `koanf:"log" yaml:"log"`
	Telemetry    TelemetryConfig    `koanf:"telemetry" yaml:"telemetry"`
	Simulation   SimulationConfig   `koanf:"simulation" yaml:"simulation"`
	Market       MarketConfig       `koanf:"market" yaml:"market"`
	Agents       AgentConfig        `koanf:"agents" yaml:"agents"`
	Auction      AuctionConfig      `koanf:"auction" yaml:"auction"`
	Goods        []string           `koanf:"goods" yaml:"goods"`
	Technologies []TechnologyConfig `koanf:"technologies" yaml:"technologies"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled  bool          `koanf:"enabled" yaml:"enabled"`
	Interval time.Duration `koanf:"interval" yaml:"interval"` // metric export period
}

type SimulationConfig struct {
	Agents   int           `koanf:"agents" yaml:"agents"`
	Days     int           `koanf:"days" yaml:"days"`
	Seed     int64         `koanf:"seed" yaml:"seed"`
	Workers  int           `koanf:"workers" yaml:"workers"`
	Interval time.Duration `koanf:"interval" yaml:"interval"` // wall time per day; 0 = flat out
}

type MarketConfig struct {
	MaxPrice            float64            `koanf:"max_price" yaml:"max_price"`
	PriceIncrement      float64            `koanf:"price_increment" yaml:"price_increment"`
	Damping             float64            `koanf:"damping" yaml:"damping"`
	ReservationPrice    float64            `koanf:"reservation_price" yaml:"reservation_price"`
	MaxClearingAttempts int                `koanf:"max_clearing_attempts" yaml:"max_clearing_attempts"`
	ClearingRule        string             `koanf:"clearing_rule" yaml:"clearing_rule"` // average, marginal
	PriceSimulations    int                `koanf:"price_simulations" yaml:"price_simulations"`
	TradeRounds         int                `koanf:"trade_rounds" yaml:"trade_rounds"`
	InitialPrices       map[string]float64 `koanf:"initial_prices" yaml:"initial_prices"` // missing goods start at 1
}

type AgentConfig struct {
	MinimumProfitCostRatio float64            `koanf:"minimum_profit_cost_ratio" yaml:"minimum_profit_cost_ratio"`
	MinimumProfit          float64            `koanf:"minimum_profit" yaml:"minimum_profit"`
	Regeneration           float64            `koanf:"regeneration" yaml:"regeneration"`
	ReassessProbability    float64            `koanf:"reassess_probability" yaml:"reassess_probability"`
	LearningRate           float64            `koanf:"learning_rate" yaml:"learning_rate"`
	InitialMagic           float64            `koanf:"initial_magic" yaml:"initial_magic"`
	SkillMean              float64            `koanf:"skill_mean" yaml:"skill_mean"`
	SkillStdDev            float64            `koanf:"skill_stddev" yaml:"skill_stddev"`
	SubsistenceGood        string             `koanf:"subsistence_good" yaml:"subsistence_good"`
	Subsistence            map[string]float64 `koanf:"subsistence" yaml:"subsistence"`
}

// AuctionConfig sizes the single-good double auction run by -auction.
type AuctionConfig struct {
	Sellers       int     `koanf:"sellers" yaml:"sellers"`
	Buyers        int     `koanf:"buyers" yaml:"buyers"`
	MaxCost       float64 `koanf:"max_cost" yaml:"max_cost"`
	MaxRedemption float64 `koanf:"max_redemption" yaml:"max_redemption"`
	InitialMoney  float64 `koanf:"initial_money" yaml:"initial_money"`
	Turns         int     `koanf:"turns" yaml:"turns"`
	MaxActs       int     `koanf:"max_acts" yaml:"max_acts"`
}

type TechnologyConfig struct {
	Name             string             `koanf:"name" yaml:"name"`
	OutputMultiplier float64            `koanf:"output_multiplier" yaml:"output_multiplier"`
	OutputGood       string             `koanf:"output_good" yaml:"output_good"`
	FixedCost        float64            `koanf:"fixed_cost" yaml:"fixed_cost"`
	Inputs           map[string]float64 `koanf:"inputs" yaml:"inputs"`
}

// Load reads configuration. path may be empty to use defaults and
// environment only. The result is validated; any problem is fatal.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.fillEconomy(k.Exists("goods"), k.Exists("technologies"), k.Exists("agents.subsistence")); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.interval", "1m")

	k.Set("simulation.agents", 100)
	k.Set("simulation.days", 30)
	k.Set("simulation.seed", 42)
	k.Set("simulation.workers", 1)
	k.Set("simulation.interval", "0s")

	clearing := engine.DefaultClearingParams()
	k.Set("market.max_price", clearing.MaxPrice)
	k.Set("market.price_increment", clearing.PriceIncrement)
	k.Set("market.damping", clearing.Damping)
	k.Set("market.reservation_price", clearing.ReservationPrice)
	k.Set("market.max_clearing_attempts", clearing.MaxAttempts)
	k.Set("market.clearing_rule", clearing.Rule.String())
	schedule := engine.DefaultSchedule()
	k.Set("market.price_simulations", schedule.PriceSimulations)
	k.Set("market.trade_rounds", schedule.TradeRounds)

	rules := agents.DefaultRules()
	spawn := agents.DefaultSpawnConfig()
	k.Set("agents.minimum_profit_cost_ratio", rules.MinimumProfitCostRatio)
	k.Set("agents.minimum_profit", rules.MinimumProfit)
	k.Set("agents.regeneration", rules.Regeneration)
	k.Set("agents.reassess_probability", rules.ReassessProbability)
	k.Set("agents.learning_rate", rules.LearningRate)
	k.Set("agents.initial_magic", spawn.InitialMagic)
	k.Set("agents.skill_mean", spawn.SkillMean)
	k.Set("agents.skill_stddev", spawn.SkillStdDev)
	k.Set("agents.subsistence_good", "food")

	session := auction.DefaultSessionConfig()
	k.Set("auction.sellers", session.Sellers)
	k.Set("auction.buyers", session.Buyers)
	k.Set("auction.max_cost", session.MaxCost)
	k.Set("auction.max_redemption", session.MaxRedemption)
	k.Set("auction.initial_money", session.InitialMoney)
	k.Set("auction.turns", session.Turns)
	k.Set("auction.max_acts", session.MaxActs)
}

// fillEconomy supplies the default goods, spell list and subsistence
// basket when the sources left them out. A custom good list needs its own
// technologies since the defaults refer to water, wood and food.
func (c *Config) fillEconomy(haveGoods, haveTechs, haveSubsistence bool) error {
	if !haveGoods {
		c.Goods = economy.DefaultGoods()
	}
	if !haveTechs {
		if haveGoods {
			return errors.New("invalid config: technologies are required when goods are set")
		}
		c.Technologies = defaultTechnologies()
	}
	if !haveSubsistence {
		c.Agents.Subsistence = map[string]float64{c.Agents.SubsistenceGood: 1.0}
	}
	return nil
}

func defaultTechnologies() []TechnologyConfig {
	goods := economy.DefaultGoods()
	var out []TechnologyConfig
	for _, t := range economy.DefaultTable() {
		inputs := make(map[string]float64)
		for g, q := range t.Inputs {
			if q != 0 {
				inputs[goods.Name(economy.Good(g))] = q
			}
		}
		out = append(out, TechnologyConfig{
			Name:             t.Name,
			OutputMultiplier: t.OutputMultiplier,
			OutputGood:       goods.Name(t.OutputGood),
			FixedCost:        t.FixedCost,
			Inputs:           inputs,
		})
	}
	return out
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	return yamlv3.Marshal(c)
}
