// Command marketsim runs the spell-market simulation: agents choose
// production spells, prices are found by iterated clearing, and each day
// ends with trade, learning and a logged report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/auction"
	"github.com/talgya/spell-market/internal/config"
	"github.com/talgya/spell-market/internal/engine"
	"github.com/talgya/spell-market/internal/telemetry"
)

const (
	serviceName = "marketsim"
	version     = "0.1.0"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	runAuction := flag.Bool("auction", false, "run the zero-intelligence double auction instead of the clearing market")
	flag.Parse()

	if err := run(*configPath, *printConfig, *runAuction); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run does all the work so that its deferred cleanups (signal handling,
// metric flush) finish before main picks an exit code.
func run(configPath string, printConfig, runAuction bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if printConfig {
		out, err := cfg.Dump()
		if err != nil {
			return fmt.Errorf("dump config: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitMetrics(serviceName, version, os.Stderr, cfg.Telemetry.Interval)
		if err != nil {
			return fmt.Errorf("start metrics: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("metrics shutdown failed", "error", err)
			}
		}()
	}

	if runAuction {
		err = auctionMain(ctx, cfg)
	} else {
		err = marketMain(ctx, cfg)
	}
	if errors.Is(err, context.Canceled) {
		slog.Info("simulation interrupted")
		return nil
	}
	if err != nil {
		slog.Error("simulation failed", "error", err)
	}
	return err
}

func marketMain(ctx context.Context, cfg *config.Config) error {
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	prices, err := cfg.InitialPrices()
	if err != nil {
		return err
	}
	metrics, err := engine.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	population := agents.NewSpawner(cfg.Spawn(), rules).SpawnPopulation(cfg.Simulation.Agents)
	market, err := engine.NewMarket(rules, population, prices, cfg.Clearing(), cfg.Schedule(), cfg.Simulation.Days, metrics)
	if err != nil {
		return err
	}

	slog.Info("market ready",
		"run", market.RunID,
		"agents", len(population),
		"goods", rules.Goods.Len(),
		"technologies", len(rules.Table),
		"seed", cfg.Simulation.Seed,
		"clearing_rule", cfg.Market.ClearingRule,
	)

	eng := engine.NewEngine(market)
	eng.Interval = cfg.Simulation.Interval
	eng.OnDay = func(snap engine.Snapshot) {
		if !snap.Converged {
			slog.Debug("day ended with unconverged clearing", "day", snap.Day)
		}
	}

	fmt.Printf("\nSpell market: %d agents, %d goods, %d spells, %d days.\n",
		len(population), rules.Goods.Len(), len(rules.Table), cfg.Simulation.Days)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	runErr := eng.Run(ctx, cfg.Simulation.Days)

	if last, ok := market.History.Last(); ok {
		fmt.Printf("Simulated %d days. Final prices:", market.History.Len())
		for g, p := range last.Price {
			fmt.Printf(" %s=%.3f", rules.Goods[g], p)
		}
		fmt.Printf("\nWorking %d, idle %d, insolvent %d.\n",
			market.Stats.Working, market.Stats.Idle, market.Stats.Insolvent)
	}
	return runErr
}

func auctionMain(ctx context.Context, cfg *config.Config) error {
	session := auction.NewSession(cfg.Session())
	if err := session.Run(ctx); err != nil {
		return err
	}

	sum := session.Summarize(0)
	slog.Info("auction finished",
		"trades", sum.Trades,
		"mean_price", fmt.Sprintf("%.3f", sum.Mean),
		"std_dev", fmt.Sprintf("%.3f", sum.StdDev),
		"equilibrium", fmt.Sprintf("%.3f", sum.Equilibrium),
		"has_equilibrium", sum.HasEquil,
		"turn_rmse", sum.TurnRMSE,
	)
	fmt.Printf("Double auction: %d trades, mean price %.3f (equilibrium %.3f).\n",
		sum.Trades, sum.Mean, sum.Equilibrium)
	return nil
}
