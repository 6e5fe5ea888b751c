// Package engine provides price discovery, trade settlement, the daily
// schedule and the run loop that drives it.
package engine

import (
	"context"
	"log/slog"
	"time"
)

// Engine drives a Market forward one day at a time.
type Engine struct {
	Market   *Market
	Interval time.Duration // minimum wall time per day; 0 runs flat out

	// OnDay is called after every completed day with a copy of its snapshot.
	OnDay func(snap Snapshot)
}

// NewEngine creates an engine for m with no pacing.
func NewEngine(m *Market) *Engine {
	return &Engine{Market: m}
}

// Run simulates days days. It stops early only if ctx is cancelled, in
// which case the partially simulated day is discarded from the report but
// agent state may already reflect it.
func (e *Engine) Run(ctx context.Context, days int) error {
	slog.Info("simulation engine started",
		"run", e.Market.RunID,
		"days", days,
		"agents", e.Market.Population(),
		"goods", e.Market.Rules.Goods.Len(),
		"technologies", len(e.Market.Rules.Table),
	)

	for d := 0; d < days; d++ {
		start := time.Now()

		snap, err := e.Market.Day(ctx)
		if err != nil {
			slog.Info("simulation engine stopped", "run", e.Market.RunID, "day", d, "reason", err)
			return err
		}
		if e.OnDay != nil {
			e.OnDay(snap)
		}

		// Sleep for the remainder of the day interval.
		if e.Interval > 0 {
			if elapsed := time.Since(start); elapsed < e.Interval {
				select {
				case <-ctx.Done():
					slog.Info("simulation engine stopped", "run", e.Market.RunID, "day", d+1, "reason", ctx.Err())
					return ctx.Err()
				case <-time.After(e.Interval - elapsed):
				}
			}
		}
	}

	slog.Info("simulation engine finished", "run", e.Market.RunID, "days", e.Market.History.Len())
	return nil
}
