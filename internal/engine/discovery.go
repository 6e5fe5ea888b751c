// Price discovery: simultaneous multi-good tâtonnement over agent offers.
package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/spell-market/internal/economy"
)

// Participant is anything that offers and demands goods in a clearing round.
// *agents.Agent implements it.
type Participant interface {
	ChooseWork(prices economy.Prices)
	Demand() economy.Vector
	Supply(prices economy.Prices) (economy.Offer, bool)
}

// ClearingParams tunes the price discovery loop.
type ClearingParams struct {
	MaxPrice         float64
	PriceIncrement   float64 // max per-round move toward target; push for unmet goods
	Damping          float64 // all prices scale by this before an unmet retry
	ReservationPrice float64 // price of the synthetic zero-quantity offer per good
	MaxAttempts      int     // retry bound before a round is reported unconverged
	Rule             economy.ClearingRule
	Workers          int // goroutines collecting offers; <= 1 collects inline
}

// DefaultClearingParams returns the stock constants, with the retry
// loop bounded.
func DefaultClearingParams() ClearingParams {
	return ClearingParams{
		MaxPrice:         100.0,
		PriceIncrement:   3.0,
		Damping:          1.0 / 1.4,
		ReservationPrice: 0.5,
		MaxAttempts:      100,
		Rule:             economy.ClearAverage,
		Workers:          1,
	}
}

// Round is the outcome of one completed discovery call.
type Round struct {
	Supply    economy.Vector // total offered quantity per good
	Demand    economy.Vector // total demanded quantity per good
	Attempts  int            // collection passes used, >= 1
	Converged bool           // false when MaxAttempts ran out
	Unmet     []economy.Good // goods short on the final attempt
}

// PriceDiscovery clears all goods simultaneously against a participant set.
type PriceDiscovery struct {
	Params  ClearingParams
	Goods   economy.Goods
	Metrics *Metrics // optional
}

// collected is one participant's contribution to a round.
type collected struct {
	demand economy.Vector
	offer  economy.Offer
	ok     bool
}

// Discover runs collection and clearing until every good's demand is
// covered by supply or the retry bound is hit. prices is updated in place
// and always ends within [0, MaxPrice]. The only error is ctx cancellation.
func (d *PriceDiscovery) Discover(ctx context.Context, prices economy.Prices, ps []Participant) (Round, error) {
	n := d.Goods.Len()
	maxAttempts := d.Params.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var round Round
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return round, err
		}

		contrib, err := d.collect(ctx, prices, ps)
		if err != nil {
			return round, err
		}

		// Ordered reduction keeps float sums identical for any worker count.
		demand := economy.NewVector(n)
		offers := make([]economy.Offer, 0, len(contrib)+n)
		for _, c := range contrib {
			demand.Add(c.demand)
			if c.ok {
				offers = append(offers, c.offer)
			}
		}
		for g := 0; g < n; g++ {
			offers = append(offers, economy.Offer{Good: economy.Good(g), Price: d.Params.ReservationPrice})
		}

		groups := economy.GroupOffers(offers, n)
		supply := economy.NewVector(n)
		var unmet []economy.Good
		for g := 0; g < n; g++ {
			supply[g] = economy.TotalQuantity(groups[g])
			target, ok := economy.ClearingPrice(groups[g], demand[g], d.Params.Rule)
			if !ok {
				unmet = append(unmet, economy.Good(g))
				continue
			}
			step := economy.Clamp(target-prices[g], -d.Params.PriceIncrement, d.Params.PriceIncrement)
			prices[g] = economy.Clamp(prices[g]+step, 0, d.Params.MaxPrice)
		}

		round = Round{
			Supply:    supply,
			Demand:    demand,
			Attempts:  attempt,
			Converged: len(unmet) == 0,
			Unmet:     unmet,
		}
		if round.Converged {
			d.Metrics.recordRound(ctx, round, prices, d.Goods)
			return round, nil
		}

		// Undo some of the accumulated over-correction, then push the short goods.
		prices.Scale(d.Params.Damping)
		for _, g := range unmet {
			prices[g] += d.Params.PriceIncrement
		}
		for g := range prices {
			prices[g] = economy.Clamp(prices[g], 0, d.Params.MaxPrice)
		}
		slog.Debug("demand not met by supply, retrying",
			"attempt", attempt,
			"unmet", goodNames(d.Goods, unmet),
		)
	}

	slog.Warn("clearing did not converge",
		"attempts", round.Attempts,
		"unmet", goodNames(d.Goods, round.Unmet),
		"prices", []float64(prices),
	)
	d.Metrics.recordRound(ctx, round, prices, d.Goods)
	return round, nil
}

// collect asks every participant to reconsider its work at prices and
// gathers demand and offers, indexed by participant.
func (d *PriceDiscovery) collect(ctx context.Context, prices economy.Prices, ps []Participant) ([]collected, error) {
	out := make([]collected, len(ps))
	gather := func(i int) {
		p := ps[i]
		p.ChooseWork(prices)
		offer, ok := p.Supply(prices)
		out[i] = collected{demand: p.Demand(), offer: offer, ok: ok}
	}

	if d.Params.Workers <= 1 || len(ps) < 2 {
		for i := range ps {
			gather(i)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Params.Workers)
	for i := range ps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gather(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func goodNames(goods economy.Goods, gs []economy.Good) []string {
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = goods.Name(g)
	}
	return names
}
