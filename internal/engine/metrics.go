package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/talgya/spell-market/internal/economy"
)

// Metrics records clearing behavior through the global OpenTelemetry meter
// provider. With no provider installed every instrument is a no-op.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts     metric.Int64Histogram
	unconverged  metric.Int64Counter
	price        metric.Float64Gauge
	days         metric.Int64Counter
	insolvencies metric.Int64Gauge
}

// NewMetrics creates the market instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("spell-market/engine")

	attempts, err := meter.Int64Histogram(
		"market.clearing.attempts",
		metric.WithDescription("Collection passes needed to clear a round"),
	)
	if err != nil {
		return nil, err
	}

	unconverged, err := meter.Int64Counter(
		"market.clearing.unconverged",
		metric.WithDescription("Rounds that hit the retry bound with unmet demand"),
	)
	if err != nil {
		return nil, err
	}

	price, err := meter.Float64Gauge(
		"market.price",
		metric.WithDescription("Price per good after the latest clearing round"),
	)
	if err != nil {
		return nil, err
	}

	days, err := meter.Int64Counter(
		"market.days",
		metric.WithDescription("Simulated days completed"),
	)
	if err != nil {
		return nil, err
	}

	insolvencies, err := meter.Int64Gauge(
		"market.agents.insolvent",
		metric.WithDescription("Agents with negative magic at end of day"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		attempts:     attempts,
		unconverged:  unconverged,
		price:        price,
		days:         days,
		insolvencies: insolvencies,
	}, nil
}

func (m *Metrics) recordRound(ctx context.Context, r Round, prices economy.Prices, goods economy.Goods) {
	if m == nil {
		return
	}
	m.attempts.Record(ctx, int64(r.Attempts))
	if !r.Converged {
		m.unconverged.Add(ctx, 1)
	}
	for g, p := range prices {
		m.price.Record(ctx, p, metric.WithAttributes(attribute.String("good", goods.Name(economy.Good(g)))))
	}
}

func (m *Metrics) recordDay(ctx context.Context, insolvent int) {
	if m == nil {
		return
	}
	m.days.Add(ctx, 1)
	m.insolvencies.Record(ctx, int64(insolvent))
}
