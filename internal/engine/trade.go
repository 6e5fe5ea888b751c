// Trade settlement: runs after a discovery round has finalised prices.
package engine

import (
	"github.com/talgya/spell-market/internal/agents"
	"github.com/talgya/spell-market/internal/economy"
)

// Trade settles every agent at the cleared prices: each pays for its demand,
// is paid for its whole output, and producers practise their technology.
func Trade(prices economy.Prices, population []*agents.Agent) {
	for _, a := range population {
		cost := prices.Dot(a.Demand())
		revenue := 0.0
		if offer, ok := a.Supply(prices); ok {
			revenue = prices[offer.Good] * offer.Quantity
		}
		a.Settle(revenue - cost)
		a.Practice()
	}
}
