package economy

import (
	"fmt"
	"sort"
)

// Offer is a seller's ask for one round: Quantity units of Good at Price or more.
type Offer struct {
	Good     Good    `json:"good"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// ClearingRule selects how a clearing price is derived from the sorted offers.
type ClearingRule uint8

const (
	// ClearAverage takes the mean price of every offer up to and including
	// the one at which cumulative supply first covers demand.
	ClearAverage ClearingRule = iota
	// ClearMarginal takes the price of that single offer.
	ClearMarginal
)

// ParseClearingRule accepts "average" or "marginal".
func ParseClearingRule(s string) (ClearingRule, error) {
	switch s {
	case "", "average":
		return ClearAverage, nil
	case "marginal":
		return ClearMarginal, nil
	default:
		return 0, fmt.Errorf("unknown clearing rule %q", s)
	}
}

func (r ClearingRule) String() string {
	if r == ClearMarginal {
		return "marginal"
	}
	return "average"
}

// GroupOffers splits offers by good and sorts each group ascending by price.
// Offers for goods outside [0, numGoods) are dropped. Ties keep input order.
func GroupOffers(offers []Offer, numGoods int) [][]Offer {
	groups := make([][]Offer, numGoods)
	for _, o := range offers {
		if int(o.Good) < 0 || int(o.Good) >= numGoods {
			continue
		}
		groups[o.Good] = append(groups[o.Good], o)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Price < g[j].Price
		})
	}
	return groups
}

// ClearingPrice scans offers (sorted ascending by price) accumulating
// quantity until it covers demand. It returns the price per rule and true,
// or false when total supply falls short of demand.
func ClearingPrice(sorted []Offer, demand float64, rule ClearingRule) (float64, bool) {
	cum := 0.0
	priceSum := 0.0
	for i, o := range sorted {
		cum += o.Quantity
		priceSum += o.Price
		if cum >= demand {
			if rule == ClearMarginal {
				return o.Price, true
			}
			return priceSum / float64(i+1), true
		}
	}
	return 0, false
}

// TotalQuantity sums the offered quantity of a group.
func TotalQuantity(offers []Offer) float64 {
	sum := 0.0
	for _, o := range offers {
		sum += o.Quantity
	}
	return sum
}
