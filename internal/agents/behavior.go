// Agent behavior: technology choice, cost/value analysis, offers and learning.
package agents

import (
	"math"

	"github.com/talgya/spell-market/internal/economy"
	"github.com/talgya/spell-market/internal/entropy"
)

// ChooseWork re-evaluates the agent's technology at the given prices.
// An idle agent always decides; a working agent re-decides with
// probability ReassessProbability and otherwise keeps its choice.
func (a *Agent) ChooseWork(prices economy.Prices) {
	if a.Working() && a.rng.Float64() >= a.rules.ReassessProbability {
		return
	}

	profits := a.Profits(prices)
	a.Spell = economy.NoTech
	if id, ok := entropy.WeightedChoice(a.rng, profits); ok {
		a.Spell = economy.TechID(id)
	}
}

// Profits returns Profit for every technology in table order.
func (a *Agent) Profits(prices economy.Prices) []float64 {
	profits := make([]float64, len(a.rules.Table))
	for i := range a.rules.Table {
		profits[i] = a.Profit(economy.TechID(i), prices)
	}
	return profits
}

// Profit is the marked-up surplus of a technology, never below zero.
func (a *Agent) Profit(id economy.TechID, prices economy.Prices) float64 {
	cost, value := a.CostValue(id, prices)
	return math.Max(0, (value-cost)*a.rules.MinimumProfitCostRatio)
}

// CostValue prices one round of production with technology id.
// When the output is the subsistence good, the agent feeds itself first:
// the self-supplied amount is removed from both what it sells and what it
// must buy. Regeneration is free income and is netted out of cost.
func (a *Agent) CostValue(id economy.TechID, prices economy.Prices) (cost, value float64) {
	tech := a.rules.Table.Get(id)

	inputs := tech.Inputs.Clone()
	inputs.Add(a.rules.Subsistence)

	produced := tech.OutputMultiplier * a.Skills[id]
	if tech.OutputGood == a.rules.SubsistenceGood {
		self := math.Min(produced, inputs[tech.OutputGood])
		produced -= self
		inputs[tech.OutputGood] -= self
	}

	cost = tech.FixedCost + prices.Dot(inputs) - a.rules.Regeneration
	value = prices[tech.OutputGood] * produced
	return cost, value
}

// Produced is the output of the chosen technology at the agent's skill.
func (a *Agent) Produced() float64 {
	if !a.Working() {
		return 0
	}
	return a.rules.Table.Get(a.Spell).OutputMultiplier * a.Skills[a.Spell]
}

// Demand is the goods the agent buys this round: the technology's inputs
// plus subsistence, or nothing when idle.
func (a *Agent) Demand() economy.Vector {
	d := economy.NewVector(a.rules.Goods.Len())
	if !a.Working() {
		return d
	}
	d.Add(a.rules.Table.Get(a.Spell).Inputs)
	d.Add(a.rules.Subsistence)
	return d
}

// Supply is the agent's ask for this round. The asking price is the
// marked-up cost, floored at MinimumProfit. Idle agents make no offer.
func (a *Agent) Supply(prices economy.Prices) (economy.Offer, bool) {
	if !a.Working() {
		return economy.Offer{}, false
	}
	cost, _ := a.CostValue(a.Spell, prices)
	return economy.Offer{
		Good:     a.rules.Table.Get(a.Spell).OutputGood,
		Price:    math.Max(a.rules.MinimumProfit, a.rules.MinimumProfitCostRatio*cost),
		Quantity: a.Produced(),
	}, true
}

// Sleep regenerates the agent's magic for a new day.
func (a *Agent) Sleep() {
	a.Magic += a.rules.Regeneration
}

// Settle applies a round's net income. Negative balances are allowed.
func (a *Agent) Settle(net float64) {
	a.Magic += net
}

// Practice improves the skill of the technology in use with diminishing
// returns. Other skills are untouched.
func (a *Agent) Practice() {
	if !a.Working() {
		return
	}
	s := a.Skills[a.Spell]
	a.Skills[a.Spell] = math.Sqrt(s*s + a.rules.LearningRate)
}

// Insolvent reports whether the agent has spent more magic than it holds.
func (a *Agent) Insolvent() bool {
	return a.Magic < 0
}
