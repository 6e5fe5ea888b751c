// Package agents provides the producer agent: its skills, magic stock and
// the rules it uses to pick a technology, price its output and learn.
package agents

import (
	"github.com/talgya/spell-market/internal/economy"
	"github.com/talgya/spell-market/internal/entropy"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// Rules holds the economic parameters shared read-only by every agent.
type Rules struct {
	Goods economy.Goods
	Table economy.Table

	MinimumProfitCostRatio float64 // markup over cost; also scales profit
	MinimumProfit          float64 // floor on any asking price
	Regeneration           float64 // magic restored by Sleep, netted out of cost
	Subsistence            economy.Vector
	SubsistenceGood        economy.Good // output of this good is self-supplied first
	ReassessProbability    float64      // chance per round to re-decide an existing choice
	LearningRate           float64      // skill = sqrt(skill² + LearningRate)
}

// DefaultRules returns the stock economy's constants.
func DefaultRules() *Rules {
	goods := economy.DefaultGoods()
	food, _ := goods.Lookup("food")
	subsistence := economy.NewVector(goods.Len())
	subsistence[food] = 1.0
	return &Rules{
		Goods:                  goods,
		Table:                  economy.DefaultTable(),
		MinimumProfitCostRatio: 1.2,
		MinimumProfit:          2.0,
		Regeneration:           10.0,
		Subsistence:            subsistence,
		SubsistenceGood:        food,
		ReassessProbability:    0.2,
		LearningRate:           0.2,
	}
}

// Agent is a producer. The Market owns every Agent; only the trade step
// mutates Magic and Skills.
type Agent struct {
	ID     AgentID
	Skills []float64      // one per technology
	Magic  float64        // fungible stock; may go negative
	Spell  economy.TechID // chosen technology for the round, or NoTech

	rules *Rules
	rng   entropy.Source
}

// New creates an agent bound to rules. rng drives every stochastic choice
// the agent makes.
func New(id AgentID, rules *Rules, skills []float64, magic float64, rng entropy.Source) *Agent {
	return &Agent{
		ID:     id,
		Skills: skills,
		Magic:  magic,
		Spell:  economy.NoTech,
		rules:  rules,
		rng:    rng,
	}
}

// Working reports whether the agent has a technology this round.
func (a *Agent) Working() bool {
	return a.Spell != economy.NoTech
}

// Rules returns the shared parameters the agent was created with.
func (a *Agent) Rules() *Rules {
	return a.rules
}

// State is a detached copy of an agent's mutable fields.
type State struct {
	ID     AgentID        `json:"id"`
	Skills []float64      `json:"skills"`
	Magic  float64        `json:"magic"`
	Spell  economy.TechID `json:"spell"`
}

// State copies the agent's current state.
func (a *Agent) State() State {
	return State{
		ID:     a.ID,
		Skills: append([]float64(nil), a.Skills...),
		Magic:  a.Magic,
		Spell:  a.Spell,
	}
}
