package economy

import (
	"errors"
	"fmt"
)

// TechID indexes a technology in the table.
type TechID int

// NoTech marks an agent that has not chosen (or has given up) a technology.
const NoTech TechID = -1

// Technology is a production recipe ("spell"): pay FixedCost magic plus the
// Inputs vector of goods to produce OutputMultiplier × skill units of OutputGood.
type Technology struct {
	Name             string  `json:"name"`
	OutputMultiplier float64 `json:"output_multiplier"`
	OutputGood       Good    `json:"output_good"`
	FixedCost        float64 `json:"fixed_cost"`
	Inputs           Vector  `json:"inputs"`
}

// Table is the ordered, read-only list of technologies shared by all agents.
type Table []Technology

// Get returns the technology for id. Callers must pass a valid id.
func (t Table) Get(id TechID) *Technology {
	return &t[id]
}

// Valid reports whether id indexes the table.
func (t Table) Valid(id TechID) bool {
	return id >= 0 && int(id) < len(t)
}

// Validate checks the table against the good list. All problems are
// reported together.
func (t Table) Validate(goods Goods) error {
	if len(goods) == 0 {
		return errors.New("no goods defined")
	}
	if len(t) == 0 {
		return errors.New("technology table is empty")
	}

	var errs []error
	for i, tech := range t {
		name := tech.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if tech.OutputMultiplier < 0 {
			errs = append(errs, fmt.Errorf("technology %s: negative output multiplier %v", name, tech.OutputMultiplier))
		}
		if tech.FixedCost < 0 {
			errs = append(errs, fmt.Errorf("technology %s: negative fixed cost %v", name, tech.FixedCost))
		}
		if int(tech.OutputGood) < 0 || int(tech.OutputGood) >= len(goods) {
			errs = append(errs, fmt.Errorf("technology %s: unknown output good %d", name, tech.OutputGood))
		}
		if len(tech.Inputs) != len(goods) {
			errs = append(errs, fmt.Errorf("technology %s: input vector has %d entries, want %d", name, len(tech.Inputs), len(goods)))
			continue
		}
		for g, q := range tech.Inputs {
			if q < 0 {
				errs = append(errs, fmt.Errorf("technology %s: negative input of %s", name, goods.Name(Good(g))))
			}
		}
	}
	return errors.Join(errs...)
}

// DefaultTable returns the stock spell list over DefaultGoods:
// three "money only" spells and three food recipes of increasing scale.
func DefaultTable() Table {
	const (
		water Good = 0
		wood  Good = 1
		food  Good = 2
	)
	moneyOnly := func() Vector { return Vector{0, 0, 0} }
	return Table{
		{Name: "draw-water", OutputMultiplier: 10.0, OutputGood: water, FixedCost: 3.0, Inputs: moneyOnly()},
		{Name: "fell-wood", OutputMultiplier: 8.0, OutputGood: wood, FixedCost: 10.0, Inputs: moneyOnly()},
		{Name: "conjure-food", OutputMultiplier: 1.5, OutputGood: food, FixedCost: 12.0, Inputs: moneyOnly()},
		{Name: "garden", OutputMultiplier: 5.0, OutputGood: food, FixedCost: 2.0, Inputs: Vector{1, 1, 0}},
		{Name: "farm", OutputMultiplier: 7.0, OutputGood: food, FixedCost: 5.0, Inputs: Vector{2, 1, 0}},
		{Name: "plantation", OutputMultiplier: 20.0, OutputGood: food, FixedCost: 200.0, Inputs: Vector{3, 3, 0}},
	}
}
