package economy

import (
	"math"
	"testing"
)

func TestGroupOffersSortsByPrice(t *testing.T) {
	offers := []Offer{
		{Good: 1, Price: 4, Quantity: 1},
		{Good: 0, Price: 3, Quantity: 2},
		{Good: 1, Price: 0.5, Quantity: 0},
		{Good: 0, Price: 1, Quantity: 5},
		{Good: 7, Price: 1, Quantity: 5}, // out of range, dropped
	}
	groups := GroupOffers(offers, 2)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].Price != 1 || groups[0][1].Price != 3 {
		t.Errorf("good 0 group not sorted: %+v", groups[0])
	}
	if len(groups[1]) != 2 || groups[1][0].Price != 0.5 || groups[1][1].Price != 4 {
		t.Errorf("good 1 group not sorted: %+v", groups[1])
	}
}

func TestClearingPrice(t *testing.T) {
	// Synthetic floor offer plus a single seller {price 2.0, qty 5}.
	book := []Offer{
		{Price: 0.5, Quantity: 0},
		{Price: 2.0, Quantity: 5},
	}

	tests := []struct {
		name   string
		offers []Offer
		demand float64
		rule   ClearingRule
		want   float64
		ok     bool
	}{
		{"marginal meets demand exactly", book, 5, ClearMarginal, 2.0, true},
		{"average meets demand exactly", book, 5, ClearAverage, 1.25, true},
		{"zero demand clears at floor", book, 0, ClearMarginal, 0.5, true},
		{"demand exceeds supply", book, 5.5, ClearMarginal, 0, false},
		{"empty book", nil, 1, ClearAverage, 0, false},
		{
			"average over three levels",
			[]Offer{{Price: 1, Quantity: 1}, {Price: 2, Quantity: 1}, {Price: 6, Quantity: 1}, {Price: 9, Quantity: 4}},
			3, ClearAverage, 3, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClearingPrice(tt.offers, tt.demand, tt.rule)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("price = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseClearingRule(t *testing.T) {
	for in, want := range map[string]ClearingRule{"": ClearAverage, "average": ClearAverage, "marginal": ClearMarginal} {
		got, err := ParseClearingRule(in)
		if err != nil || got != want {
			t.Errorf("ParseClearingRule(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseClearingRule("vickrey"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestTableValidate(t *testing.T) {
	if err := DefaultTable().Validate(DefaultGoods()); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}

	bad := Table{
		{Name: "neg", OutputMultiplier: -1, OutputGood: 0, FixedCost: -2, Inputs: Vector{0, 0, 0}},
		{Name: "short", OutputMultiplier: 1, OutputGood: 5, Inputs: Vector{0}},
	}
	if err := bad.Validate(DefaultGoods()); err == nil {
		t.Fatal("expected validation error")
	}
	if err := (Table{}).Validate(DefaultGoods()); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestVectorOps(t *testing.T) {
	v := Vector{1, 2, 3}
	if got := v.Dot(Vector{2, 0, 1}); got != 5 {
		t.Errorf("Dot = %v, want 5", got)
	}
	c := v.Clone()
	c.Add(Vector{1, 1, 1})
	if v[0] != 1 || c[0] != 2 {
		t.Errorf("Clone shares storage: v=%v c=%v", v, c)
	}
	if !NewVector(3).IsZero() {
		t.Error("new vector not zero")
	}
	if Clamp(120, 0, 100) != 100 || Clamp(-1, 0, 100) != 0 || Clamp(5, 0, 100) != 5 {
		t.Error("Clamp out of bounds")
	}
}
