package auction

import (
	"context"
	"testing"
)

func TestAskBelowBidTradesAtBid(t *testing.T) {
	book := NewBook(1)
	seller := &Trader{ID: 1, Role: RoleSeller, Money: 0}
	buyer := &Trader{ID: 2, Role: RoleBuyer, Money: 10}

	if _, ok := book.Bid(buyer, 0, 1.5); ok {
		t.Fatal("lone bid should not trade")
	}
	trade, ok := book.Ask(seller, 0, 1.0)
	if !ok {
		t.Fatal("crossing ask should trade")
	}
	if trade.Price != 1.5 || trade.Seller != seller || trade.Buyer != buyer {
		t.Errorf("unexpected trade: %+v", trade)
	}
	if buyer.Money != 8.5 || seller.Money != 1.5 {
		t.Errorf("money not transferred: buyer %v seller %v", buyer.Money, seller.Money)
	}
	if _, ok := book.BestAsk(0); ok {
		t.Error("book not cleared after trade")
	}
	if _, ok := book.BestBid(0); ok {
		t.Error("book not cleared after trade")
	}
}

func TestBidAboveAskTradesAtAsk(t *testing.T) {
	book := NewBook(1)
	seller := &Trader{ID: 1, Role: RoleSeller}
	buyer := &Trader{ID: 2, Role: RoleBuyer, Money: 10}

	book.Ask(seller, 0, 1.2)
	trade, ok := book.Bid(buyer, 0, 1.9)
	if !ok || trade.Price != 1.2 {
		t.Fatalf("expected trade at ask 1.2, got %+v, %v", trade, ok)
	}
}

func TestBookKeepsBestQuotes(t *testing.T) {
	book := NewBook(1)
	s1 := &Trader{ID: 1}
	s2 := &Trader{ID: 2}
	b1 := &Trader{ID: 3, Role: RoleBuyer, Money: 10}

	book.Ask(s1, 0, 1.5)
	book.Ask(s2, 0, 1.8) // worse, ignored
	if p, _ := book.BestAsk(0); p != 1.5 {
		t.Errorf("best ask = %v, want 1.5", p)
	}
	book.Bid(b1, 0, 0.5)
	book.Bid(b1, 0, 0.4) // worse, ignored
	if p, _ := book.BestBid(0); p != 0.5 {
		t.Errorf("best bid = %v, want 0.5", p)
	}
	// Equal prices do not cross.
	if _, ok := book.Bid(b1, 0, 1.5); ok {
		t.Error("bid equal to ask should not trade")
	}
}

func TestBrokeBidderDoesNotTrade(t *testing.T) {
	book := NewBook(1)
	buyer := &Trader{ID: 1, Role: RoleBuyer, Money: 1}
	seller := &Trader{ID: 2}

	book.Bid(buyer, 0, 0.9)
	buyer.Money = 0.1
	if _, ok := book.Ask(seller, 0, 0.5); ok {
		t.Fatal("trade executed against a bidder that cannot pay")
	}
	if _, ok := book.BestBid(0); ok {
		t.Error("stale bid should be dropped")
	}
}

func TestEquilibriumPrice(t *testing.T) {
	sellers := []*Trader{{Values: []float64{0.9}}, {Values: []float64{0.2}}, {Values: []float64{0.6}}}
	buyers := []*Trader{{Values: []float64{0.5}}, {Values: []float64{1.8}}, {Values: []float64{1.0}}}
	// costs 0.2 0.6 0.9 ; values 1.8 1.0 0.5 -> first crossing at index 2.
	p, ok := EquilibriumPrice(sellers, buyers, 0)
	if !ok || p != 0.9 {
		t.Errorf("equilibrium = %v, %v; want 0.9, true", p, ok)
	}
}

func TestSessionRun(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Sellers, cfg.Buyers, cfg.Turns = 20, 20, 3

	a := NewSession(cfg)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	b := NewSession(cfg)
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(a.Trades) == 0 {
		t.Fatal("expected some trades")
	}
	if len(a.Trades) != len(b.Trades) {
		t.Fatalf("same seed, different trade counts: %d vs %d", len(a.Trades), len(b.Trades))
	}
	for i := range a.Trades {
		if a.Trades[i].Price != b.Trades[i].Price {
			t.Fatalf("trade %d differs: %v vs %v", i, a.Trades[i].Price, b.Trades[i].Price)
		}
	}

	money := 0.0
	for _, tr := range append(a.Sellers, a.Buyers...) {
		money += tr.Money
		if tr.Money < 0 {
			t.Errorf("trader %d went negative: %v", tr.ID, tr.Money)
		}
	}
	want := cfg.InitialMoney * float64(cfg.Sellers+cfg.Buyers)
	if diff := money - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("money not conserved: %v vs %v", money, want)
	}

	for _, tr := range a.Trades {
		if tr.Price < 0 || tr.Price > cfg.MaxRedemption {
			t.Errorf("trade price %v outside [0, %v]", tr.Price, cfg.MaxRedemption)
		}
	}

	sum := a.Summarize(0)
	if sum.Trades != len(a.Trades) || len(a.TurnStarts) != cfg.Turns {
		t.Errorf("summary trades %d, turns %d", sum.Trades, len(a.TurnStarts))
	}
	if sum.HasEquil && len(sum.TurnRMSE) != cfg.Turns {
		t.Errorf("expected RMSE per turn, got %v", sum.TurnRMSE)
	}
}
