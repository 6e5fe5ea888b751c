// Package auction provides a continuous double auction with
// zero-intelligence traders: an alternative price mechanism to the
// multi-good clearing market, with one standing best ask and best bid per
// good and immediate single-unit trades when they cross.
package auction

// Role says whether a trader sells or buys.
type Role uint8

const (
	RoleSeller Role = iota
	RoleBuyer
)

func (r Role) String() string {
	if r == RoleBuyer {
		return "buyer"
	}
	return "seller"
}

// Trader is a zero-intelligence participant. For a seller Values holds its
// cost per good; for a buyer, its redemption value.
type Trader struct {
	ID       int
	Role     Role
	Values   []float64
	MaxValue float64
	Money    float64
}

// Trade is one executed unit.
type Trade struct {
	Good   int
	Price  float64
	Seller *Trader
	Buyer  *Trader
}

type quote struct {
	price  float64
	trader *Trader
	set    bool
}

// Book holds the standing best ask and best bid for each good.
type Book struct {
	asks []quote
	bids []quote
}

// NewBook creates an empty book for goods goods.
func NewBook(goods int) *Book {
	return &Book{
		asks: make([]quote, goods),
		bids: make([]quote, goods),
	}
}

// BestAsk returns the lowest standing ask for good.
func (b *Book) BestAsk(good int) (float64, bool) {
	q := b.asks[good]
	return q.price, q.set
}

// BestBid returns the highest standing bid for good.
func (b *Book) BestBid(good int) (float64, bool) {
	q := b.bids[good]
	return q.price, q.set
}

// Ask submits a sell offer. It becomes the best ask if it undercuts the
// current one. If it is below the best bid, a unit trades at the bid.
func (b *Book) Ask(t *Trader, good int, price float64) (Trade, bool) {
	if a := b.asks[good]; !a.set || price < a.price {
		b.asks[good] = quote{price: price, trader: t, set: true}
	}
	if bid := b.bids[good]; bid.set && price < bid.price {
		return b.trade(good, bid.price)
	}
	return Trade{}, false
}

// Bid submits a buy offer. It becomes the best bid if it beats the current
// one. If it is above the best ask, a unit trades at the ask.
func (b *Book) Bid(t *Trader, good int, price float64) (Trade, bool) {
	if bid := b.bids[good]; !bid.set || price > bid.price {
		b.bids[good] = quote{price: price, trader: t, set: true}
	}
	if a := b.asks[good]; a.set && price > a.price {
		return b.trade(good, b.asks[good].price)
	}
	return Trade{}, false
}

// trade executes between the standing best asker and bidder and clears
// both sides of the good. A bidder that can no longer pay loses its bid
// and nothing trades.
func (b *Book) trade(good int, price float64) (Trade, bool) {
	seller := b.asks[good].trader
	buyer := b.bids[good].trader
	if buyer.Money < price {
		b.bids[good] = quote{}
		return Trade{}, false
	}

	buyer.Money -= price
	seller.Money += price

	b.asks[good] = quote{}
	b.bids[good] = quote{}
	return Trade{Good: good, Price: price, Seller: seller, Buyer: buyer}, true
}
