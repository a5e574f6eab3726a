package market

import "github.com/shopspring/decimal"

// unknownPrice is the value reported for a quote with no backing order.
var unknownPrice = decimal.NewFromInt(-1)

// Quote is a derived price or the Unknown sentinel.
type Quote struct {
	price decimal.Decimal
	known bool
}

// Unknown is the quote returned when no matching order exists.
var Unknown = Quote{}

// KnownQuote wraps a derived price.
func KnownQuote(price decimal.Decimal) Quote {
	return Quote{price: price, known: true}
}

// Known reports whether the quote carries a derived price.
func (q Quote) Known() bool { return q.known }

// Price returns the derived price, or -1 for Unknown.
func (q Quote) Price() decimal.Decimal {
	if !q.known {
		return unknownPrice
	}
	return q.price
}

func (q Quote) String() string {
	return q.Price().String()
}
