package market

import (
	"fmt"
	"strings"
)

// Pair designates the base and quote chains used for price derivation.
// Membership checks are symmetric; only price orientation depends on Quote.
type Pair struct {
	Base  string
	Quote string
}

// DefaultPair is the energy-token vs. stable-token pair priced by the client.
var DefaultPair = Pair{Base: "nrg", Quote: "usdt"}

// NewPair normalizes and validates a pair.
func NewPair(base, quote string) (Pair, error) {
	p := Pair{Base: normalizeChain(base), Quote: normalizeChain(quote)}
	if p.Base == "" || p.Quote == "" {
		return Pair{}, fmt.Errorf("pair requires both base and quote chains")
	}
	if p.Base == p.Quote {
		return Pair{}, fmt.Errorf("pair chains must differ, got %q twice", p.Base)
	}
	return p, nil
}

// Contains reports whether chain is either side of the pair.
func (p Pair) Contains(chain string) bool {
	c := normalizeChain(chain)
	return c == p.Base || c == p.Quote
}

// Matches reports whether the order trades between the pair's two chains, in either direction.
func (p Pair) Matches(o Order) bool {
	if !p.Contains(o.SendsFromChain) || !p.Contains(o.ReceivesToChain) {
		return false
	}
	return normalizeChain(o.SendsFromChain) != normalizeChain(o.ReceivesToChain)
}

func (p Pair) String() string {
	return strings.ToUpper(p.Base) + "/" + strings.ToUpper(p.Quote)
}
