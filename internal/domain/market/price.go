package market

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coachpo/borderless/errs"
)

// PriceDivisionPrecision is the number of fractional digits kept when dividing amounts.
const PriceDivisionPrecision = 32

// PriceOf derives the order's price relative to quoteChain.
//
// When the order receives the quote chain it buys the base with the quote and the
// price is sends/receives; otherwise it is receives/sends. Amounts are compared in
// human units so chains with different precisions price correctly.
func PriceOf(o Order, quoteChain string, units *UnitTable) (decimal.Decimal, error) {
	quote := normalizeChain(quoteChain)
	receivesQuote := normalizeChain(o.ReceivesToChain) == quote
	sendsQuote := normalizeChain(o.SendsFromChain) == quote
	if !receivesQuote && !sendsQuote {
		return decimal.Zero, errs.New(component, errs.CodeInvalid,
			errs.WithCanonicalCode(errs.CanonicalNotPairOrder),
			errs.WithChain(quote),
			errs.WithField("hash", o.Hash),
			errs.WithMessage(fmt.Sprintf("order %s->%s does not involve quote chain", o.SendsFromChain, o.ReceivesToChain)))
	}

	sends, err := units.ToHuman(o.SendsFromChain, o.SendsUnit)
	if err != nil {
		return decimal.Zero, err
	}
	receives, err := units.ToHuman(o.ReceivesToChain, o.ReceivesUnit)
	if err != nil {
		return decimal.Zero, err
	}
	if sends.Sign() <= 0 || receives.Sign() <= 0 {
		return decimal.Zero, errs.New(component, errs.CodeInvalid,
			errs.WithCanonicalCode(errs.CanonicalInvalidOrder),
			errs.WithField("hash", o.Hash),
			errs.WithMessage(fmt.Sprintf("non-positive amount: sends=%s receives=%s", sends, receives)))
	}

	if receivesQuote {
		return sends.DivRound(receives, PriceDivisionPrecision), nil
	}
	return receives.DivRound(sends, PriceDivisionPrecision), nil
}
