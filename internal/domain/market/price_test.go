package market

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/borderless/errs"
)

func nrgUsdtOrder(sendsChain, receivesChain, sends, receives string) Order {
	return Order{
		Hash:            "h",
		SendsFromChain:  sendsChain,
		ReceivesToChain: receivesChain,
		SendsUnit:       decimal.RequireFromString(sends),
		ReceivesUnit:    decimal.RequireFromString(receives),
	}
}

func TestPriceOfBuyOrientation(t *testing.T) {
	// sends 5 nrg, receives 2 usdt
	o := nrgUsdtOrder("nrg", "usdt", "5000000000000000000", "2000000")
	price, err := PriceOf(o, "usdt", DefaultUnitTable())
	require.NoError(t, err)
	require.Equal(t, "2.5", price.String())
}

func TestPriceOfSellOrientation(t *testing.T) {
	// sends 2 usdt, receives 5 nrg
	o := nrgUsdtOrder("usdt", "nrg", "2000000", "5000000000000000000")
	price, err := PriceOf(o, "USDT", DefaultUnitTable())
	require.NoError(t, err)
	require.Equal(t, "2.5", price.String())
}

func TestPriceOfKeepsPrecision(t *testing.T) {
	o := nrgUsdtOrder("nrg", "usdt", "1000000000000000000", "3000000")
	price, err := PriceOf(o, "usdt", DefaultUnitTable())
	require.NoError(t, err)
	require.Equal(t, int32(-PriceDivisionPrecision), price.Exponent())
	require.True(t, price.Mul(decimal.NewFromInt(3)).Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -30)))
}

func TestPriceOfZeroAmountIsInvalid(t *testing.T) {
	for _, o := range []Order{
		nrgUsdtOrder("nrg", "usdt", "0", "2000000"),
		nrgUsdtOrder("nrg", "usdt", "5", "0"),
		nrgUsdtOrder("usdt", "nrg", "0", "0"),
	} {
		_, err := PriceOf(o, "usdt", DefaultUnitTable())
		require.Error(t, err)
		require.True(t, errors.Is(err, errs.ErrInvalidOrder), "got %v", err)
	}
}

func TestPriceOfNotPairOrder(t *testing.T) {
	o := nrgUsdtOrder("nrg", "btc", "1", "1")
	_, err := PriceOf(o, "usdt", DefaultUnitTable())
	require.True(t, errors.Is(err, errs.ErrNotPairOrder))
}

func TestPriceOfUnknownChain(t *testing.T) {
	o := nrgUsdtOrder("doge", "usdt", "1", "1")
	_, err := PriceOf(o, "usdt", DefaultUnitTable())
	require.True(t, errors.Is(err, errs.ErrUnknownChain))
}

func TestOrderDecodesLedgerAmounts(t *testing.T) {
	payload := []byte(`{
		"hash": "abc",
		"txOutputIndex": 1,
		"sendsFromChain": "nrg",
		"receivesToChain": "usdt",
		"sendsUnit": "5000000000000000000",
		"receivesUnit": 2000000,
		"tradeHeight": 120,
		"deposit": 50
	}`)
	var o Order
	require.NoError(t, json.Unmarshal(payload, &o))
	require.Equal(t, "5000000000000000000", o.SendsUnit.String())
	require.Equal(t, "2000000", o.ReceivesUnit.String())
	require.True(t, o.TradableAt(169))
	require.False(t, o.TradableAt(170))
}

func TestHumanizeLabelsDenominations(t *testing.T) {
	o := nrgUsdtOrder("nrg", "usdt", "5000000000000000000", "2000000")
	h, err := Humanize(o, DefaultUnitTable())
	require.NoError(t, err)
	require.Equal(t, "5", h.SendsUnit.String())
	require.Equal(t, "2", h.ReceivesUnit.String())
	require.Equal(t, "nrg", h.SendsUnitDenomination)
	require.Equal(t, "usdt", h.ReceivesUnitDenomination)

	_, err = Humanize(nrgUsdtOrder("doge", "usdt", "1", "1"), DefaultUnitTable())
	require.True(t, errors.Is(err, errs.ErrUnknownChain))
}

func TestQuoteUnknownSentinel(t *testing.T) {
	require.False(t, Unknown.Known())
	require.Equal(t, "-1", Unknown.Price().String())
	q := KnownQuote(decimal.RequireFromString("2.1"))
	require.True(t, q.Known())
	require.Equal(t, "2.1", q.String())
}
