package market

import (
	"github.com/shopspring/decimal"
)

// Order is a read-only snapshot of a maker order as reported by the ledger.
// SendsUnit and ReceivesUnit are integer minimal-unit amounts.
type Order struct {
	Hash                  string          `json:"hash"`
	TxOutputIndex         uint32          `json:"txOutputIndex"`
	SendsFromChain        string          `json:"sendsFromChain"`
	ReceivesToChain       string          `json:"receivesToChain"`
	SendsFromAddress      string          `json:"sendsFromAddress,omitempty"`
	ReceivesToAddress     string          `json:"receivesToAddress,omitempty"`
	DoubleHashedBcAddress string          `json:"doubleHashedBcAddress,omitempty"`
	SendsUnit             decimal.Decimal `json:"sendsUnit"`
	ReceivesUnit          decimal.Decimal `json:"receivesUnit"`
	CollateralizedNrg     string          `json:"collateralizedNrg,omitempty"`
	NrgUnit               string          `json:"nrgUnit,omitempty"`
	TradeHeight           uint64          `json:"tradeHeight"`
	Deposit               uint64          `json:"deposit"`
	Settlement            uint64          `json:"settlement,omitempty"`
}

// TradableAt reports whether the deposit window is still open at latestHeight.
func (o Order) TradableAt(latestHeight uint64) bool {
	return o.TradeHeight+o.Deposit > latestHeight
}

// HumanOrder is an Order with amounts converted to human units and labelled with their denominations.
type HumanOrder struct {
	Order
	SendsUnit                decimal.Decimal `json:"sendsUnit"`
	SendsUnitDenomination    string          `json:"sendsUnitDenomination"`
	ReceivesUnit             decimal.Decimal `json:"receivesUnit"`
	ReceivesUnitDenomination string          `json:"receivesUnitDenomination"`
}

// Humanize converts the order's amounts with units.
func Humanize(o Order, units *UnitTable) (HumanOrder, error) {
	sends, err := units.ToHuman(o.SendsFromChain, o.SendsUnit)
	if err != nil {
		return HumanOrder{}, err
	}
	sendsLabel, err := units.HumanUnit(o.SendsFromChain)
	if err != nil {
		return HumanOrder{}, err
	}
	receives, err := units.ToHuman(o.ReceivesToChain, o.ReceivesUnit)
	if err != nil {
		return HumanOrder{}, err
	}
	receivesLabel, err := units.HumanUnit(o.ReceivesToChain)
	if err != nil {
		return HumanOrder{}, err
	}
	return HumanOrder{
		Order:                    o,
		SendsUnit:                sends,
		SendsUnitDenomination:    sendsLabel,
		ReceivesUnit:             receives,
		ReceivesUnitDenomination: receivesLabel,
	}, nil
}
