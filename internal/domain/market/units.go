// Package market defines the order, pair, unit and price primitives shared by the pricing pipeline.
package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coachpo/borderless/errs"
)

const component = "market"

// UnitInfo describes how a chain denominates amounts on the ledger.
// Minimal-unit amounts are divided by 10^Exponent to obtain the human amount.
type UnitInfo struct {
	Exponent  int32
	HumanUnit string
}

// MinUnit returns the power-of-ten divisor for the chain.
func (u UnitInfo) MinUnit() decimal.Decimal {
	return decimal.New(1, u.Exponent)
}

// UnitTable is an immutable chain -> UnitInfo mapping built once at start-up.
type UnitTable struct {
	units map[string]UnitInfo
}

var defaultUnits = map[string]UnitInfo{
	"btc":  {Exponent: 8, HumanUnit: "btc"},
	"eth":  {Exponent: 18, HumanUnit: "eth"},
	"dai":  {Exponent: 18, HumanUnit: "dai"},
	"usdt": {Exponent: 6, HumanUnit: "usdt"},
	"lsk":  {Exponent: 8, HumanUnit: "lsk"},
	"neo":  {Exponent: 0, HumanUnit: "neo"},
	"wav":  {Exponent: 8, HumanUnit: "waves"},
	"nrg":  {Exponent: 18, HumanUnit: "nrg"},
}

// DefaultUnitTable returns the unit table for the chains supported by the exchange.
func DefaultUnitTable() *UnitTable {
	table, err := NewUnitTable(defaultUnits)
	if err != nil {
		panic(fmt.Sprintf("market: invalid default unit table: %v", err))
	}
	return table
}

// NewUnitTable validates and copies entries into a new table.
func NewUnitTable(entries map[string]UnitInfo) (*UnitTable, error) {
	units := make(map[string]UnitInfo, len(entries))
	for chain, info := range entries {
		key := normalizeChain(chain)
		if key == "" {
			return nil, errs.New(component, errs.CodeConfig, errs.WithMessage("chain identifier required"))
		}
		if info.Exponent < 0 {
			return nil, errs.New(component, errs.CodeConfig,
				errs.WithChain(key),
				errs.WithMessage(fmt.Sprintf("exponent must be >= 0, got %d", info.Exponent)))
		}
		if _, dup := units[key]; dup {
			return nil, errs.New(component, errs.CodeConfig,
				errs.WithChain(key),
				errs.WithMessage("duplicate chain identifier"))
		}
		info.HumanUnit = strings.TrimSpace(info.HumanUnit)
		if info.HumanUnit == "" {
			info.HumanUnit = key
		}
		units[key] = info
	}
	return &UnitTable{units: units}, nil
}

// With returns a new table where overrides replace or extend the receiver's entries.
func (t *UnitTable) With(overrides map[string]UnitInfo) (*UnitTable, error) {
	merged := make(map[string]UnitInfo, len(t.units)+len(overrides))
	for chain, info := range t.units {
		merged[chain] = info
	}
	normalized := make(map[string]UnitInfo, len(overrides))
	for chain, info := range overrides {
		key := normalizeChain(chain)
		if _, dup := normalized[key]; dup {
			return nil, errs.New(component, errs.CodeConfig,
				errs.WithChain(key),
				errs.WithMessage("duplicate chain override"))
		}
		normalized[key] = info
	}
	for chain, info := range normalized {
		merged[chain] = info
	}
	return NewUnitTable(merged)
}

// Lookup returns the unit info registered for chain.
func (t *UnitTable) Lookup(chain string) (UnitInfo, bool) {
	if t == nil {
		return UnitInfo{}, false
	}
	info, ok := t.units[normalizeChain(chain)]
	return info, ok
}

// Chains lists the registered chain identifiers in lexical order.
func (t *UnitTable) Chains() []string {
	out := make([]string, 0, len(t.units))
	for chain := range t.units {
		out = append(out, chain)
	}
	sort.Strings(out)
	return out
}

// ToHuman converts a minimal-unit amount into its decimal human representation.
func (t *UnitTable) ToHuman(chain string, amount decimal.Decimal) (decimal.Decimal, error) {
	info, ok := t.Lookup(chain)
	if !ok {
		return decimal.Zero, errs.UnknownChain(component, chain)
	}
	return amount.Shift(-info.Exponent), nil
}

// ToMinimal converts a human amount back into minimal units.
func (t *UnitTable) ToMinimal(chain string, human decimal.Decimal) (decimal.Decimal, error) {
	info, ok := t.Lookup(chain)
	if !ok {
		return decimal.Zero, errs.UnknownChain(component, chain)
	}
	return human.Shift(info.Exponent), nil
}

// HumanUnit returns the denomination label for chain.
func (t *UnitTable) HumanUnit(chain string) (string, error) {
	info, ok := t.Lookup(chain)
	if !ok {
		return "", errs.UnknownChain(component, chain)
	}
	return info.HumanUnit, nil
}

func normalizeChain(chain string) string {
	return strings.ToLower(strings.TrimSpace(chain))
}
