package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericFromDecimal converts a decimal into a pgtype.Numeric value.
func numericFromDecimal(value decimal.Decimal) (pgtype.Numeric, error) {
	var out pgtype.Numeric
	text := value.String()
	if err := out.Scan(text); err != nil {
		return out, fmt.Errorf("parse numeric %q: %w", text, err)
	}
	return out, nil
}

// decimalFromNumeric converts a scanned NUMERIC column into a decimal.
func decimalFromNumeric(value pgtype.Numeric) (decimal.Decimal, error) {
	if !value.Valid {
		return decimal.Zero, fmt.Errorf("numeric value is null")
	}
	if value.NaN || value.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("numeric value is not finite")
	}
	if value.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(value.Int, value.Exp), nil
}
