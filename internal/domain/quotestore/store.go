// Package quotestore defines persistence contracts for resolved price history.
package quotestore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a resolved price ready to be recorded.
type Quote struct {
	Pair       string
	Price      decimal.Decimal
	Tier       string
	Candidates int
	Metadata   map[string]any
}

// Record captures the persisted state of a quote.
type Record struct {
	ID         int64           `json:"id"`
	Pair       string          `json:"pair"`
	Price      decimal.Decimal `json:"price"`
	Tier       string          `json:"tier"`
	Candidates int             `json:"candidates"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store abstracts persistence operations for quote history.
type Store interface {
	Save(ctx context.Context, quote Quote) (Record, error)
	Recent(ctx context.Context, pair string, limit int) ([]Record, error)
}
