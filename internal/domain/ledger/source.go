// Package ledger declares the read-only view of the exchange ledger used by the pricing pipeline.
package ledger

import (
	"context"
	"strings"

	"github.com/coachpo/borderless/internal/domain/market"
)

// LatestCursor asks the ledger for the most recent historical batch.
const LatestCursor = "latest"

// HistoricalBatch is one page of historical maker orders, newest first.
// NextBlock is empty when history is exhausted.
type HistoricalBatch struct {
	Orders    []market.Order
	NextBlock string
}

// HasNext reports whether an older page can be requested.
func (b HistoricalBatch) HasNext() bool {
	next := strings.TrimSpace(b.NextBlock)
	return next != "" && next != "0"
}

// Source is the ledger query surface. Implementations must report transport
// failures as errors distinct from empty results.
type Source interface {
	HistoricalOrders(ctx context.Context, cursor string, pageSize int) (HistoricalBatch, error)
	OpenOrders(ctx context.Context) ([]market.Order, error)
	LatestBlockHeight(ctx context.Context) (uint64, error)
}
