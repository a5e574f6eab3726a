package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachpo/borderless/errs"
	"github.com/coachpo/borderless/internal/domain/ledger"
	"github.com/coachpo/borderless/internal/domain/market"
)

type pageCall struct {
	cursor string
	size   int
}

type fakeSource struct {
	mu sync.Mutex

	pages      map[string]ledger.HistoricalBatch
	endless    bool
	pageDelay  time.Duration
	historyErr error
	open       []market.Order
	openErr    error
	height     uint64
	heightErr  error

	pageCalls   []pageCall
	openCalls   int
	heightCalls int
}

// HistoricalOrders mirrors the RPC client: a done context surfaces as an unreachable ledger.
func (f *fakeSource) HistoricalOrders(ctx context.Context, cursor string, pageSize int) (ledger.HistoricalBatch, error) {
	if f.pageDelay > 0 {
		select {
		case <-time.After(f.pageDelay):
		case <-ctx.Done():
			return ledger.HistoricalBatch{}, errs.Unavailable("fake", ctx.Err())
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, pageCall{cursor: cursor, size: pageSize})
	if f.historyErr != nil {
		return ledger.HistoricalBatch{}, f.historyErr
	}
	if f.endless {
		return ledger.HistoricalBatch{NextBlock: fmt.Sprintf("%d", 10_000-len(f.pageCalls))}, nil
	}
	return f.pages[cursor], nil
}

func (f *fakeSource) OpenOrders(ctx context.Context) ([]market.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	if err := ctx.Err(); err != nil {
		return nil, errs.Unavailable("fake", err)
	}
	return f.open, f.openErr
}

func (f *fakeSource) LatestBlockHeight(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heightCalls++
	return f.height, f.heightErr
}

func (f *fakeSource) calls() []pageCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pageCall(nil), f.pageCalls...)
}

// sellNrg builds an nrg->usdt order priced at nrg/usdt in human units.
func sellNrg(hash string, nrg, usdt int64) market.Order {
	return market.Order{
		Hash:            hash,
		SendsFromChain:  "nrg",
		ReceivesToChain: "usdt",
		SendsUnit:       decimal.NewFromInt(nrg).Shift(18),
		ReceivesUnit:    decimal.NewFromInt(usdt).Shift(6),
		TradeHeight:     100,
		Deposit:         50,
	}
}

func otherPair(hash string) market.Order {
	return market.Order{
		Hash:            hash,
		SendsFromChain:  "btc",
		ReceivesToChain: "eth",
		SendsUnit:       decimal.NewFromInt(1),
		ReceivesUnit:    decimal.NewFromInt(1),
	}
}
