// Package pricing derives a reference price for a trading pair from ledger order data.
package pricing

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/coachpo/borderless/errs"
	"github.com/coachpo/borderless/internal/domain/ledger"
	"github.com/coachpo/borderless/internal/domain/market"
	"github.com/coachpo/borderless/internal/infra/telemetry"
)

const (
	// DefaultFirstPageSize is the size of the initial "latest" history request.
	DefaultFirstPageSize = 5000
	// DefaultNextPageSize is the size of every subsequent history request.
	DefaultNextPageSize = 1000
)

var errBudgetExhausted = errors.New("history page budget exhausted")

// ScanConfig bounds a historical scan.
type ScanConfig struct {
	FirstPageSize int
	NextPageSize  int
	// MaxPages caps the number of pages fetched; zero means unlimited.
	MaxPages int
}

func (c ScanConfig) withDefaults() ScanConfig {
	if c.FirstPageSize <= 0 {
		c.FirstPageSize = DefaultFirstPageSize
	}
	if c.NextPageSize <= 0 {
		c.NextPageSize = DefaultNextPageSize
	}
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
	return c
}

// Scanner walks historical batches backwards until a pair order is found.
type Scanner struct {
	units  *market.UnitTable
	cfg    ScanConfig
	logger logrus.FieldLogger
}

// NewScanner constructs a scanner. A nil logger discards output.
func NewScanner(units *market.UnitTable, cfg ScanConfig, logger logrus.FieldLogger) *Scanner {
	return &Scanner{
		units:  units,
		cfg:    cfg.withDefaults(),
		logger: componentLogger(logger, "history_scanner"),
	}
}

// Pages lazily fetches historical batches starting at the latest block.
// The sequence ends after a batch without a next cursor, yields the context
// error on cancellation, and yields a budget error once MaxPages is reached
// with more history remaining.
func (s *Scanner) Pages(ctx context.Context, src ledger.Source) iter.Seq2[ledger.HistoricalBatch, error] {
	return func(yield func(ledger.HistoricalBatch, error) bool) {
		cursor := ledger.LatestCursor
		size := s.cfg.FirstPageSize
		for page := 0; ; page++ {
			if s.cfg.MaxPages > 0 && page >= s.cfg.MaxPages {
				yield(ledger.HistoricalBatch{}, errBudgetExhausted)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(ledger.HistoricalBatch{}, err)
				return
			}
			batch, err := src.HistoricalOrders(ctx, cursor, size)
			if err != nil {
				recordPage(ctx, telemetry.ResultError)
				yield(ledger.HistoricalBatch{}, err)
				return
			}
			recordPage(ctx, telemetry.ResultSuccess)
			s.logger.WithFields(logrus.Fields{
				"cursor": cursor,
				"page":   page,
				"orders": len(batch.Orders),
				"next":   batch.NextBlock,
			}).Debug("historical page fetched")
			if !yield(batch, nil) {
				return
			}
			if !batch.HasNext() {
				return
			}
			cursor = batch.NextBlock
			size = s.cfg.NextPageSize
		}
	}
}

// FindPrice returns the price of the most recent pair order in history, or
// market.Unknown when history holds none. Orders with degenerate amounts are
// skipped; a pair chain missing from the unit table aborts the scan.
func (s *Scanner) FindPrice(ctx context.Context, pair market.Pair, src ledger.Source) (market.Quote, error) {
	for batch, err := range s.Pages(ctx, src) {
		if err != nil {
			if errors.Is(err, errBudgetExhausted) {
				recordPage(ctx, telemetry.ResultExhausted)
				s.logger.WithField("max_pages", s.cfg.MaxPages).Info("history scan budget exhausted")
				return market.Unknown, nil
			}
			return market.Unknown, err
		}
		for o := range market.SelectByPair(slices.Values(batch.Orders), pair) {
			price, err := market.PriceOf(o, pair.Quote, s.units)
			if err != nil {
				if errors.Is(err, errs.ErrInvalidOrder) || errors.Is(err, errs.ErrNotPairOrder) {
					s.logger.WithError(err).WithField("hash", o.Hash).Debug("skipping historical order")
					continue
				}
				return market.Unknown, err
			}
			return market.KnownQuote(price), nil
		}
	}
	return market.Unknown, nil
}
