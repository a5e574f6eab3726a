package pricing

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/coachpo/borderless/errs"
	"github.com/coachpo/borderless/internal/domain/ledger"
	"github.com/coachpo/borderless/internal/domain/market"
	"github.com/coachpo/borderless/internal/infra/logging"
)

// Tier identifies the stage of the resolver that produced a price.
type Tier string

const (
	TierHistorical Tier = "historical"
	TierOpenOrders Tier = "open_orders"
	TierFallback   Tier = "fallback"
)

// DefaultDeadline bounds a single resolution when the config leaves it unset.
const DefaultDeadline = 60 * time.Second

// defaultHistoryShare is the part of Deadline granted to the historical scan
// when HistoryDeadline is unset or does not leave room for the open-order tier.
const defaultHistoryShare = 0.75

// FallbackPrice is reported when neither history nor the open book holds a pair order.
// It is a placeholder, not a market price.
var FallbackPrice = decimal.NewFromInt(1)

// Config tunes the resolver.
type Config struct {
	Scan ScanConfig
	// Deadline bounds the whole resolution.
	Deadline time.Duration
	// HistoryDeadline bounds the historical scan; it must be shorter than Deadline.
	HistoryDeadline time.Duration
	// LiveOnly drops open orders whose deposit window has closed before aggregation.
	LiveOnly bool
	// Prefetch queries open orders concurrently with the historical scan.
	Prefetch bool
}

// Resolution is a resolved price with its provenance.
type Resolution struct {
	Price      decimal.Decimal
	Tier       Tier
	Candidates int
}

// Resolver combines the historical, open-order and fallback tiers.
type Resolver struct {
	src     ledger.Source
	units   *market.UnitTable
	scanner *Scanner
	cfg     Config
	logger  logrus.FieldLogger
}

// NewResolver wires a resolver over src.
func NewResolver(src ledger.Source, units *market.UnitTable, cfg Config, logger logrus.FieldLogger) *Resolver {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.HistoryDeadline <= 0 || cfg.HistoryDeadline >= cfg.Deadline {
		cfg.HistoryDeadline = time.Duration(float64(cfg.Deadline) * defaultHistoryShare)
	}
	return &Resolver{
		src:     src,
		units:   units,
		scanner: NewScanner(units, cfg.Scan, logger),
		cfg:     cfg,
		logger:  componentLogger(logger, "price_resolver"),
	}
}

// Resolve returns the reference price for pair. The only error it reports is
// an unreachable ledger during the open-order tier.
func (r *Resolver) Resolve(ctx context.Context, pair market.Pair) (decimal.Decimal, error) {
	res, err := r.ResolveDetailed(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Price, nil
}

type openOrdersResult struct {
	orders []market.Order
	err    error
}

// ResolveDetailed is Resolve plus the producing tier and the number of orders considered.
//
// The historical scan runs under HistoryDeadline and counts as Unknown when it
// expires. The open-order tier then gets a fresh bound of Deadline minus
// HistoryDeadline derived from ctx.
func (r *Resolver) ResolveDetailed(ctx context.Context, pair market.Pair) (Resolution, error) {
	logger := r.logger.WithField("pair", pair.String())

	var prefetched chan openOrdersResult
	if r.cfg.Prefetch {
		var wg conc.WaitGroup
		prefetchCtx, cancelPrefetch := context.WithTimeout(ctx, r.cfg.Deadline)
		prefetched = make(chan openOrdersResult, 1)
		wg.Go(func() {
			orders, err := r.src.OpenOrders(prefetchCtx)
			prefetched <- openOrdersResult{orders: orders, err: err}
		})
		defer wg.Wait()
		defer cancelPrefetch()
	}

	quote := r.historical(ctx, logger, pair)
	if quote.Known() {
		return r.resolved(ctx, logger, pair, Resolution{Price: quote.Price(), Tier: TierHistorical, Candidates: 1}), nil
	}

	openCtx, cancel := context.WithTimeout(ctx, r.cfg.Deadline-r.cfg.HistoryDeadline)
	defer cancel()
	res, err := r.openOrders(openCtx, logger, pair, prefetched)
	switch {
	case err == nil:
		return r.resolved(ctx, logger, pair, res), nil
	case errors.Is(err, errs.ErrNoData):
		logger.WithError(err).Info("no pair orders in the open book, using fallback")
	case errors.Is(err, errs.ErrDataSourceUnavailable):
		return Resolution{}, err
	default:
		logger.WithError(err).Warn("open orders unavailable, using fallback")
	}
	return r.fallback(ctx, logger, pair), nil
}

// historical runs the first tier under its own deadline and never fails.
func (r *Resolver) historical(ctx context.Context, logger logrus.FieldLogger, pair market.Pair) market.Quote {
	histCtx, cancel := context.WithTimeout(ctx, r.cfg.HistoryDeadline)
	defer cancel()

	quote, err := r.scanner.FindPrice(histCtx, pair, r.src)
	switch {
	case err == nil:
		return quote
	case histCtx.Err() != nil && ctx.Err() == nil:
		logger.WithField("history_deadline", r.cfg.HistoryDeadline).Info("history scan deadline reached")
	default:
		logger.WithError(err).Warn("historical tier failed, falling through to open orders")
	}
	return market.Unknown
}

// openOrders runs the second tier. An empty or pair-less book is reported as errs.ErrNoData.
func (r *Resolver) openOrders(ctx context.Context, logger logrus.FieldLogger, pair market.Pair, prefetched <-chan openOrdersResult) (Resolution, error) {
	var (
		orders []market.Order
		err    error
	)
	if prefetched != nil {
		result := <-prefetched
		orders, err = result.orders, result.err
	} else {
		orders, err = r.src.OpenOrders(ctx)
	}
	if err != nil {
		return Resolution{}, err
	}

	seq := slices.Values(orders)
	if r.cfg.LiveOnly {
		height, err := r.src.LatestBlockHeight(ctx)
		switch {
		case err == nil:
			seq = market.SelectTradable(seq, height)
		case errors.Is(err, errs.ErrDataSourceUnavailable):
			return Resolution{}, err
		default:
			logger.WithError(err).Warn("latest block unavailable, skipping liveness filter")
		}
	}

	best, candidates := r.minimum(logger, seq, pair)
	if candidates == 0 {
		return Resolution{}, errs.NoData("price_resolver",
			errs.WithField("tier", string(TierOpenOrders)),
			errs.WithField("orders", strconv.Itoa(len(orders))))
	}
	return Resolution{Price: best, Tier: TierOpenOrders, Candidates: candidates}, nil
}

func (r *Resolver) minimum(logger logrus.FieldLogger, orders iter.Seq[market.Order], pair market.Pair) (decimal.Decimal, int) {
	var best decimal.Decimal
	candidates := 0
	for o := range market.SelectByPair(orders, pair) {
		price, err := market.PriceOf(o, pair.Quote, r.units)
		if err != nil {
			logger.WithError(err).WithField("hash", o.Hash).Debug("skipping open order")
			continue
		}
		if candidates == 0 || price.LessThan(best) {
			best = price
		}
		candidates++
	}
	return best, candidates
}

func (r *Resolver) fallback(ctx context.Context, logger logrus.FieldLogger, pair market.Pair) Resolution {
	return r.resolved(ctx, logger, pair, Resolution{Price: FallbackPrice, Tier: TierFallback})
}

func (r *Resolver) resolved(ctx context.Context, logger logrus.FieldLogger, pair market.Pair, res Resolution) Resolution {
	recordResolution(ctx, pair.String(), res.Tier)
	logger.WithFields(logrus.Fields{
		"tier":       res.Tier,
		"candidates": res.Candidates,
		"price":      res.Price.String(),
	}).Info("price resolved")
	return res
}

func componentLogger(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	if logger == nil {
		logger = logging.Discard()
	}
	return logger.WithField("component", name)
}
