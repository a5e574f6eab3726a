package main

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coachpo/borderless/internal/domain/market"
	"github.com/coachpo/borderless/internal/domain/quotestore"
	"github.com/coachpo/borderless/internal/infra/config"
)

const (
	flagBase       = "base"
	flagQuote      = "quote"
	flagOutputFile = "outputFile"
	flagLimit      = "limit"

	defaultHistoryLimit = 20
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Query prices, orders and blocks from the ledger",
		RunE:  unknownSubcommand,
	}
	cmd.AddCommand(
		newLatestPriceCommand(opts),
		newOpenOrdersCommand(opts),
		newOrderBookCommand(opts),
		newLatestBlockCommand(opts),
		newPriceHistoryCommand(opts),
	)
	return cmd
}

type pairFlags struct {
	base  string
	quote string
}

func (p *pairFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.base, flagBase, market.DefaultPair.Base, "base chain of the priced pair")
	cmd.Flags().StringVar(&p.quote, flagQuote, market.DefaultPair.Quote, "quote chain the price is expressed in")
}

// resolve prefers explicit flags and falls back to the configured pair.
func (p *pairFlags) resolve(cmd *cobra.Command, cfg config.PricingConfig) (market.Pair, error) {
	base, quote := cfg.Base, cfg.Quote
	if cmd.Flags().Changed(flagBase) {
		base = p.base
	}
	if cmd.Flags().Changed(flagQuote) {
		quote = p.quote
	}
	return market.NewPair(base, quote)
}

func newLatestPriceCommand(opts *rootOptions) *cobra.Command {
	var pair pairFlags
	cmd := &cobra.Command{
		Use:   "latest_usdt_nrg_price",
		Short: "Print the reference price of the pair as {\"price\": <decimal>}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionNeeds{ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := pair.resolve(cmd, s.cfg.Pricing)
			if err != nil {
				return err
			}
			res, err := s.resolver().ResolveDetailed(ctx, p)
			if err != nil {
				return err
			}
			logger := s.logger.WithFields(logrus.Fields{
				"pair":       p.String(),
				"tier":       res.Tier,
				"candidates": res.Candidates,
			})
			logger.Debug("printing price")

			if s.store != nil {
				record, err := s.store.Quotes().Save(ctx, quotestore.Quote{
					Pair:       p.String(),
					Price:      res.Price,
					Tier:       string(res.Tier),
					Candidates: res.Candidates,
					Metadata:   map[string]any{"environment": string(s.cfg.Environment)},
				})
				if err != nil {
					logger.WithError(err).Warn("quote not recorded")
				} else {
					logger.WithField("quote_id", record.ID).Debug("quote recorded")
				}
			}

			return writeJSON(cmd.OutOrStdout(), struct {
				Price json.Number `json:"price"`
			}{Price: json.Number(res.Price.String())})
		},
	}
	pair.register(cmd)
	return cmd
}

func newOpenOrdersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open_orders",
		Short: "Print open orders whose deposit window is still open, in human units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionNeeds{ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			orders, err := s.ledger.OpenOrders(ctx)
			if err != nil {
				return err
			}
			height, err := s.ledger.LatestBlockHeight(ctx)
			if err != nil {
				return err
			}
			tradable := market.SelectTradable(slices.Values(orders), height)
			return writeJSON(cmd.OutOrStdout(), humanize(s.logger, tradable, s.units))
		},
	}
}

func newOrderBookCommand(opts *rootOptions) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "order_book",
		Short: "Print every open order in human units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionNeeds{ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			orders, err := s.ledger.OpenOrders(ctx)
			if err != nil {
				return err
			}
			book := humanize(s.logger, slices.Values(orders), s.units)
			if outputFile == "" {
				return writeJSON(cmd.OutOrStdout(), book)
			}

			path := filepath.Clean(outputFile)
			file, err := os.Create(path) // #nosec G304 -- path is operator controlled.
			if err != nil {
				return fmt.Errorf("create order book file: %w", err)
			}
			if err := writeJSON(file, book); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close order book file: %w", err)
			}
			s.logger.WithFields(logrus.Fields{"path": path, "orders": len(book)}).Info("order book written")
			return nil
		},
	}
	cmd.Flags().StringVar(&outputFile, flagOutputFile, "", "write the order book to this file instead of stdout")
	return cmd
}

func newLatestBlockCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "latest_block",
		Short: "Print the latest block height as {\"height\": n}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionNeeds{ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			height, err := s.ledger.LatestBlockHeight(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Height uint64 `json:"height"`
			}{Height: height})
		},
	}
}

func newPriceHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		pair  pairFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "price_history",
		Short: "Print recently recorded quotes for the pair, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionNeeds{database: true})
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := pair.resolve(cmd, s.cfg.Pricing)
			if err != nil {
				return err
			}
			records, err := s.store.Quotes().Recent(ctx, p.String(), limit)
			if err != nil {
				return err
			}
			if records == nil {
				records = []quotestore.Record{}
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
	pair.register(cmd)
	cmd.Flags().IntVar(&limit, flagLimit, defaultHistoryLimit, "maximum number of quotes to print")
	return cmd
}

// humanize converts orders for display, skipping those on chains without a unit definition.
func humanize(logger logrus.FieldLogger, orders iter.Seq[market.Order], units *market.UnitTable) []market.HumanOrder {
	out := []market.HumanOrder{}
	for order := range orders {
		human, err := market.Humanize(order, units)
		if err != nil {
			logger.WithError(err).WithField("hash", order.Hash).Warn("skipping order")
			continue
		}
		out = append(out, human)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
