package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coachpo/borderless/internal/app/pricing"
	"github.com/coachpo/borderless/internal/domain/market"
	"github.com/coachpo/borderless/internal/infra/config"
	"github.com/coachpo/borderless/internal/infra/ledgerrpc"
	"github.com/coachpo/borderless/internal/infra/logging"
	"github.com/coachpo/borderless/internal/infra/persistence/migrations"
	"github.com/coachpo/borderless/internal/infra/persistence/postgres"
	"github.com/coachpo/borderless/lib/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// sessionNeeds selects which collaborators a command requires.
type sessionNeeds struct {
	ledger   bool
	database bool
}

// session bundles the collaborators built for a single command invocation.
type session struct {
	cfg    config.AppConfig
	logger *logrus.Logger
	units  *market.UnitTable
	ledger *ledgerrpc.Client
	store  *postgres.Store

	closers []func(context.Context) error
}

func openSession(ctx context.Context, opts *rootOptions, console io.Writer, needs sessionNeeds) (*session, error) {
	configPath := config.ResolvePath(opts.configPath)
	cfg, loadedFromFile, err := config.LoadOrDefault(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level := strings.TrimSpace(opts.logLevel); level != "" {
		cfg.Logging.Level = level
	}

	logger, closeLog, err := logging.New(cfg.Logging, console)
	if err != nil {
		return nil, fmt.Errorf("initialise logging: %w", err)
	}
	s := &session{cfg: cfg, logger: logger}
	s.closers = append(s.closers, func(context.Context) error { return closeLog() })

	if !loadedFromFile {
		logger.WithField("path", configPath).Debug("configuration file not found, using defaults")
	}
	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"pair":        cfg.Pricing.Base + "/" + cfg.Pricing.Quote,
	}).Debug("configuration initialised")

	if err := s.init(ctx, opts, needs); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) init(ctx context.Context, opts *rootOptions, needs sessionNeeds) error {
	_, shutdownTelemetry, err := telemetry.Init(ctx, s.cfg.Environment, s.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	s.closers = append(s.closers, shutdownTelemetry)
	if s.cfg.Telemetry.OTLPEndpoint != "" {
		s.logger.WithFields(logrus.Fields{
			"endpoint": s.cfg.Telemetry.OTLPEndpoint,
			"service":  s.cfg.Telemetry.ServiceName,
		}).Debug("telemetry initialised")
	}

	units, err := s.cfg.UnitTable()
	if err != nil {
		return fmt.Errorf("build unit table: %w", err)
	}
	s.units = units

	if needs.ledger {
		client, err := newLedgerClient(s.cfg.Ledger, opts, s.logger)
		if err != nil {
			return err
		}
		s.ledger = client
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
	}

	if needs.database && !s.cfg.Database.Enabled {
		return errors.New("quote history requires database.enabled in the configuration")
	}
	if s.cfg.Database.Enabled {
		if err := s.openDatabase(ctx); err != nil {
			if needs.database {
				return err
			}
			// Recording quotes is optional for every command that does not read them back.
			s.logger.WithError(err).Warn("quote history disabled: database unavailable")
			s.store = nil
		}
	}
	return nil
}

func newLedgerClient(cfg config.LedgerConfig, opts *rootOptions, logger logrus.FieldLogger) (*ledgerrpc.Client, error) {
	address := strings.TrimSpace(opts.address)
	if address == "" {
		address = cfg.Address
	}
	scookie := strings.TrimSpace(opts.scookie)
	if scookie == "" {
		scookie = cfg.Scookie
	}
	if address == "" || scookie == "" {
		return nil, errMissingCredentials
	}
	return ledgerrpc.New(ledgerrpc.Config{
		Address:            address,
		Scookie:            scookie,
		RPCPath:            cfg.RPCPath,
		Timeout:            cfg.Timeout,
		MaxRetries:         cfg.MaxRetries,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		Burst:              cfg.Burst,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}, logger)
}

func (s *session) openDatabase(ctx context.Context) error {
	if s.cfg.Database.RunMigrations {
		if err := migrations.ApplyEmbedded(ctx, s.cfg.Database.DSN, s.logger); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	pool, err := postgres.Open(ctx, s.cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.store = postgres.New(pool)
	s.closers = append(s.closers, func(context.Context) error {
		pool.Close()
		return nil
	})
	return nil
}

func (s *session) resolver() *pricing.Resolver {
	return pricing.NewResolver(s.ledger, s.units, pricing.Config{
		Scan: pricing.ScanConfig{
			FirstPageSize: s.cfg.Pricing.FirstPageSize,
			NextPageSize:  s.cfg.Pricing.NextPageSize,
			MaxPages:      s.cfg.Pricing.MaxPages,
		},
		Deadline:        s.cfg.Pricing.Deadline,
		HistoryDeadline: s.cfg.Pricing.HistoryDeadline,
		LiveOnly:        s.cfg.Pricing.LiveOnly,
		Prefetch:        s.cfg.Pricing.Prefetch,
	}, s.logger)
}

// Close releases collaborators in reverse order of construction.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()

	var errList []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errList = append(errList, err)
		}
	}
	s.closers = nil
	return errors.Join(errList...)
}
