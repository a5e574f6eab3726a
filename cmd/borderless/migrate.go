package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coachpo/borderless/internal/infra/config"
	"github.com/coachpo/borderless/internal/infra/logging"
	"github.com/coachpo/borderless/internal/infra/persistence/migrations"
)

const defaultMigrateTimeout = 30 * time.Second

type migrateOptions struct {
	dsn     string
	path    string
	timeout time.Duration
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	mopts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the quote history schema",
		RunE:  unknownSubcommand,
	}
	cmd.PersistentFlags().StringVar(&mopts.dsn, "database", "", "PostgreSQL DSN (default: database.dsn from the configuration)")
	cmd.PersistentFlags().StringVar(&mopts.path, "path", "", "directory containing SQL migrations (default: migrations embedded in the binary)")
	cmd.PersistentFlags().DurationVar(&mopts.timeout, "timeout", defaultMigrateTimeout, "maximum time to wait for database connectivity")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd, opts, mopts, func(ctx context.Context, dsn string, logger logrus.FieldLogger) error {
					if mopts.path != "" {
						return migrations.Apply(ctx, dsn, mopts.path, logger)
					}
					return migrations.ApplyEmbedded(ctx, dsn, logger)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back the given number of migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid down steps %q: %w", args[0], err)
					}
					steps = n
				}
				return runMigration(cmd, opts, mopts, func(ctx context.Context, dsn string, logger logrus.FieldLogger) error {
					if mopts.path != "" {
						return migrations.Rollback(ctx, dsn, mopts.path, steps, logger)
					}
					return migrations.RollbackEmbedded(ctx, dsn, steps, logger)
				})
			},
		},
	)
	return cmd
}

func runMigration(cmd *cobra.Command, opts *rootOptions, mopts *migrateOptions, run func(context.Context, string, logrus.FieldLogger) error) error {
	cfg, _, err := config.LoadOrDefault(cmd.Context(), config.ResolvePath(opts.configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if level := strings.TrimSpace(opts.logLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, closeLog, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("initialise logging: %w", err)
	}
	defer closeLog()

	dsn := strings.TrimSpace(mopts.dsn)
	if dsn == "" {
		dsn = cfg.Database.DSN
	}
	if dsn == "" {
		return errors.New("--database flag or database.dsn is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), mopts.timeout)
	defer cancel()
	return run(ctx, dsn, logger)
}
