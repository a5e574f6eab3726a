// Package migrations wires golang-migrate execution for the quote history store.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migrations loader
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	dbmigrations "github.com/coachpo/borderless/db/migrations"
	"github.com/coachpo/borderless/internal/infra/logging"
	"github.com/coachpo/borderless/internal/infra/telemetry"
)

const embeddedLabel = "embedded"

var (
	errNotDirectory = errors.New("migrations path must be a directory")

	migrationsCounter   metric.Int64Counter
	migrationsCounterMu sync.Once
)

// source opens a migrate instance bound to an already-initialised database driver.
type source struct {
	label string
	open  func(driver database.Driver) (*migrate.Migrate, error)
}

func dirSource(dir string) (source, error) {
	resolved, err := resolveDir(dir)
	if err != nil {
		return source{}, err
	}
	return source{
		label: resolved,
		open: func(driver database.Driver) (*migrate.Migrate, error) {
			return migrate.NewWithDatabaseInstance(fileURL(resolved), "pgx5", driver)
		},
	}, nil
}

func fsSource(fsys fs.FS) source {
	return source{
		label: embeddedLabel,
		open: func(driver database.Driver) (*migrate.Migrate, error) {
			src, err := iofs.New(fsys, ".")
			if err != nil {
				return nil, fmt.Errorf("open embedded migrations: %w", err)
			}
			return migrate.NewWithInstance("iofs", src, "pgx5", driver)
		},
	}
}

// Apply ensures the migrations located at migrationsDir are applied to the Postgres
// instance reachable via dsn. A nil logger disables informational logging.
func Apply(ctx context.Context, dsn, migrationsDir string, logger logrus.FieldLogger) error {
	src, err := dirSource(migrationsDir)
	if err != nil {
		return err
	}
	return up(ctx, dsn, src, logger)
}

// ApplyEmbedded applies the migrations compiled into the binary.
func ApplyEmbedded(ctx context.Context, dsn string, logger logrus.FieldLogger) error {
	return up(ctx, dsn, fsSource(dbmigrations.Files), logger)
}

// Rollback reverts steps migrations from migrationsDir.
func Rollback(ctx context.Context, dsn, migrationsDir string, steps int, logger logrus.FieldLogger) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be >0")
	}
	src, err := dirSource(migrationsDir)
	if err != nil {
		return err
	}
	return down(ctx, dsn, src, steps, logger)
}

// RollbackEmbedded reverts steps of the migrations compiled into the binary.
func RollbackEmbedded(ctx context.Context, dsn string, steps int, logger logrus.FieldLogger) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be >0")
	}
	return down(ctx, dsn, fsSource(dbmigrations.Files), steps, logger)
}

func down(ctx context.Context, dsn string, src source, steps int, logger logrus.FieldLogger) error {
	return withMigrate(ctx, dsn, src, orDiscard(logger), func(m *migrate.Migrate, logger logrus.FieldLogger) error {
		if err := m.Steps(-steps); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				return nil
			}
			recordMigrationMetric(ctx, "rollback_failed", src.label)
			return fmt.Errorf("rollback migrations: %w", err)
		}
		logger.WithField("steps", steps).Info("database migrations rolled back")
		recordMigrationMetric(ctx, "rolled_back", src.label)
		return nil
	})
}

func up(ctx context.Context, dsn string, src source, logger logrus.FieldLogger) error {
	return withMigrate(ctx, dsn, src, orDiscard(logger), func(m *migrate.Migrate, logger logrus.FieldLogger) error {
		logger.WithField("path", src.label).Info("running database migrations")
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				recordMigrationMetric(ctx, "noop", src.label)
				logger.Info("database migrations up-to-date")
				return nil
			}
			recordMigrationMetric(ctx, "failed", src.label)
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("database migrations applied successfully")
		recordMigrationMetric(ctx, "applied", src.label)
		return nil
	})
}

func withMigrate(ctx context.Context, dsn string, src source, logger logrus.FieldLogger, fn func(*migrate.Migrate, logrus.FieldLogger) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.WithError(cerr).Warn("database migrations close")
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migrations database: %w", err)
	}

	var driverConfig pgxv5.Config
	driver, err := pgxv5.WithInstance(db, &driverConfig)
	if err != nil {
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}

	m, err := src.open(driver)
	if err != nil {
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			logger.WithError(sourceErr).Warn("database migrations source close")
		}
		if dbErr != nil {
			logger.WithError(dbErr).Warn("database migrations db close")
		}
	}()

	return fn(m, logger)
}

func orDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		logger = logging.Discard()
	}
	return logger.WithField("component", "migrations")
}

func resolveDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", fmt.Errorf("migrations path required")
	}

	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("migrations directory: %w", err)
		}
		return "", fmt.Errorf("stat migrations directory: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("migrations directory: %w", errNotDirectory)
	}

	return abs, nil
}

func fileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := new(url.URL)
	u.Scheme = "file"
	u.Path = slashed
	return u.String()
}

func recordMigrationMetric(ctx context.Context, result, path string) {
	migrationsCounterMu.Do(func() {
		meter := otel.Meter("persistence.migrations")
		counter, err := meter.Int64Counter("borderless_db_migrations_total",
			metric.WithDescription("Total migrations executed via golang-migrate"),
			metric.WithUnit("{migration}"))
		if err == nil {
			migrationsCounter = counter
		}
	})
	if migrationsCounter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		telemetry.AttrEnvironment.String(telemetry.Environment()),
		telemetry.AttrResult.String(result),
	}
	if path != "" {
		attrs = append(attrs, attribute.String("migrations_path", path))
	}
	migrationsCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
