//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/coachpo/borderless/internal/domain/quotestore"
	"github.com/coachpo/borderless/internal/infra/config"
	"github.com/coachpo/borderless/internal/infra/persistence/migrations"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_USER": "postgres", "POSTGRES_DB": "borderless"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://postgres:secret@%s:%s/borderless?sslmode=disable", host, port.Port())
}

func TestQuoteStoreRoundTrip(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.Eventually(t, func() bool {
		return migrations.ApplyEmbedded(ctx, dsn, nil) == nil
	}, 30*time.Second, time.Second)

	cfg := config.Default().Database
	cfg.DSN = dsn
	pool, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	store := New(pool).Quotes()
	first, err := store.Save(ctx, quotestore.Quote{
		Pair:       "NRG/USDT",
		Price:      decimal.RequireFromString("2.5"),
		Tier:       "historical",
		Candidates: 1,
		Metadata:   map[string]any{"environment": "dev"},
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	_, err = store.Save(ctx, quotestore.Quote{Pair: "NRG/USDT", Price: decimal.NewFromInt(1), Tier: "fallback"})
	require.NoError(t, err)
	_, err = store.Save(ctx, quotestore.Quote{Pair: "BTC/USDT", Price: decimal.NewFromInt(40000), Tier: "open_orders", Candidates: 3})
	require.NoError(t, err)

	recent, err := store.Recent(ctx, "NRG/USDT", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "fallback", recent[0].Tier)
	require.True(t, recent[1].Price.Equal(decimal.RequireFromString("2.5")))
	require.Equal(t, "dev", recent[1].Metadata["environment"])

	// a second run is a no-op
	require.NoError(t, migrations.ApplyEmbedded(ctx, dsn, nil))
}
