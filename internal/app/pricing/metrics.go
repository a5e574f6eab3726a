package pricing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/borderless/internal/infra/telemetry"
)

var (
	resolutionsCounter metric.Int64Counter
	pagesCounter       metric.Int64Counter
	instrumentsOnce    sync.Once
)

func initInstruments() {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("app.pricing")
		if counter, err := meter.Int64Counter("borderless_price_resolutions_total",
			metric.WithDescription("Price resolutions by producing tier"),
			metric.WithUnit("{resolution}")); err == nil {
			resolutionsCounter = counter
		}
		if counter, err := meter.Int64Counter("borderless_history_pages_total",
			metric.WithDescription("Historical order pages fetched while scanning for a price"),
			metric.WithUnit("{page}")); err == nil {
			pagesCounter = counter
		}
	})
}

func recordResolution(ctx context.Context, pair string, tier Tier) {
	initInstruments()
	if resolutionsCounter == nil {
		return
	}
	resolutionsCounter.Add(ctx, 1, metric.WithAttributes(telemetry.ResolutionAttributes(pair, string(tier))...))
}

func recordPage(ctx context.Context, result string) {
	initInstruments()
	if pagesCounter == nil {
		return
	}
	pagesCounter.Add(ctx, 1, metric.WithAttributes(
		telemetry.AttrEnvironment.String(telemetry.Environment()),
		attribute.String("result", result),
	))
}
