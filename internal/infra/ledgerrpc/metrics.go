package ledgerrpc

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/borderless/internal/infra/telemetry"
)

var (
	requestsCounter   metric.Int64Counter
	durationHistogram metric.Float64Histogram
	instrumentsOnce   sync.Once
)

func recordCall(ctx context.Context, method, transport string, started time.Time, err error) {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("ledgerrpc")
		if counter, cerr := meter.Int64Counter("borderless_rpc_requests_total",
			metric.WithDescription("Ledger JSON-RPC calls by method and result"),
			metric.WithUnit("{request}")); cerr == nil {
			requestsCounter = counter
		}
		if histogram, herr := meter.Float64Histogram("borderless_rpc_duration_seconds",
			metric.WithDescription("Ledger JSON-RPC call latency including retries"),
			metric.WithUnit("s")); herr == nil {
			durationHistogram = histogram
		}
	})
	result := telemetry.ResultSuccess
	if err != nil {
		result = telemetry.ResultError
	}
	attrs := metric.WithAttributes(telemetry.RPCAttributes(method, transport, result)...)
	if requestsCounter != nil {
		requestsCounter.Add(ctx, 1, attrs)
	}
	if durationHistogram != nil {
		durationHistogram.Record(ctx, time.Since(started).Seconds(), attrs)
	}
}
