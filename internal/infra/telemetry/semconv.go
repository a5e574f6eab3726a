// Package telemetry provides semantic conventions for borderless observability.
package telemetry

import (
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
)

// Semantic convention attribute keys for borderless telemetry.
// Following OpenTelemetry naming conventions: namespace.attribute_name

const (
	// AttrEnvironment specifies the deployment environment (dev/staging/prod) for every metric.
	AttrEnvironment = attribute.Key("environment")
	// AttrRPCMethod names the ledger JSON-RPC method being invoked.
	AttrRPCMethod = attribute.Key("rpc.method")
	// AttrTransport distinguishes http and websocket ledger transports.
	AttrTransport = attribute.Key("transport")
	// AttrResult records the outcome of an operation (success, error class, etc.).
	AttrResult = attribute.Key("result")
	// AttrTier labels price resolutions by the tier that produced them.
	AttrTier = attribute.Key("tier")
	// AttrPair carries the trading pair in BASE/QUOTE form.
	AttrPair = attribute.Key("pair")
	// AttrErrorType categorizes failures by canonical error family.
	AttrErrorType = attribute.Key("error.type")
)

// Result values shared across instruments.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultExhausted = "exhausted"
)

var environment atomic.Value

// SetEnvironment records the environment label attached to every metric.
func SetEnvironment(env string) {
	environment.Store(strings.ToLower(strings.TrimSpace(env)))
}

// Environment returns the configured environment name for use in metric labels.
func Environment() string {
	if v, ok := environment.Load().(string); ok && v != "" {
		return v
	}
	return "dev"
}

// RPCAttributes returns attributes for ledger RPC metrics.
func RPCAttributes(method, transport, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrRPCMethod.String(method),
		AttrTransport.String(transport),
		AttrResult.String(result),
	}
}

// ResolutionAttributes returns attributes for price resolution metrics.
func ResolutionAttributes(pair, tier string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrPair.String(pair),
		AttrTier.String(tier),
	}
}

// ErrorAttributes returns attributes for error metrics.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrErrorType.String(errorType),
	}
}
