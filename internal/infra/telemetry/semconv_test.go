package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestEnvironmentDefaultsAndOverride(t *testing.T) {
	SetEnvironment("")
	if Environment() != "dev" {
		t.Fatalf("expected dev default, got %q", Environment())
	}
	SetEnvironment(" PROD ")
	defer SetEnvironment("")
	if Environment() != "prod" {
		t.Fatalf("expected prod, got %q", Environment())
	}
}

func TestRPCAttributesIncludeMethod(t *testing.T) {
	attrs := attribute.NewSet(RPCAttributes("getOpenOrders", "http", ResultSuccess)...)
	value, ok := attrs.Value(AttrRPCMethod)
	if !ok || value.AsString() != "getOpenOrders" {
		t.Fatalf("expected rpc.method attribute, got %v", value)
	}
	if _, ok := attrs.Value(AttrEnvironment); !ok {
		t.Fatalf("expected environment attribute")
	}
}
