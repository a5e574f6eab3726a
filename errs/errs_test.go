package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesCanonicalAndMetadata(t *testing.T) {
	err := New(
		"ledgerrpc",
		CodeProtocol,
		WithHTTP(200),
		WithMessage("rpc returned error object"),
		WithRawCode("-32601"),
		WithCanonicalCode(CanonicalNoData),
		WithField("method", "getOpenOrders"),
		WithField("request_id", "req-123"),
		WithCause(errors.New("method not found")),
	)

	out := err.Error()
	if !strings.Contains(out, "component=ledgerrpc") {
		t.Fatalf("expected component marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=protocol") {
		t.Fatalf("expected code in error string: %s", out)
	}
	if !strings.Contains(out, "canonical=no_data") {
		t.Fatalf("expected canonical classification in error string: %s", out)
	}
	expectedMeta := "meta=method=\"getOpenOrders\",request_id=\"req-123\""
	if !strings.Contains(out, expectedMeta) {
		t.Fatalf("expected metadata %q in error string: %s", expectedMeta, out)
	}
	if !strings.Contains(out, "cause=\"method not found\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestWithCanonicalCodeEmptyDefaultsToUnknown(t *testing.T) {
	err := New("market", CodeInvalid, WithCanonicalCode("   "))
	if err.Canonical != CanonicalUnknown {
		t.Fatalf("expected canonical code to default to unknown, got %q", err.Canonical)
	}
	if strings.Contains(err.Error(), "canonical=") {
		t.Fatalf("canonical marker should be omitted when code is unknown: %s", err.Error())
	}
}

func TestIsMatchesSentinelThroughWrapping(t *testing.T) {
	base := UnknownChain("market", "doge")
	wrapped := fmt.Errorf("price order: %w", base)

	if !errors.Is(wrapped, ErrUnknownChain) {
		t.Fatalf("expected wrapped error to match ErrUnknownChain")
	}
	if errors.Is(wrapped, ErrInvalidOrder) {
		t.Fatalf("unknown chain must not match ErrInvalidOrder")
	}
	if !strings.Contains(base.Error(), `chain="doge"`) {
		t.Fatalf("expected chain in error string: %s", base.Error())
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:3000: connect: connection refused")
	err := Unavailable("ledgerrpc", cause)

	if !errors.Is(err, ErrDataSourceUnavailable) {
		t.Fatalf("expected ErrDataSourceUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to remain reachable via errors.Is")
	}
	if CodeOf(fmt.Errorf("outer: %w", err)) != CodeNetwork {
		t.Fatalf("expected network code, got %q", CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty code for plain errors")
	}
}

func TestNilEnvelope(t *testing.T) {
	var e *E
	if e.Error() != "<nil>" {
		t.Fatalf("unexpected nil rendering: %q", e.Error())
	}
	if e.Is(ErrNoData) {
		t.Fatalf("nil envelope must not match sentinels")
	}
}

func TestNoDataCarriesNotFoundAndFields(t *testing.T) {
	err := NoData("price_resolver", WithField("tier", "open_orders"))

	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData")
	}
	if errors.Is(err, ErrDataSourceUnavailable) {
		t.Fatalf("no-data must not read as an unreachable source")
	}
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("expected not_found code, got %q", CodeOf(err))
	}
	if !strings.Contains(err.Error(), `tier="open_orders"`) {
		t.Fatalf("expected tier field in %q", err.Error())
	}
}
