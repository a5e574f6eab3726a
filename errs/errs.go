// Package errs provides structured error types and helpers for the borderless client.
package errs

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Code identifies the failure family reported by a component.
type Code string

const (
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeConfig indicates a configuration defect such as a missing chain mapping.
	CodeConfig Code = "config"
	// CodeNetwork indicates a transport failure before a response was received.
	CodeNetwork Code = "network"
	// CodeProtocol indicates the ledger answered with an error object or an undecodable body.
	CodeProtocol Code = "protocol"
	// CodeRateLimited indicates the ledger rejected the request with HTTP 429.
	CodeRateLimited Code = "rate_limited"
	// CodeNotFound indicates no data was available.
	CodeNotFound Code = "not_found"
	// CodeUnavailable indicates the component cannot serve requests.
	CodeUnavailable Code = "unavailable"
)

// CanonicalCode captures the pipeline-level error taxonomy.
type CanonicalCode string

const (
	// CanonicalUnknown captures uncategorized failures.
	CanonicalUnknown CanonicalCode = "unknown"
	// CanonicalUnknownChain indicates a chain identifier missing from the unit table.
	CanonicalUnknownChain CanonicalCode = "unknown_chain"
	// CanonicalInvalidOrder indicates an order with zero or degenerate amounts.
	CanonicalInvalidOrder CanonicalCode = "invalid_order"
	// CanonicalNotPairOrder indicates an order whose chains do not include the quote chain.
	CanonicalNotPairOrder CanonicalCode = "not_pair_order"
	// CanonicalDataSourceUnavailable indicates the ledger endpoint could not be reached.
	CanonicalDataSourceUnavailable CanonicalCode = "data_source_unavailable"
	// CanonicalNoData indicates an empty answer that drives fallback tiering.
	CanonicalNoData CanonicalCode = "no_data"
)

// Sentinels usable with errors.Is against any *E carrying the matching canonical code.
var (
	ErrUnknownChain          = errors.New(string(CanonicalUnknownChain))
	ErrInvalidOrder          = errors.New(string(CanonicalInvalidOrder))
	ErrNotPairOrder          = errors.New(string(CanonicalNotPairOrder))
	ErrDataSourceUnavailable = errors.New(string(CanonicalDataSourceUnavailable))
	ErrNoData                = errors.New(string(CanonicalNoData))
)

var sentinels = map[CanonicalCode]error{
	CanonicalUnknownChain:          ErrUnknownChain,
	CanonicalInvalidOrder:          ErrInvalidOrder,
	CanonicalNotPairOrder:          ErrNotPairOrder,
	CanonicalDataSourceUnavailable: ErrDataSourceUnavailable,
	CanonicalNoData:                ErrNoData,
}

// E captures structured error information produced across the client.
type E struct {
	Component string
	Code      Code
	Canonical CanonicalCode
	Chain     string
	HTTP      int
	RawCode   string
	Message   string
	Metadata  map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the component and error code.
func New(component string, code Code, opts ...Option) *E {
	e := &E{
		Component: strings.TrimSpace(component),
		Code:      code,
		Canonical: CanonicalUnknown,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithChain records the chain identifier involved in the failure.
func WithChain(chain string) Option {
	trimmed := strings.TrimSpace(chain)
	return func(e *E) {
		e.Chain = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithRawCode captures the raw JSON-RPC error code.
func WithRawCode(code string) Option {
	trimmed := strings.TrimSpace(code)
	return func(e *E) {
		e.RawCode = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// WithCanonicalCode sets the canonical error code describing the failure category.
func WithCanonicalCode(code CanonicalCode) Option {
	trimmed := strings.TrimSpace(string(code))
	return func(e *E) {
		if trimmed == "" {
			e.Canonical = CanonicalUnknown
			return
		}
		e.Canonical = CanonicalCode(trimmed)
	}
}

// WithField appends a single metadata key/value pair.
func WithField(key, value string) Option {
	return func(e *E) {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, 1)
		}
		e.Metadata[trimmedKey] = strings.TrimSpace(value)
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	component := e.Component
	if component == "" {
		component = "unknown"
	}
	parts = append(parts, "component="+component)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if cc := strings.TrimSpace(string(e.Canonical)); cc != "" && cc != string(CanonicalUnknown) {
		parts = append(parts, "canonical="+cc)
	}
	if e.Chain != "" {
		parts = append(parts, "chain="+strconv.Quote(e.Chain))
	}
	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawCode != "" {
		parts = append(parts, "raw_code="+strconv.Quote(e.RawCode))
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+strconv.Quote(e.Metadata[k]))
		}
		parts = append(parts, "meta="+strings.Join(pairs, ","))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel for the envelope's canonical code.
func (e *E) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := sentinels[e.Canonical]
	return ok && sentinel == target
}

// CodeOf returns the Code of the first *E in err's chain, or the empty code.
func CodeOf(err error) Code {
	var envelope *E
	if errors.As(err, &envelope) {
		return envelope.Code
	}
	return ""
}

// UnknownChain reports a chain identifier missing from the unit table.
func UnknownChain(component, chain string) *E {
	return New(component, CodeConfig,
		WithCanonicalCode(CanonicalUnknownChain),
		WithChain(chain),
		WithMessage("chain not present in unit table"))
}

// Unavailable reports a connectivity failure against the ledger endpoint.
// Extra options are applied after the defaults and may override them.
func Unavailable(component string, cause error, opts ...Option) *E {
	base := []Option{
		WithCanonicalCode(CanonicalDataSourceUnavailable),
		WithMessage("ledger endpoint unreachable"),
		WithCause(cause),
	}
	return New(component, CodeNetwork, append(base, opts...)...)
}

// NoData reports an empty answer that should drive fallback tiering.
func NoData(component string, opts ...Option) *E {
	base := []Option{
		WithCanonicalCode(CanonicalNoData),
		WithMessage("no matching data"),
	}
	return New(component, CodeNotFound, append(base, opts...)...)
}
