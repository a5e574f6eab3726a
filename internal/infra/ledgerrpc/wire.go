package ledgerrpc

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/coachpo/borderless/internal/domain/market"
)

const jsonRPCVersion = "2.0"

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

// sdkError is the {code, message} shape some ledger handlers return as a result.
type sdkError struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

// resultError reports whether raw is an error-shaped result.
func resultError(raw json.RawMessage) (sdkError, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return sdkError{}, false
	}
	var candidate sdkError
	if err := json.Unmarshal(trimmed, &candidate); err != nil {
		return sdkError{}, false
	}
	code := strings.Trim(strings.TrimSpace(string(candidate.Code)), `"`)
	if code == "" || code == "0" || code == "null" || strings.TrimSpace(candidate.Message) == "" {
		return sdkError{}, false
	}
	return candidate, true
}

// responseID extracts the request id echoed by the ledger.
func responseID(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(trimmed); err == nil {
		return unquoted
	}
	return trimmed
}

// cursor decodes a nextBlock value that may be a number, a string, null or false.
type cursor string

func (c *cursor) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch trimmed {
	case "", "null", "false":
		*c = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("decode cursor: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "0" {
			text = ""
		}
		*c = cursor(text)
		return nil
	}
	height, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("decode cursor %q: %w", trimmed, err)
	}
	if height == 0 {
		*c = ""
		return nil
	}
	*c = cursor(strconv.FormatUint(height, 10))
	return nil
}

// height decodes a block height given as a number or a numeric string.
type height uint64

func (h *height) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("block height missing")
	}
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("decode block height %q: %w", trimmed, err)
	}
	*h = height(value)
	return nil
}

// historicalEntry is a matched trade; the maker side carries the order terms.
// Flat entries are accepted for ledgers that return bare orders.
type historicalEntry struct {
	Maker *market.Order `json:"maker"`
	market.Order
}

func (e historicalEntry) order() market.Order {
	if e.Maker != nil {
		return *e.Maker
	}
	return e.Order
}

type historicalResult struct {
	OrdersList []historicalEntry `json:"ordersList"`
	NextBlock  cursor            `json:"nextBlock"`
}

type openOrdersResult struct {
	OrdersList []market.Order `json:"ordersList"`
}

type latestBlockResult struct {
	Height height `json:"height"`
}

func decodeOpenOrders(raw json.RawMessage) ([]market.Order, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var orders []market.Order
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, err
		}
		return orders, nil
	}
	var result openOrdersResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	return result.OrdersList, nil
}
