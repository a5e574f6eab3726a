// Package ledgerrpc implements ledger.Source over the ledger node's JSON-RPC API.
package ledgerrpc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/coachpo/borderless/errs"
	"github.com/coachpo/borderless/internal/domain/ledger"
	"github.com/coachpo/borderless/internal/domain/market"
	"github.com/coachpo/borderless/internal/infra/logging"
)

const component = "ledgerrpc"

const (
	methodHistoricalOrders = "getHistoricalOrders"
	methodOpenOrders       = "getOpenOrders"
	methodLatestBlock      = "getLatestBlock"
)

const (
	defaultRPCPath    = "/rpc"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Config describes how to reach a ledger node.
type Config struct {
	Address            string
	Scookie            string
	RPCPath            string
	Timeout            time.Duration
	MaxRetries         int
	RequestsPerSecond  float64
	Burst              int
	InsecureSkipVerify bool
	// InitialBackoff overrides the first retry delay; mostly useful in tests.
	InitialBackoff time.Duration
}

func (c Config) withDefaults() Config {
	c.Address = strings.TrimSpace(c.Address)
	c.Scookie = strings.TrimSpace(c.Scookie)
	if strings.TrimSpace(c.RPCPath) == "" {
		c.RPCPath = defaultRPCPath
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	return c
}

// Client is a ledger.Source backed by JSON-RPC over HTTP(S) or websocket.
type Client struct {
	cfg       Config
	transport transport
	limiter   *rate.Limiter
	logger    logrus.FieldLogger
}

var _ ledger.Source = (*Client)(nil)

// New validates cfg and prepares a client. No connection is made until the first call.
func New(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Address == "" || cfg.Scookie == "" {
		return nil, errs.New(component, errs.CodeConfig, errs.WithMessage("ledger address and scookie are required"))
	}
	endpoint, err := endpointURL(cfg.Address, cfg.RPCPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	client := &Client{
		cfg:    cfg,
		logger: logger.WithField("component", component),
	}
	switch endpoint.Scheme {
	case "ws", "wss":
		client.transport = newWSTransport(endpoint.String(), cfg)
	default:
		client.transport = newHTTPTransport(endpoint.String(), cfg)
	}
	if cfg.RequestsPerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	return client, nil
}

// Close releases transport resources.
func (c *Client) Close() error {
	return c.transport.close()
}

// HistoricalOrders fetches one page of matched orders ending at cursor.
func (c *Client) HistoricalOrders(ctx context.Context, cursor string, pageSize int) (ledger.HistoricalBatch, error) {
	raw, err := c.call(ctx, methodHistoricalOrders, []any{cursor, pageSize})
	if err != nil {
		return ledger.HistoricalBatch{}, err
	}
	var result historicalResult
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &result); err != nil {
			return ledger.HistoricalBatch{}, decodeError(methodHistoricalOrders, err)
		}
	}
	orders := make([]market.Order, 0, len(result.OrdersList))
	for _, entry := range result.OrdersList {
		orders = append(orders, entry.order())
	}
	return ledger.HistoricalBatch{Orders: orders, NextBlock: string(result.NextBlock)}, nil
}

// OpenOrders fetches every open maker order.
func (c *Client) OpenOrders(ctx context.Context) ([]market.Order, error) {
	raw, err := c.call(ctx, methodOpenOrders, []any{})
	if err != nil {
		return nil, err
	}
	orders, err := decodeOpenOrders(raw)
	if err != nil {
		return nil, decodeError(methodOpenOrders, err)
	}
	return orders, nil
}

// LatestBlockHeight returns the height of the ledger's best block.
func (c *Client) LatestBlockHeight(ctx context.Context) (uint64, error) {
	raw, err := c.call(ctx, methodLatestBlock, []any{})
	if err != nil {
		return 0, err
	}
	var result latestBlockResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, decodeError(methodLatestBlock, err)
	}
	return uint64(result.Height), nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	started := time.Now()
	id := uuid.NewString()
	payload, err := json.Marshal(rpcRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params})
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("encode request"), errs.WithCause(err))
	}
	logger := c.logger.WithFields(logrus.Fields{"method": method, "request_id": id})

	attempt := 0
	operation := func() (json.RawMessage, error) {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(errs.Unavailable(component, err, errs.WithField("method", method)))
			}
		}
		body, err := c.transport.roundTrip(ctx, id, payload)
		if err != nil {
			if retryable(err) {
				logger.WithError(err).WithField("attempt", attempt).Debug("ledger call failed, retrying")
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		result, err := decodeResponse(method, body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return result, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
	)
	if err != nil {
		var envelope *errs.E
		if !errors.As(err, &envelope) {
			err = errs.Unavailable(component, err, errs.WithField("method", method))
		}
		recordCall(ctx, method, c.transport.kind(), started, err)
		logger.WithError(err).Debug("ledger call failed")
		return nil, err
	}
	recordCall(ctx, method, c.transport.kind(), started, nil)
	logger.WithField("attempts", attempt).Debug("ledger call succeeded")
	return result, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	b.MaxInterval = 5 * time.Second
	return b
}

func retryable(err error) bool {
	switch errs.CodeOf(err) {
	case errs.CodeNetwork, errs.CodeUnavailable, errs.CodeRateLimited:
		return true
	default:
		return false
	}
}

func decodeResponse(method string, body []byte) (json.RawMessage, error) {
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeError(method, err)
	}
	if resp.Error != nil {
		return nil, errs.New(component, errs.CodeProtocol,
			errs.WithRawCode(strings.Trim(string(resp.Error.Code), `"`)),
			errs.WithMessage(resp.Error.Message),
			errs.WithField("method", method))
	}
	if sdkErr, ok := resultError(resp.Result); ok {
		return nil, errs.New(component, errs.CodeProtocol,
			errs.WithRawCode(strings.Trim(string(sdkErr.Code), `"`)),
			errs.WithMessage(sdkErr.Message),
			errs.WithField("method", method))
	}
	return resp.Result, nil
}

func decodeError(method string, err error) error {
	return errs.New(component, errs.CodeProtocol,
		errs.WithMessage("decode ledger response"),
		errs.WithField("method", method),
		errs.WithCause(err))
}

func endpointURL(address, path string) (*url.URL, error) {
	raw := strings.TrimSpace(address)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.New(component, errs.CodeConfig, errs.WithMessage("parse ledger address"), errs.WithCause(err))
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, errs.New(component, errs.CodeConfig, errs.WithMessage(fmt.Sprintf("unsupported ledger scheme %q", u.Scheme)))
	}
	if u.Host == "" {
		return nil, errs.New(component, errs.CodeConfig, errs.WithMessage("ledger address has no host"))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	return u, nil
}
