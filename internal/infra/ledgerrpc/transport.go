package ledgerrpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/coachpo/borderless/errs"
)

const (
	transportHTTP      = "http"
	transportWebsocket = "websocket"

	maxErrorBody = 4 << 10
	wsReadLimit  = 64 << 20
)

// transport moves one encoded JSON-RPC request to the ledger and returns the raw response.
type transport interface {
	roundTrip(ctx context.Context, id string, payload []byte) ([]byte, error)
	kind() string
	close() error
}

// statusError is a non-2xx HTTP answer.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("ledger status %d", e.status)
	}
	return fmt.Sprintf("ledger status %d: %s", e.status, e.body)
}

func (e *statusError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError
}

func basicAuth(scookie string) string {
	// The ledger authenticates with an empty user and the session cookie as password.
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+scookie))
}

func newHTTPClient(cfg Config) *http.Client {
	base, ok := http.DefaultTransport.(*http.Transport)
	var rt *http.Transport
	if ok {
		rt = base.Clone()
	} else {
		rt = &http.Transport{}
	}
	if cfg.InsecureSkipVerify {
		rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opt-in for self-signed ledger nodes.
	}
	return &http.Client{Transport: rt, Timeout: cfg.Timeout}
}

type httpTransport struct {
	endpoint string
	auth     string
	client   *http.Client
}

func newHTTPTransport(endpoint string, cfg Config) *httpTransport {
	return &httpTransport{
		endpoint: endpoint,
		auth:     basicAuth(cfg.Scookie),
		client:   newHTTPClient(cfg),
	}
}

func (t *httpTransport) kind() string { return transportHTTP }

func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *httpTransport) roundTrip(ctx context.Context, _ string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("build request"), errs.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", t.auth)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errs.Unavailable(component, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, classifyStatus(&statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))})
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Unavailable(component, fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

func classifyStatus(se *statusError) error {
	switch {
	case se.status == http.StatusTooManyRequests:
		return errs.New(component, errs.CodeRateLimited,
			errs.WithHTTP(se.status),
			errs.WithCanonicalCode(errs.CanonicalDataSourceUnavailable),
			errs.WithMessage("ledger rate limited the request"),
			errs.WithCause(se))
	case se.status >= http.StatusInternalServerError:
		return errs.New(component, errs.CodeUnavailable,
			errs.WithHTTP(se.status),
			errs.WithCanonicalCode(errs.CanonicalDataSourceUnavailable),
			errs.WithMessage("ledger server error"),
			errs.WithCause(se))
	case se.status == http.StatusUnauthorized || se.status == http.StatusForbidden:
		return errs.New(component, errs.CodeConfig,
			errs.WithHTTP(se.status),
			errs.WithCanonicalCode(errs.CanonicalDataSourceUnavailable),
			errs.WithMessage("ledger rejected credentials"),
			errs.WithCause(se))
	default:
		return errs.New(component, errs.CodeProtocol,
			errs.WithHTTP(se.status),
			errs.WithMessage("unexpected ledger status"),
			errs.WithCause(se))
	}
}

// wsTransport keeps one websocket connection and serialises calls over it,
// matching each response to its request id.
type wsTransport struct {
	url  string
	opts *websocket.DialOptions

	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSTransport(endpoint string, cfg Config) *wsTransport {
	header := http.Header{}
	header.Set("Authorization", basicAuth(cfg.Scookie))
	return &wsTransport{
		url: endpoint,
		opts: &websocket.DialOptions{
			HTTPClient: newHTTPClient(Config{InsecureSkipVerify: cfg.InsecureSkipVerify}),
			HTTPHeader: header,
		},
	}
}

func (t *wsTransport) kind() string { return transportWebsocket }

func (t *wsTransport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close(websocket.StatusNormalClosure, "shutdown")
	t.conn = nil
	return err
}

func (t *wsTransport) roundTrip(ctx context.Context, id string, payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		conn, _, err := websocket.Dial(ctx, t.url, t.opts)
		if err != nil {
			return nil, errs.Unavailable(component, fmt.Errorf("dial %s: %w", t.url, err))
		}
		conn.SetReadLimit(wsReadLimit)
		t.conn = conn
	}

	if err := t.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.dropLocked()
		return nil, errs.Unavailable(component, fmt.Errorf("write websocket: %w", err))
	}
	for {
		_, data, err := t.conn.Read(ctx)
		if err != nil {
			t.dropLocked()
			return nil, errs.Unavailable(component, fmt.Errorf("read websocket: %w", err))
		}
		matched, err := matchesID(data, id)
		if err != nil {
			return nil, err
		}
		if matched {
			return data, nil
		}
	}
}

func (t *wsTransport) dropLocked() {
	if t.conn == nil {
		return
	}
	_ = t.conn.CloseNow()
	t.conn = nil
}

var errUnframed = errors.New("websocket frame is not a JSON-RPC response")

func matchesID(data []byte, id string) (bool, error) {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false, errs.New(component, errs.CodeProtocol, errs.WithMessage("decode websocket frame"), errs.WithCause(errors.Join(errUnframed, err)))
	}
	return responseID(probe.ID) == id, nil
}
