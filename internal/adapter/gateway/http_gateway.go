package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

const (
	DefaultTimeout = 10 * time.Second

	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 8 << 20
)

// Endpoints holds the base URL of each remote service. A single server can
// serve all of them.
type Endpoints struct {
	Dashboard string
	Inventory string
	Requests  string
	Auth      string
}

// SingleHost points every service at the same base URL.
func SingleHost(base string) Endpoints {
	base = strings.TrimRight(base, "/")
	return Endpoints{Dashboard: base, Inventory: base, Requests: base, Auth: base}
}

// HTTPGateway implements port.Gateway over JSON HTTP. Concurrent identical
// GETs issued with the same credential share one round trip, and a caller
// that gives up does not cancel it for the others.
type HTTPGateway struct {
	endpoints Endpoints
	client    *http.Client
	tokens    port.TokenSource
	logger    zerolog.Logger
	flight    singleflight.Group
}

type Option func(*HTTPGateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPGateway) {
		g.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *HTTPGateway) {
		if d > 0 {
			g.client.Timeout = d
		}
	}
}

func NewHTTPGateway(endpoints Endpoints, tokens port.TokenSource, logger zerolog.Logger, opts ...Option) *HTTPGateway {
	g := &HTTPGateway{
		endpoints: Endpoints{
			Dashboard: strings.TrimRight(endpoints.Dashboard, "/"),
			Inventory: strings.TrimRight(endpoints.Inventory, "/"),
			Requests:  strings.TrimRight(endpoints.Requests, "/"),
			Auth:      strings.TrimRight(endpoints.Auth, "/"),
		},
		client: &http.Client{Timeout: DefaultTimeout},
		tokens: tokens,
		logger: logger.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ port.Gateway = (*HTTPGateway)(nil)

type response struct {
	status int
	body   []byte
}

// errorPolicy lets an operation give a status its own meaning. It returns nil
// to fall back to the default mapping.
type errorPolicy func(status int, detail string) error

type call struct {
	method      string
	url         string
	body        []byte
	contentType string
	anonymous   bool
	policy      errorPolicy
}

func (g *HTTPGateway) credential(ctx context.Context, c call) (string, error) {
	if c.anonymous || g.tokens == nil {
		return "", nil
	}
	return g.tokens.Token(ctx)
}

// do performs c and returns the response body of a successful call.
func (g *HTTPGateway) do(ctx context.Context, c call) ([]byte, error) {
	token, err := g.credential(ctx, c)
	if err != nil {
		return nil, err
	}

	var resp *response
	if c.method == http.MethodGet {
		// The shared round trip is detached from any one caller and bounded by
		// the client timeout; each caller stops waiting when its own ctx ends.
		shared := context.WithoutCancel(ctx)
		ch := g.flight.DoChan(c.url+"\x00"+token, func() (any, error) {
			return g.roundTrip(shared, c, token)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			resp = res.Val.(*response)
		}
	} else {
		resp, err = g.roundTrip(ctx, c, token)
		if err != nil {
			return nil, err
		}
	}

	if err := classify(resp, c.policy); err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (g *HTTPGateway) roundTrip(ctx context.Context, c call, token string) (*response, error) {
	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if c.contentType != "" {
		req.Header.Set("Content-Type", c.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn().Err(err).Str("request_id", requestID).Str("method", c.method).Str("url", c.url).Msg("request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, c.method, c.url, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}

	g.logger.Debug().
		Str("request_id", requestID).
		Str("method", c.method).
		Str("url", c.url).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")
	return &response{status: res.StatusCode, body: payload}, nil
}

func classify(resp *response, policy errorPolicy) error {
	if resp.status >= 200 && resp.status < 300 {
		return nil
	}

	detail := extractDetail(resp.body)
	if policy != nil {
		if err := policy(resp.status, detail); err != nil {
			return err
		}
	}

	var kind error
	switch {
	case resp.status == http.StatusUnauthorized:
		kind = domain.ErrUnauthorized
	case resp.status == http.StatusForbidden:
		kind = domain.ErrForbidden
	case resp.status == http.StatusNotFound:
		kind = domain.ErrNotFound
	case resp.status == http.StatusConflict:
		kind = domain.ErrConflict
	case resp.status == http.StatusBadRequest || resp.status == http.StatusUnprocessableEntity:
		kind = domain.ErrValidation
	default:
		kind = domain.ErrServer
	}
	return &domain.RemoteError{StatusCode: resp.status, Detail: detail, Kind: kind}
}

// extractDetail pulls the human readable explanation out of an error body.
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			return detail
		}
		if len(payload.Detail) > 0 && string(payload.Detail) != "null" {
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

func conflictOnReject(status int, detail string) error {
	if status == http.StatusBadRequest || status == http.StatusConflict {
		return &domain.ConflictError{Detail: detail}
	}
	return nil
}

// invalidTransitionOnReject maps only the refusal of a record that is no
// longer pending to ErrInvalidTransition. A refusal that leaves the record
// pending, such as missing stock, keeps its own kind.
func invalidTransitionOnReject(status int, detail string) error {
	switch status {
	case http.StatusConflict:
		return &domain.RemoteError{StatusCode: status, Detail: detail, Kind: domain.ErrInvalidTransition}
	case http.StatusUnprocessableEntity:
		return &domain.RemoteError{StatusCode: status, Detail: detail, Kind: domain.ErrInsufficientStock}
	}
	return nil
}

func (g *HTTPGateway) getJSON(ctx context.Context, url string, out any) error {
	body, err := g.do(ctx, call{method: http.MethodGet, url: url})
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (g *HTTPGateway) sendJSON(ctx context.Context, method, url string, in, out any, policy errorPolicy) error {
	c := call{method: method, url: url, policy: policy}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		c.body = payload
		c.contentType = "application/json"
	}
	body, err := g.do(ctx, c)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(body, out)
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrServer, err)
	}
	return nil
}

// IsTransport reports whether err means no response reached the caller.
func IsTransport(err error) bool {
	return errors.Is(err, domain.ErrTransport) || errors.Is(err, context.DeadlineExceeded)
}
