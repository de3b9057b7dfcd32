// Package apiclient talks to the catalog and booking REST API. Every call is
// throttled per endpoint, tagged with a request id, bounded by a timeout and
// reported through a typed *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/travelbook/internal/ratelimit"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout  = 30 * time.Second
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 16 << 20
)

var errServerStatus = errors.New("upstream 5xx")

type Client struct {
	base    *url.URL
	hc      *http.Client
	limiter *ratelimit.Limiter
	timeout time.Duration
	log     *slog.Logger
	breaker *gobreaker.CircuitBreaker[*http.Response]
	newID   func() string

	group singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithDefaultTimeout sets the timeout used when a call does not pass WithTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker settings. A zero Name
// disables the breaker.
func WithBreaker(st gobreaker.Settings) Option {
	return func(c *Client) {
		if st.Name == "" {
			c.breaker = nil
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](st)
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:    u,
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter: ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow),
		timeout: DefaultTimeout,
		log:     slog.Default(),
		newID:   uuid.NewString,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](c.defaultBreakerSettings())
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) defaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:    "catalog-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

type callConfig struct {
	timeout time.Duration
	query   url.Values
	header  http.Header
}

type CallOption func(*callConfig)

// WithTimeout overrides the timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(cc *callConfig) { cc.timeout = d }
}

// WithQuery adds query parameters to one call.
func WithQuery(q url.Values) CallOption {
	return func(cc *callConfig) {
		for k, vs := range q {
			for _, v := range vs {
				cc.query.Add(k, v)
			}
		}
	}
}

// WithHeader sets a request header for one call.
func WithHeader(key, value string) CallOption {
	return func(cc *callConfig) { cc.header.Set(key, value) }
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends one request. A non-nil body is JSON encoded; out, when non-nil,
// receives the decoded response (or its "data" member when wrapped).
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(b)
		opts = append([]CallOption{WithHeader("Content-Type", "application/json")}, opts...)
	}
	raw, err := c.send(ctx, method, path, payload, opts)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeBody(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) resolve(path string, q url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", path, err)
	}
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""
	merged := ref.Query()
	for k, vs := range q {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return &u, nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, opts []CallOption) ([]byte, error) {
	cc := callConfig{timeout: c.timeout, query: url.Values{}, header: http.Header{}}
	for _, o := range opts {
		o(&cc)
	}

	u, err := c.resolve(path, cc.query)
	if err != nil {
		return nil, err
	}
	if !c.limiter.Allow(u.Path) {
		c.log.Warn("api request throttled", "method", method, "path", u.Path)
		return nil, rateLimited(method, u.Path)
	}

	callCtx, cancel := context.WithTimeout(ctx, cc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range cc.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	reqID := c.newID()
	req.Header.Set(RequestIDHeader, reqID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.execute(req)
	if err != nil {
		apiErr := c.classify(ctx, callCtx, err)
		apiErr.Method, apiErr.Path, apiErr.RequestID = method, u.Path, reqID
		c.log.Warn("api request failed", "method", method, "path", u.Path, "kind", apiErr.Kind,
			"request_id", reqID, "duration_ms", time.Since(start).Milliseconds(), "err", err)
		return nil, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		apiErr := c.classify(ctx, callCtx, err)
		apiErr.Method, apiErr.Path, apiErr.RequestID = method, u.Path, reqID
		return nil, apiErr
	}

	c.log.Info("api request", "method", method, "path", u.Path, "status", resp.StatusCode,
		"request_id", reqID, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := httpError(resp.StatusCode, upstreamMessage(raw), nil)
		e.Method, e.Path, e.RequestID = method, u.Path, reqID
		return nil, e
	}
	return raw, nil
}

// execute runs the request through the breaker when one is configured.
// 5xx responses count as breaker failures but are still returned.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.hc.Do(req)
	}
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	switch {
	case errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return resp, err
}

// classify maps a transport failure onto the error taxonomy. parent is the
// caller's context, callCtx the one carrying the per-call timeout.
func (c *Client) classify(parent, callCtx context.Context, err error) *Error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return &Error{Kind: KindCanceled, Status: 0, Message: "request cancelled", Err: context.Canceled}
	case parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded),
		errors.Is(parent.Err(), context.DeadlineExceeded):
		return &Error{
			Kind:       KindTimeout,
			Status:     http.StatusRequestTimeout,
			StatusText: http.StatusText(http.StatusRequestTimeout),
			Message:    "request timed out",
			Err:        err,
		}
	}
	return &Error{Kind: KindNetwork, Status: 0, Message: "network error", Err: err}
}

// upstreamMessage pulls a human message out of an error body when present.
func upstreamMessage(body []byte) string {
	var r struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &r); err == nil {
		if r.Message != "" {
			return r.Message
		}
		if r.Error != "" {
			return r.Error
		}
	}
	return ""
}

// decodeBody accepts either a bare payload or {"success":..,"data":..}.
func decodeBody(raw []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
			raw = env.Data
		}
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	return json.Unmarshal(raw, out)
}
