package transport

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
	"sync"
	"time"

	"github.com/google/uuid"

	"sdportal/internal/jsonbig"
	"sdportal/internal/logging"
)

const (
	// DefaultTimeout bounds every request made by a Client.
	DefaultTimeout = 3000 * time.Millisecond

	apiVersionPrefix = "/v1"
	requestIDHeader  = "X-Request-ID"
)

// Client issues requests against <baseURL>/v1 and classifies failures.
type Client struct {
	baseURL    string
	apiBaseURL string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu            sync.RWMutex
	onForbidden   func()
	onServerError func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout (defaults to 3s).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithForbiddenHandler installs the handler run before a 403 is returned.
func WithForbiddenHandler(fn func()) Option {
	return func(c *Client) {
		c.onForbidden = fn
	}
}

// WithServerErrorHandler installs the handler run before a 500 is returned.
func WithServerErrorHandler(fn func()) Option {
	return func(c *Client) {
		c.onServerError = fn
	}
}

// New configures a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("transport: base url required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("transport: unsupported base url scheme %q", parsed.Scheme)
	}
	client := &Client{
		baseURL:    baseURL,
		apiBaseURL: baseURL + apiVersionPrefix,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "transport")
	return client, nil
}

// BaseURL returns the service base URL without the version prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIBaseURL returns the versioned API root every request path is joined to.
func (c *Client) APIBaseURL() string {
	return c.apiBaseURL
}

// URL returns the absolute URL for an API path.
func (c *Client) URL(path string) string {
	return c.apiBaseURL + path
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// RegisterForbiddenHandler replaces the handler run on 403 responses. A nil
// fn removes it.
func (c *Client) RegisterForbiddenHandler(fn func()) {
	c.mu.Lock()
	c.onForbidden = fn
	c.mu.Unlock()
}

// RegisterServerErrorHandler replaces the handler run on 500 responses. A nil
// fn removes it.
func (c *Client) RegisterServerErrorHandler(fn func()) {
	c.mu.Lock()
	c.onServerError = fn
	c.mu.Unlock()
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	query  url.Values
	header http.Header
}

// WithQuery appends query parameters to the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) {
		for key, vals := range values {
			for _, v := range vals {
				o.query.Add(key, v)
			}
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.header.Set(key, value)
	}
}

// Get issues a GET and decodes the envelope payload into out (nil discards it).
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any, opts []RequestOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reqOpts := requestOptions{query: url.Values{}, header: http.Header{}}
	for _, opt := range opts {
		opt(&reqOpts)
	}

	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = logging.WithRequestID(ctx, requestID)
	}
	logger := logging.WithContext(ctx, c.logger).With(
		logging.String("method", method),
		logging.String("path", path),
	)

	fail := func(kind Kind, status int, detail any, err error) error {
		apiErr := &Error{Kind: kind, Method: method, Path: path, StatusCode: status, Detail: detail, Err: err}
		logger.Warn("request failed",
			logging.String(logging.FieldErrorKind, kind.String()),
			logging.Int("status", status),
			logging.Error(err),
		)
		return apiErr
	}

	target := c.URL(path)
	if len(reqOpts.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + reqOpts.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := jsonbig.Marshal(body)
		if err != nil {
			return fail(KindUnknown, 0, nil, fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fail(KindUnknown, 0, nil, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	for key, vals := range reqOpts.header {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fail(KindUnknown, 0, nil, fmt.Errorf("no response (timeout=%s): %w", c.timeout, err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(KindUnknown, resp.StatusCode, nil, fmt.Errorf("read body: %w", err))
	}
	logger.Debug("request completed", logging.Int("status", resp.StatusCode), logging.Duration("latency", latency))

	if resp.StatusCode != http.StatusOK {
		kind := Classify(resp.StatusCode)
		var detail any
		if kind == KindValidation {
			detail = decodeDetail(payload)
		}
		c.runHandler(kind)
		return fail(kind, resp.StatusCode, detail, nil)
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	var env envelope
	if err := jsonbig.Unmarshal(payload, &env); err != nil {
		return fail(KindUnknown, resp.StatusCode, nil, fmt.Errorf("decode envelope: %w", err))
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil
	}
	if err := jsonbig.Unmarshal(env.Data, out); err != nil {
		return fail(KindUnknown, resp.StatusCode, nil, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

func (c *Client) runHandler(kind Kind) {
	var handler func()
	c.mu.RLock()
	switch kind {
	case KindForbidden:
		handler = c.onForbidden
	case KindServer:
		handler = c.onServerError
	}
	c.mu.RUnlock()
	if handler != nil {
		handler()
	}
}

func decodeDetail(payload []byte) any {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil
	}
	var detail any
	if err := jsonbig.Unmarshal(trimmed, &detail); err != nil {
		return string(trimmed)
	}
	return detail
}
