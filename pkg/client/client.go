// Package client talks to the collaborator endpoints the engine depends on:
// the platform schema endpoint, option sources, target registration, the
// template apply service and the read-only template catalog.
package client

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

	"github.com/goliatone/go-postgen/pkg/failure"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// StatusError reports a non-2xx response. Message holds the server supplied
// error text when the body carried one; Fields holds the per-path messages
// of an {"errors": {...}} body.
type StatusError struct {
	Code    int
	Message string
	Fields  map[string][]string
}

func (e StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("client: unexpected status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("client: unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// StatusCode returns the HTTP status.
func (e StatusError) StatusCode() int { return e.Code }

// Client is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	headers http.Header
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL resolves relative endpoints against raw.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			c.baseURL = nil
			return
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if parsed, err := url.Parse(raw); err == nil {
			c.baseURL = parsed
		}
	}
}

// WithHTTPClient overrides the transport client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout caps individual requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Client.
func New(options ...Option) *Client {
	c := &Client{
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		headers: make(http.Header),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Resolve turns an endpoint template (already expanded) into an absolute URL.
func (c *Client) Resolve(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", errors.New("client: endpoint is required")
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("client: parse endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() || c.baseURL == nil {
		return ref.String(), nil
	}
	return c.baseURL.ResolveReference(&url.URL{
		Path:     strings.TrimPrefix(ref.Path, "/"),
		RawQuery: ref.RawQuery,
	}).String(), nil
}

// do performs a request and returns the raw body of a 2xx response. Non-2xx
// responses yield a StatusError carrying the server message.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := c.Resolve(endpoint)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("collaborator request",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, StatusError{Code: resp.StatusCode, Message: serverMessage(data), Fields: fieldErrors(data)}
	}
	return data, nil
}

// envelope is the {success, error, message} frame most collaborator
// responses share.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) text() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Message)
}

func serverMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err == nil {
		return env.text()
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return string(trimmed)
}

// fieldErrors reads {"errors": {"path": "msg" | ["msg", ...]}}.
func fieldErrors(body []byte) map[string][]string {
	var payload struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Errors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(payload.Errors))
	for path, raw := range payload.Errors {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			out[path] = list
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			out[path] = []string{single}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// networkError classifies a transport or status failure. The server message,
// when known, becomes the user-facing message.
func networkError(op string, err error) error {
	if err == nil {
		return nil
	}
	var status StatusError
	if errors.As(err, &status) {
		return &failure.Error{Kind: failure.KindNetwork, Op: op, Message: status.Message, Err: err}
	}
	return failure.Network(op, err)
}
