// Package apiclient talks to the product catalogue REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omelentjeff/product-management-app/internal/errs"
)

// DefaultTimeout bounds a single request when no other timeout is configured.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the current bearer token ("" when anonymous).
type TokenSource func() string

// Client is a REST client for the catalogue API. It is safe for concurrent use.
type Client struct {
	base    string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped
// for logging; the passed value is not modified.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithLogger sets the logger used for request logging.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New constructs a client for baseURL (e.g. http://localhost:8080/api/v1).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.tokens == nil {
		c.tokens = func() string { return "" }
	}
	var hc http.Client
	if c.http != nil {
		hc = *c.http
	}
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	hc.Transport = newLoggingTransport(hc.Transport, c.log)
	c.http = &hc
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base }

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	auth        bool
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do sends r and decodes a 2xx body into out (when out is non-nil and the
// response has content). It returns the HTTP status on success.
func (c *Client) do(ctx context.Context, r request, out any) (int, error) {
	u := c.base + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth {
		if tok := c.tokens(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &errs.NetworkError{Op: r.method + " " + r.path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, &errs.NetworkError{Op: "decode " + r.path, Err: err}
	}
	return resp.StatusCode, nil
}
