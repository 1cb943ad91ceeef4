// Package backend is the HTTP client for the marketplace REST API: catalog
// (produtos, lojistas), customers (clientes), orders (pedidos) and payments
// (pagamentos). It owns the wire types and their decoding; callers see Go
// types and classified errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the backend answers 404 for a resource.
// Match with errors.Is; the concrete error is always a *StatusError.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-2xx backend response. Detail carries the backend's
// error payload when one was present.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: HTTP %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("backend: HTTP %d", e.Code)
}

// Is reports 404 responses as ErrNotFound so callers can classify without
// inspecting status codes.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Client talks to the marketplace backend. Safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the given base URL. The default transport is
// instrumented with otelhttp and applies a request timeout; per-call
// deadlines come from the caller's context.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// get performs a GET request and decodes the body with decode.
func (c *Client) get(ctx context.Context, path string, query url.Values, decode func(*jx.Decoder) error) error {
	return c.do(ctx, http.MethodGet, path, query, nil, decode)
}

// post performs a POST request with a JSON body and decodes the response
// with decode. A nil decode discards the response body.
func (c *Client) post(ctx context.Context, path string, body any, decode func(*jx.Decoder) error) error {
	return c.do(ctx, http.MethodPost, path, nil, body, decode)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, decode func(*jx.Decoder) error) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrapf(err, "read response: %s %s", method, path)
	}

	zctx.From(ctx).Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:   resp.StatusCode,
			Detail: errorDetail(data),
		}
	}

	if decode == nil {
		return nil
	}
	d := jx.DecodeBytes(data)
	if err := decode(d); err != nil {
		return errors.Wrapf(err, "decode response: %s %s", method, path)
	}
	return nil
}

// errorDetail extracts the "detail" field FastAPI-style backends put in
// error bodies. Falls back to the raw body, trimmed.
func errorDetail(data []byte) string {
	d := jx.DecodeBytes(data)
	var detail string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "detail" && d.Next() == jx.String {
			s, err := d.Str()
			if err != nil {
				return err
			}
			detail = s
			return nil
		}
		return d.Skip()
	})
	if err == nil && detail != "" {
		return detail
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
