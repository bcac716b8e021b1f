// Package api sends requests to the notice-board backend through a two-stage pipeline:
// outbound requests get the session's bearer credential, and error responses are
// normalized so callers see the server's error payload instead of a transport wrapper.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"noticeboard/internal/logger"
)

// Payload is a decoded JSON object returned by the backend
type Payload map[string]any

// Response is a successful (2xx) backend response
type Response struct {
	StatusCode int
	Header     http.Header
	Data       json.RawMessage
}

// Payload decodes the response body as a JSON object. An empty body or a JSON null
// decodes to a nil Payload.
func (r *Response) Payload() (Payload, error) {
	if len(bytes.TrimSpace(r.Data)) == 0 {
		return nil, nil
	}

	var p Payload
	if err := json.Unmarshal(r.Data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return p, nil
}

// Value decodes the response body into its JSON value: a Payload for an object, the bare
// value for anything else. An empty body is nil; a body that is not JSON is returned as text.
func (r *Response) Value() any {
	if len(bytes.TrimSpace(r.Data)) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return string(r.Data)
	}
	if m, ok := v.(map[string]any); ok {
		return Payload(m)
	}
	return v
}

// ResponseInterceptor post-processes the outcome of a request
type ResponseInterceptor func(resp *Response, err error) (*Response, error)

// Client is the HTTP client every backend call goes through
type Client struct {
	baseURL      string
	http         *http.Client
	logger       *slog.Logger
	interceptors []RequestInterceptor
	responders   []ResponseInterceptor
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient uses hc as the underlying client. Its transport is wrapped so the
// bearer credential is still attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.http = &clone
	}
}

// WithLogger sets the request logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRequestInterceptor appends a request interceptor
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, i)
	}
}

// WithResponseInterceptor appends a response interceptor; it runs after error normalization
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(c *Client) {
		c.responders = append(c.responders, i)
	}
}

// New creates a Client. baseURL is fixed for the lifetime of the client; an empty
// baseURL means request paths are used verbatim. tokens supplies the bearer credential.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{},
		logger:       logger.Discard(),
		interceptors: []RequestInterceptor{RequestID()},
		responders:   []ResponseInterceptor{normalizeResponse},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.Transport = &BearerTransport{Base: c.http.Transport, Tokens: tokens}
	return c
}

// HTTPClient returns the underlying client. Requests sent with it directly still carry
// the bearer credential but bypass error normalization.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON or multipart body
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Patch issues a PATCH request with a JSON or multipart body
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete issues a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends a request and runs the response stage on the outcome. A nil body sends no
// body, a *Form is sent as multipart/form-data, and anything else is encoded as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	resp, err := c.send(ctx, method, path, body)
	for _, respond := range c.responders {
		resp, err = respond(resp, err)
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for _, intercept := range c.interceptors {
		intercept(req)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Request failed - transport error",
			"method", method,
			"url", req.URL.String(),
			"request_id", req.Header.Get("X-Request-ID"),
			"error", err,
		)
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	attrs := []any{
		"method", method,
		"url", req.URL.String(),
		"status", httpResp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", req.Header.Get("X-Request-ID"),
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.logger.Warn("Request failed - error status", attrs...)
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       data,
		}
	}

	c.logger.Debug("Request completed", attrs...)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Data:       data,
	}, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		data, contentType, err := b.Encode()
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode form: %w", err)
		}
		return bytes.NewReader(data), contentType, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// resolve joins path onto the base URL. Absolute URLs pass through.
func (c *Client) resolve(path string) string {
	if c.baseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// normalizeResponse passes successes through and unwraps structured error bodies
func normalizeResponse(resp *Response, err error) (*Response, error) {
	if err != nil {
		return nil, NormalizeError(err)
	}
	return resp, nil
}
