// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ecosort/ecosort-tui/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the backend API root.
	DefaultBaseURL = "http://127.0.0.1:8000/api"

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// RequestIDHeader carries a per-request UUID for backend log correlation.
	RequestIDHeader = "X-Request-ID"

	userAgent = "ecosort-tui"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the gateway client.
type Config struct {
	// BaseURL is prefixed to every request path (default: DefaultBaseURL).
	BaseURL string

	// RateLimit is the sustained requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// MaxResponseSize caps decoded bodies (default: MaxResponseSize).
	MaxResponseSize int64

	// HTTPClient overrides the transport. Tests pass httptest clients.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		RateLimit:       5,
		RateBurst:       10,
		MaxResponseSize: MaxResponseSize,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the shared HTTP client for the classification backend. It
// carries the current bearer token as a default Authorization header.
//
// Requests marked Authorized fail fast with ErrUnauthenticated while no
// token is set; they are never sent without credentials.
//
// The Client is safe for concurrent use.
type Client struct {
	baseURL  string
	maxBody  int64
	http     *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
	tokenMu  sync.RWMutex
	token    string
	nowFunc  func() time.Time
	idSource func() string
}

// NewClient creates a gateway client. Zero fields in cfg take defaults.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxBody := cfg.MaxResponseSize
	if maxBody <= 0 {
		maxBody = MaxResponseSize
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	burst := cfg.RateBurst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}

	return &Client{
		baseURL:  baseURL,
		maxBody:  maxBody,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		log:      logging.OrNop(cfg.Logger).Named("gateway"),
		nowFunc:  time.Now,
		idSource: uuid.NewString,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// AUTHORIZATION HEADER
// =============================================================================

// SetAuthToken installs token as the default bearer credential. An empty
// token clears it.
func (c *Client) SetAuthToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// ClearAuthToken removes the default Authorization header.
func (c *Client) ClearAuthToken() {
	c.SetAuthToken("")
}

// AuthHeader returns the default Authorization header value, or "" when
// no token is set.
func (c *Client) AuthHeader() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

// HasAuth reports whether a bearer token is installed.
func (c *Client) HasAuth() bool {
	return c.AuthHeader() != ""
}

// =============================================================================
// REQUESTS
// =============================================================================

// Request describes one JSON call.
type Request struct {
	Method string
	Path   string

	// Body is JSON encoded when non-nil.
	Body any

	// Authorized requests carry the bearer header and fail fast without one.
	Authorized bool
}

// Do sends r and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	var body io.Reader
	contentType := ""
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, r.Method, r.Path, body, contentType, r.Authorized, out)
}

// Get is shorthand for an authorized GET.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Authorized: true}, out)
}

// Post is shorthand for a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, in any, out any, authorized bool) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: in, Authorized: authorized}, out)
}

// File is one multipart upload part.
type File struct {
	// Field is the form field name (the classifier expects "file").
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Upload posts f as multipart/form-data to an authorized endpoint.
func (c *Client) Upload(ctx context.Context, path string, f File, out any) error {
	if c.AuthHeader() == "" {
		return ErrUnauthenticated
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	field := f.Field
	if field == "" {
		field = "file"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(field), escapeQuotes(f.Name)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to build upload", Cause: err}
	}
	if _, err := part.Write(f.Data); err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to build upload", Cause: err}
	}
	if err := mw.Close(); err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to build upload", Cause: err}
	}

	return c.send(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), true, out)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, authorized bool, out any) error {
	auth := c.AuthHeader()
	if authorized && auth == "" {
		c.log.Debug("refusing unauthenticated request", zap.String("method", method), zap.String("path", path))
		return ErrUnauthenticated
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return c.classifyTransport(ctx, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	requestID := c.idSource()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	c.logRequest(req, requestID)
	start := c.nowFunc()

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("request_id", requestID), zap.Error(err))
		return c.classifyTransport(ctx, err)
	}
	defer drainAndClose(resp.Body)

	c.logResponse(resp, requestID, c.nowFunc().Sub(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return c.classifyTransport(ctx, err)
	}
	if int64(len(data)) > c.maxBody {
		return &ClientError{Type: ErrTypeInvalidResponse, Status: resp.StatusCode,
			Message: fmt.Sprintf("response exceeds %d bytes", c.maxBody)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parseErrorMessage(data)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		t := ErrTypeStatus
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			t = ErrTypeUnauthorized
		}
		return &ClientError{Type: t, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Status: resp.StatusCode,
			Message: "failed to decode response", Cause: err}
	}
	return nil
}

// classifyTransport maps a failed round trip onto the error taxonomy.
// Caller cancellation is returned as-is so callers can tell teardown
// from failure with errors.Is(err, context.Canceled).
func (c *Client) classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: context.DeadlineExceeded}
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &ClientError{Type: ErrTypeTransport, Message: "request canceled", Cause: context.Canceled}
	}
	return &ClientError{Type: ErrTypeTransport, Message: "backend unreachable", Cause: err}
}

// =============================================================================
// LOGGING
// =============================================================================

// logRequest logs an API request without headers or body; both can hold
// credentials or user content.
func (c *Client) logRequest(req *http.Request, requestID string) {
	c.log.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", requestID))
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, requestID string, d time.Duration) {
	fields := []zap.Field{
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", d),
	}
	if resp.StatusCode >= 400 {
		c.log.Warn("response", fields...)
		return
	}
	c.log.Debug("response", fields...)
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
