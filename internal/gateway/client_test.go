// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(&Config{BaseURL: srv.URL + "/api", HTTPClient: srv.Client()})
	return c, srv
}

func TestAuthHeader(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, "", c.AuthHeader())
	assert.False(t, c.HasAuth())

	c.SetAuthToken("t1")
	assert.Equal(t, "Bearer t1", c.AuthHeader())

	c.ClearAuthToken()
	assert.Equal(t, "", c.AuthHeader())
}

func TestDo_AuthorizedFailsFastWithoutToken(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	err := c.Get(context.Background(), "/auth/me", nil)
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "request must not be sent")

	err = c.Upload(context.Background(), "/waste/classify", File{Name: "a.jpg", Data: []byte("x")}, nil)
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestDo_SendsHeadersAndDecodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/nlp/predict", r.URL.Path)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		assert.NoError(t, err, "request id should be a UUID")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "glass jar", body["text"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response":"Rinse and recycle."}`)
	})
	c.SetAuthToken("t1")

	var out struct {
		Response string `json:"response"`
	}
	err := c.Post(context.Background(), "/nlp/predict", map[string]string{"text": "glass jar"}, &out, true)
	require.NoError(t, err)
	assert.Equal(t, "Rinse and recycle.", out.Response)
}

func TestDo_UnauthenticatedRequestOmitsHeader(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, `{}`)
	})
	require.NoError(t, c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c"}, nil, false))
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(error) bool
		message string
	}{
		{"401 detail string", 401, `{"detail":"Invalid authentication credentials"}`, IsUnauthorized, "Invalid authentication credentials"},
		{"403", 403, `{"detail":"Not authenticated"}`, IsUnauthorized, "Not authenticated"},
		{"422 validation list", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"}]}`,
			func(err error) bool { return StatusCode(err) == 422 }, "field required"},
		{"400 message", 400, `{"message":"Email already registered"}`,
			func(err error) bool { return StatusCode(err) == 400 }, "Email already registered"},
		{"500 no body", 500, ``,
			func(err error) bool { return StatusCode(err) == 500 }, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			c.SetAuthToken("t1")

			err := c.Get(context.Background(), "/auth/me", nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected classification: %v", err)
			assert.Equal(t, tt.message, Message(err))
		})
	}
}

func TestDo_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>oops</html>`)
	})
	c.SetAuthToken("t1")

	var out map[string]any
	err := c.Get(context.Background(), "/auth/me", &out)
	assert.True(t, IsInvalidResponse(err))
}

func TestDo_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":"`+strings.Repeat("a", 200)+`"}`)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, HTTPClient: srv.Client(), MaxResponseSize: 64})
	c.SetAuthToken("t1")

	var out map[string]any
	err := c.Get(context.Background(), "/x", &out)
	assert.True(t, IsInvalidResponse(err), "got %v", err)
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.SetAuthToken("t1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/slow", nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %v", err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(&Config{BaseURL: url})
	err := c.Post(context.Background(), "/auth/login", map[string]string{}, nil, false)
	assert.True(t, IsTransport(err), "got %v", err)
}

func TestDo_CanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	c.SetAuthToken("t1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Get(ctx, "/auth/me", nil)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestUpload_Multipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t9", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "bottle.jpg", hdr.Filename)
		assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "JPEGDATA", string(data))
		io.WriteString(w, `{"success":true}`)
	})
	c.SetAuthToken("t9")

	var out struct {
		Success bool `json:"success"`
	}
	err := c.Upload(context.Background(), "/waste/classify",
		File{Field: "file", Name: "bottle.jpg", ContentType: "image/jpeg", Data: []byte("JPEGDATA")}, &out)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestRateLimiterDisabledByZero(t *testing.T) {
	c := NewClient(&Config{RateLimit: 0})
	assert.Equal(t, rate.Inf, c.limiter.Limit(), "zero rate means unlimited")

	limited := NewClient(&Config{RateLimit: 2})
	assert.Equal(t, rate.Limit(2), limited.limiter.Limit())
	assert.Equal(t, 1, limited.limiter.Burst(), "burst defaults to 1")
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "timeout", ErrTypeTimeout.String())
	assert.Equal(t, "unauthenticated", ErrUnauthenticated.Type.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}
