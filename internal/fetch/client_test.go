package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestClient(opts ...Option) *Client {
	base := []Option{WithBaseDelay(time.Millisecond), WithHTTPClient(http.DefaultClient)}
	return New(append(base, opts...)...)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "addonctl/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(payload{Name: "sodium", Count: 3})
	}))
	defer server.Close()

	c := newTestClient(WithUserAgent("addonctl/test"), WithHeader("x-api-key", "secret"))

	var got payload
	require.NoError(t, c.GetJSON(context.Background(), server.URL+"/project", &got))
	assert.Equal(t, payload{Name: "sodium", Count: 3}, got)
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.Count++
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer server.Close()

	var got payload
	err := newTestClient().PostJSON(context.Background(), server.URL, payload{Name: "x", Count: 1}, &got)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient().GetJSON(context.Background(), server.URL, &payload{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRateLimitIsRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(payload{Name: "ok"})
	}))
	defer server.Close()

	var got payload
	require.NoError(t, newTestClient().GetJSON(context.Background(), server.URL, &got))
	assert.Equal(t, "ok", got.Name)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestServerErrorGivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := newTestClient(WithMaxRetries(2)).GetJSON(context.Background(), server.URL, &payload{})
	assert.ErrorIs(t, err, ErrUpstreamDown)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestUnexpectedStatusReturnsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("missing api key"))
	}))
	defer server.Close()

	err := newTestClient().GetJSON(context.Background(), server.URL, &payload{})
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "missing api key", httpErr.Body)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(WithMaxRetries(0))
	for range 5 {
		err := c.GetJSON(context.Background(), server.URL, &payload{})
		require.ErrorIs(t, err, ErrUpstreamDown)
	}
	before := attempts.Load()

	err := c.GetJSON(context.Background(), server.URL, &payload{})
	assert.ErrorIs(t, err, ErrUpstreamDown)
	assert.Equal(t, before, attempts.Load(), "open breaker must not reach the server")

	states := c.BreakerStates()
	assert.Equal(t, "open", states[hostOf(server.URL)])
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient()
	for range 8 {
		_ = c.GetJSON(context.Background(), server.URL, &payload{})
	}
	assert.Equal(t, "closed", c.BreakerStates()[hostOf(server.URL)])
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jar-bytes"))
	}))
	defer server.Close()

	body, size, err := newTestClient().Download(context.Background(), server.URL+"/mod.jar")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "jar-bytes", string(data))
	assert.Equal(t, int64(len("jar-bytes")), size)
}

func TestContextCancelStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(WithBaseDelay(time.Hour), WithHTTPClient(http.DefaultClient)).GetJSON(ctx, server.URL, &payload{})
	assert.Error(t, err)
}

func TestWithTimeoutCopiesClient(t *testing.T) {
	shared := &http.Client{}
	c := New(WithHTTPClient(shared), WithTimeout(2*time.Second))

	assert.Equal(t, 2*time.Second, c.http.Timeout)
	assert.Zero(t, shared.Timeout)
}
