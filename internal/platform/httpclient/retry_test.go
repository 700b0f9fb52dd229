package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/taskboard/internal/platform/config"
)

func testPolicy() retryPolicy {
	return newRetryPolicy(config.RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	})
}

func TestNewRetryPolicy_AtLeastOneAttempt(t *testing.T) {
	t.Parallel()
	p := newRetryPolicy(config.RetryConfig{MaxAttempts: 0})
	assert.Equal(t, 1, p.maxAttempts)
}

func TestRetryPolicy_DelayGrowsWithinJitter(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	for n, base := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		6: time.Second, // capped
	} {
		lo := time.Duration(float64(base) * (1 - jitterFraction))
		hi := time.Duration(float64(base) * (1 + jitterFraction))
		for range 50 {
			d := p.delay(n, 0)
			assert.GreaterOrEqual(t, d, lo, "retry %d", n)
			assert.LessOrEqual(t, d, hi, "retry %d", n)
		}
	}
}

func TestRetryPolicy_DelayHonorsHint(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	assert.Equal(t, 300*time.Millisecond, p.delay(1, 300*time.Millisecond))
	assert.Equal(t, time.Second, p.delay(1, time.Minute), "hint is capped at the max interval")
}

func TestRetryableStatus(t *testing.T) {
	t.Parallel()

	tests := map[int]bool{
		http.StatusOK:                      false,
		http.StatusAccepted:                false,
		http.StatusBadRequest:              false,
		http.StatusNotFound:                false,
		http.StatusRequestTimeout:          true,
		http.StatusTooManyRequests:         true,
		http.StatusInternalServerError:     true,
		http.StatusNotImplemented:          false,
		http.StatusBadGateway:              true,
		http.StatusServiceUnavailable:      true,
		http.StatusHTTPVersionNotSupported: false,
	}
	for code, want := range tests {
		assert.Equal(t, want, retryableStatus(code), "status %d", code)
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	withHeader := func(v string) *http.Response {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return &http.Response{Header: h}
	}

	assert.Zero(t, retryAfter(nil, now))
	assert.Zero(t, retryAfter(withHeader(""), now))
	assert.Zero(t, retryAfter(withHeader("soon"), now))
	assert.Zero(t, retryAfter(withHeader("-3"), now))
	assert.Equal(t, 7*time.Second, retryAfter(withHeader("7"), now))
	assert.Equal(t, 30*time.Second,
		retryAfter(withHeader(now.Add(30*time.Second).Format(http.TimeFormat)), now))
	assert.Zero(t, retryAfter(withHeader(now.Add(-time.Hour).Format(http.TimeFormat)), now))
}

func TestSend_UsesRetryAfterHint(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c := &Client{
		httpClient:  srv.Client(),
		serviceName: "webhook",
		retry: retryPolicy{
			maxAttempts:     2,
			initialInterval: time.Millisecond,
			maxInterval:     10 * time.Millisecond,
			multiplier:      2,
		},
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL, strings.NewReader(`{"type":"task.assigned"}`))
	require.NoError(t, err)

	resp, err := c.send(context.Background(), req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSend_StopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := &Client{
		httpClient:  srv.Client(),
		serviceName: "webhook",
		retry: retryPolicy{
			maxAttempts:     5,
			initialInterval: time.Hour,
			maxInterval:     time.Hour,
			multiplier:      1,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := c.send(ctx, req)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestBufferRequestBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("payload"))
	b, err := bufferRequestBody(req)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	resetRequestBody(req, b)
	again, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(again))
	assert.Equal(t, int64(len("payload")), req.ContentLength)

	empty := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	b, err = bufferRequestBody(empty)
	require.NoError(t, err)
	assert.Nil(t, b)

	broken := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(failingReader{}))
	_, err = bufferRequestBody(broken)
	require.ErrorContains(t, err, "reading request body")
}
