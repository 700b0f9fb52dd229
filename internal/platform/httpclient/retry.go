package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jsamuelsen11/taskboard/internal/platform/config"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
)

// jitterFraction spreads computed delays by ±25%.
const jitterFraction = 0.25

// retryPolicy decides whether a failed delivery attempt is repeated and how
// long to wait before the next one.
type retryPolicy struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

func newRetryPolicy(cfg config.RetryConfig) retryPolicy {
	return retryPolicy{
		maxAttempts:     max(cfg.MaxAttempts, 1),
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		multiplier:      cfg.Multiplier,
	}
}

// delay returns the wait before retry n, where n is 1 for the first retry.
// A positive server hint replaces the computed backoff but is still capped at
// maxInterval.
func (p retryPolicy) delay(n int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, p.maxInterval)
	}

	d := float64(p.initialInterval) * math.Pow(p.multiplier, float64(n-1))
	d = min(d, float64(p.maxInterval))
	d += d * jitterFraction * (2*rand.Float64() - 1)
	return time.Duration(max(d, 0))
}

// retryableStatus reports whether a receiver's status code means the same
// event may succeed if sent again.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	}
	return code >= http.StatusInternalServerError
}

// retryAfter reads a Retry-After header given either in seconds or as an
// HTTP date. It returns zero when the header is absent or unusable.
func retryAfter(resp *http.Response, now time.Time) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}

// send performs req, repeating it under the client's retry policy. The body
// is buffered once and replayed on every attempt.
//
// When every attempt ends in a retryable status, the last response is
// returned with its body open together with a non-nil error. Transport
// errors are retried until the caller's context is done.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	body, err := bufferRequestBody(req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		resetRequestBody(req, body)

		resp, err := c.httpClient.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err == nil {
			err = fmt.Errorf("HTTP %d from %s", resp.StatusCode, c.serviceName)
		}
		if attempt >= c.retry.maxAttempts || ctx.Err() != nil {
			return resp, err
		}

		hint := retryAfter(resp, time.Now())
		if resp != nil {
			drainResponseBody(resp)
		}
		if werr := c.pause(ctx, req, attempt, c.retry.delay(attempt, hint), err); werr != nil {
			return nil, werr
		}
	}
}

// pause logs the upcoming retry and sleeps for d unless ctx ends first.
func (c *Client) pause(ctx context.Context, req *http.Request, attempt int, d time.Duration, cause error) error {
	logging.FromContext(ctx).WarnContext(ctx, "retrying outbound request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.Redacted()),
		slog.String("peer_service", c.serviceName),
		slog.Int("attempt", attempt+1),
		slog.Int("max_attempts", c.retry.maxAttempts),
		slog.Duration("backoff", d),
		slog.Any("error", cause),
	)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func bufferRequestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer func() { _ = req.Body.Close() }()

	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	return b, nil
}

func resetRequestBody(req *http.Request, body []byte) {
	if body == nil {
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
}

// drainResponseBody discards what is left of the body so the connection can
// be reused.
func drainResponseBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
