package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/taskboard/internal/adapters/http/middleware"
)

// idsHandler runs RequestID then CorrelationID and reports what the inner
// handler saw.
func idsHandler(gotReq, gotCorr *string) http.Handler {
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*gotReq = middleware.RequestIDFromContext(r.Context())
		*gotCorr = middleware.CorrelationIDFromContext(r.Context())
	})
	return middleware.RequestID()(middleware.CorrelationID()(inner))
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	t.Parallel()

	var reqID, corrID string
	rec := httptest.NewRecorder()
	idsHandler(&reqID, &corrID).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	parsed, err := uuid.Parse(reqID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.Equal(t, reqID, rec.Header().Get("X-Request-ID"))

	// Correlation falls back to the request ID.
	assert.Equal(t, reqID, corrID)
	assert.Equal(t, reqID, rec.Header().Get("X-Correlation-ID"))
}

func TestRequestID_ReusesIncomingHeaders(t *testing.T) {
	t.Parallel()

	var reqID, corrID string
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Correlation-ID", "corr-9")

	rec := httptest.NewRecorder()
	idsHandler(&reqID, &corrID).ServeHTTP(rec, req)

	assert.Equal(t, "req-1", reqID)
	assert.Equal(t, "corr-9", corrID)
	assert.Equal(t, "corr-9", rec.Header().Get("X-Correlation-ID"))
}

func TestRequestID_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen[middleware.RequestIDFromContext(r.Context())] = struct{}{}
	}))
	for range 50 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	}
	assert.Len(t, seen, 50)
}

func TestIDsFromEmptyContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, middleware.RequestIDFromContext(context.Background()))
	assert.Empty(t, middleware.CorrelationIDFromContext(context.Background()))

	ctx := middleware.WithCorrelationID(middleware.WithRequestID(context.Background(), "a"), "b")
	assert.Equal(t, "a", middleware.RequestIDFromContext(ctx))
	assert.Equal(t, "b", middleware.CorrelationIDFromContext(ctx))
}

func TestRequestID_ReplacesUnusableIncomingValues(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{
		"has space",
		"line\nbreak",
		"ünicode",
		strings.Repeat("x", 129),
	} {
		var reqID, corrID string
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(middleware.HeaderRequestID, bad)
		req.Header.Set(middleware.HeaderCorrelationID, bad)

		idsHandler(&reqID, &corrID).ServeHTTP(httptest.NewRecorder(), req)

		_, err := uuid.Parse(reqID)
		require.NoError(t, err, "request id for %q", bad)
		assert.Equal(t, reqID, corrID, "correlation falls back for %q", bad)
	}
}
