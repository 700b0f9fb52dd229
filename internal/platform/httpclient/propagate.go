package httpclient

import (
	"context"
	"net/http"
)

type (
	requestIDKey     struct{}
	correlationIDKey struct{}
)

// WithRequestID returns ctx carrying the request ID to forward as
// X-Request-ID on outbound calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithCorrelationID returns ctx carrying the correlation ID to forward as
// X-Correlation-ID on outbound calls.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// propagateIDs copies request and correlation IDs from ctx onto req.
func propagateIDs(ctx context.Context, req *http.Request) {
	for key, header := range map[any]string{
		requestIDKey{}:     "X-Request-ID",
		correlationIDKey{}: "X-Correlation-ID",
	} {
		if id, ok := ctx.Value(key).(string); ok && id != "" {
			req.Header.Set(header, id)
		}
	}
}
