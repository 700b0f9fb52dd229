// Package webhook publishes committed assignment events to an HTTP endpoint
// through the instrumented platform client.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.EventPublisher = (*Publisher)(nil)
	_ ports.HealthChecker  = (*Publisher)(nil)
)

// Poster is the subset of httpclient.Client used by the publisher.
type Poster interface {
	PostJSON(ctx context.Context, path string, body any, header http.Header) error
	Name() string
	HealthCheck(ctx context.Context) error
}

// Publisher implements ports.EventPublisher by POSTing each event as JSON.
type Publisher struct {
	client Poster
	path   string
	logger *slog.Logger
}

// New creates a Publisher that posts to path on the client's base URL. A nil
// logger discards output.
func New(client Poster, path string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, path: path, logger: logger}
}

// headerIdempotencyKey carries the event ID so that a receiver can drop
// copies resent by the client's retries.
const headerIdempotencyKey = "Idempotency-Key"

// Publish delivers one event. Errors wrap domain.ErrUnavailable when the
// endpoint rejects the event or the circuit breaker is open.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	header := http.Header{}
	if event.ID != "" {
		header.Set(headerIdempotencyKey, event.ID)
	}
	if err := p.client.PostJSON(ctx, p.path, event, header); err != nil {
		return fmt.Errorf("publishing %s for task %s: %w", event.Type, event.TaskID, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
		logging.TaskID(event.TaskID),
	)
	return nil
}

// Name identifies the webhook in readiness results.
func (p *Publisher) Name() string {
	return p.client.Name()
}

// HealthCheck reports the client's circuit breaker state.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	return p.client.HealthCheck(ctx)
}
