package ports

import (
	"context"

	"github.com/jsamuelsen11/taskboard/internal/domain"
)

// EventPublisher delivers committed assignment events to an outside
// subscriber. Implementations are called only after the producing
// transaction has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
