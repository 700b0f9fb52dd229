package domain

import (
	"context"
	"time"
)

// Effect is a side effect that must only become visible once the transaction
// that produced it has committed. Effects never participate in rollback: a
// failed Apply is logged, the committed data stays.
//
// Effect is defined in the domain layer so that domain services can produce
// effects without depending on the application layer.
type Effect interface {
	// Apply performs the effect. The context carries cancellation and
	// deadline signals that the implementation should respect.
	Apply(ctx context.Context) error

	// Description returns a human-readable description of the effect for
	// logging purposes (e.g., "publish task.assigned for task 123").
	Description() string
}

// EventType names an assignment change.
type EventType string

const (
	EventTaskAssigned   EventType = "task.assigned"
	EventTaskUnassigned EventType = "task.unassigned"
)

// Event describes one committed change to the User/Task relationship. ID is
// unique per event; receivers use it to drop redelivered copies.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	TaskID         string    `json:"task_id"`
	UserID         string    `json:"user_id,omitempty"`
	PreviousUserID string    `json:"previous_user_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
