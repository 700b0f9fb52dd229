// Package app provides application services that orchestrate use cases by
// coordinating between domain logic and infrastructure through port interfaces.
//
// UserService and TaskService keep the User.PendingTasks / Task.AssignedUser
// back-references consistent: every mutation that touches one side repairs
// the other side inside the same store transaction.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen11/taskboard/internal/app/txn"
	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// Option configures a service.
type Option func(*core)

// WithPublisher sends assignment events to p after each committed change.
func WithPublisher(p ports.EventPublisher) Option {
	return func(c *core) {
		c.publisher = p
	}
}

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *core) {
		c.now = now
	}
}

// core holds what both services share.
type core struct {
	store     ports.Store
	coord     *txn.Coordinator
	publisher ports.EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

func newCore(store ports.Store, coord *txn.Coordinator, logger *slog.Logger, opts []Option) core {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := core{
		store:  store,
		coord:  coord,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// detach removes taskID from the pending list of userID. A user that no
// longer exists is skipped.
func (c *core) detach(ctx context.Context, sc ports.Scope, userID, taskID string) error {
	owner, err := c.store.GetUser(ctx, sc, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !owner.HasPendingTask(taskID) {
		return nil
	}

	pending := owner.WithoutPendingTask(taskID)
	if _, err := c.store.UpdateUser(ctx, sc, owner.ID, user.Patch{PendingTasks: &pending}); err != nil {
		return fmt.Errorf("removing task %s from user %s: %w", taskID, owner.ID, err)
	}
	return nil
}

// emit queues an assignment event for publication after commit.
func (c *core) emit(tx *txn.Tx, typ domain.EventType, taskID, userID, previousUserID string) {
	if c.publisher == nil {
		return
	}
	tx.OnCommit(&publishEffect{
		publisher: c.publisher,
		event: domain.Event{
			ID:             domain.NewID(),
			Type:           typ,
			TaskID:         taskID,
			UserID:         userID,
			PreviousUserID: previousUserID,
			OccurredAt:     c.now(),
		},
	})
}

// logFailure logs a failed operation. Classified client errors are logged
// at warn, everything else at error.
func (c *core) logFailure(ctx context.Context, msg, op string, err error, attrs ...any) {
	level := slog.LevelWarn
	switch domain.Classify(err) {
	case domain.ClassInternal, domain.ClassUnavailable:
		level = slog.LevelError
	}
	args := append([]any{logging.Operation(op)}, attrs...)
	args = append(args, slog.Any("error", err))
	c.logger.Log(ctx, level, msg, args...)
}

// publishEffect delivers one event through the publisher port.
type publishEffect struct {
	publisher ports.EventPublisher
	event     domain.Event
}

func (e *publishEffect) Apply(ctx context.Context) error {
	return e.publisher.Publish(ctx, e.event)
}

func (e *publishEffect) Description() string {
	return fmt.Sprintf("publish %s for task %s", e.event.Type, e.event.TaskID)
}
