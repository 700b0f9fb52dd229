package app

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/jsamuelsen11/taskboard/internal/app/txn"
	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// Compile-time check that UserService implements ports.UserService.
var _ ports.UserService = (*UserService)(nil)

// UserService implements ports.UserService.
type UserService struct {
	core
}

// NewUserService creates a UserService. A nil logger discards output.
func NewUserService(store ports.Store, coord *txn.Coordinator, logger *slog.Logger, opts ...Option) *UserService {
	return &UserService{core: newCore(store, coord, logger, opts)}
}

// ListUsers returns users matching the filter, oldest first.
func (s *UserService) ListUsers(ctx context.Context, filter user.Filter) ([]user.User, error) {
	users, err := s.store.ListUsers(ctx, nil, filter)
	if err != nil {
		s.logFailure(ctx, "failed to list users", "UserService.ListUsers", err)
		return nil, err
	}
	return users, nil
}

// GetUser returns a single user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*user.User, error) {
	u, err := s.store.GetUser(ctx, nil, id)
	if err != nil {
		s.logFailure(ctx, "failed to fetch user", "UserService.GetUser", err, logging.UserID(id))
		return nil, err
	}
	return u, nil
}

// CreateUser creates a user. New users never start with pending tasks.
func (s *UserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	s.logger.InfoContext(ctx, "creating user", slog.String("email", u.Email))

	in := u.Clone()
	in.PendingTasks = []string{}

	created, err := s.store.CreateUser(ctx, nil, &in)
	if err != nil {
		s.logFailure(ctx, "failed to create user", "UserService.CreateUser", err)
		return nil, err
	}
	return created, nil
}

// UpdateUser applies the patch in one transaction. Every task in the
// resulting pending list is pointed at the user and stamped with its current
// name. A listed task owned by another user is removed from that user's list.
// Tasks dropped from the list are unassigned.
func (s *UserService) UpdateUser(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
	s.logger.InfoContext(ctx, "updating user", logging.UserID(id))

	updated, err := txn.WithTransaction(ctx, s.coord, "UserService.UpdateUser",
		func(ctx context.Context, tx *txn.Tx) (*user.User, error) {
			return s.update(ctx, tx, id, patch)
		})
	if err != nil {
		s.logFailure(ctx, "failed to update user", "UserService.UpdateUser", err, logging.UserID(id))
		return nil, err
	}
	return updated, nil
}

func (s *UserService) update(ctx context.Context, tx *txn.Tx, id string, patch user.Patch) (*user.User, error) {
	sc := tx.Scope()

	current, err := s.store.GetUser(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if patch.PendingTasks != nil {
		ids, err := user.NormalizeIDs(*patch.PendingTasks)
		if err != nil {
			return nil, err
		}
		patch.PendingTasks = &ids
	}

	updated, err := s.store.UpdateUser(ctx, sc, current.ID, patch)
	if err != nil {
		return nil, err
	}

	for _, taskID := range updated.PendingTasks {
		t, err := s.store.GetTask(ctx, sc, taskID)
		if err != nil {
			return nil, err
		}

		previous := t.AssignedUser
		if previous != "" && previous != updated.ID {
			if err := s.detach(ctx, sc, previous, taskID); err != nil {
				return nil, err
			}
		}
		if _, err := s.store.UpdateTask(ctx, sc, taskID, task.AssignTo(updated.ID, updated.Name)); err != nil {
			return nil, err
		}
		if previous != updated.ID {
			s.emit(tx, domain.EventTaskAssigned, taskID, updated.ID, previous)
		}
	}

	for _, taskID := range user.DroppedTasks(current.PendingTasks, updated.PendingTasks) {
		if err := s.release(ctx, tx, updated.ID, taskID); err != nil {
			return nil, err
		}
	}

	return updated, nil
}

// DeleteUser deletes the user and unassigns every task it owned. Tasks that
// no longer exist are skipped.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*user.User, error) {
	s.logger.InfoContext(ctx, "deleting user", logging.UserID(id))

	deleted, err := txn.WithTransaction(ctx, s.coord, "UserService.DeleteUser",
		func(ctx context.Context, tx *txn.Tx) (*user.User, error) {
			deleted, err := s.store.DeleteUser(ctx, tx.Scope(), id)
			if err != nil {
				return nil, err
			}

			owned, err := s.store.ListTasks(ctx, tx.Scope(), task.Filter{AssignedUser: deleted.ID})
			if err != nil {
				return nil, err
			}
			taskIDs := slices.Clone(deleted.PendingTasks)
			for _, t := range owned {
				if !slices.Contains(taskIDs, t.ID) {
					taskIDs = append(taskIDs, t.ID)
				}
			}

			for _, taskID := range taskIDs {
				if err := s.release(ctx, tx, deleted.ID, taskID); err != nil {
					return nil, err
				}
			}
			return deleted, nil
		})
	if err != nil {
		s.logFailure(ctx, "failed to delete user", "UserService.DeleteUser", err, logging.UserID(id))
		return nil, err
	}
	return deleted, nil
}

// release unassigns taskID if it is still assigned to userID. A task that no
// longer exists is skipped.
func (s *UserService) release(ctx context.Context, tx *txn.Tx, userID, taskID string) error {
	t, err := s.store.GetTask(ctx, tx.Scope(), taskID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if t.AssignedUser != userID {
		return nil
	}

	if _, err := s.store.UpdateTask(ctx, tx.Scope(), taskID, task.Unassign()); err != nil {
		return err
	}
	s.emit(tx, domain.EventTaskUnassigned, taskID, "", userID)
	return nil
}
