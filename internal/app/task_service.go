package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen11/taskboard/internal/app/txn"
	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// DefaultTaskLimit caps task listings when the caller gives no limit.
const DefaultTaskLimit = 100

// Compile-time check that TaskService implements ports.TaskService.
var _ ports.TaskService = (*TaskService)(nil)

// TaskService implements ports.TaskService.
type TaskService struct {
	core
}

// NewTaskService creates a TaskService. A nil logger discards output.
func NewTaskService(store ports.Store, coord *txn.Coordinator, logger *slog.Logger, opts ...Option) *TaskService {
	return &TaskService{core: newCore(store, coord, logger, opts)}
}

// ListTasks returns tasks matching the filter, oldest first. A non-positive
// limit falls back to DefaultTaskLimit.
func (s *TaskService) ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultTaskLimit
	}
	if filter.AssignedUser != "" {
		id, err := domain.ParseID(domain.EntityUser, filter.AssignedUser)
		if err != nil {
			return nil, err
		}
		filter.AssignedUser = id
	}

	tasks, err := s.store.ListTasks(ctx, nil, filter)
	if err != nil {
		s.logFailure(ctx, "failed to list tasks", "TaskService.ListTasks", err)
		return nil, err
	}
	return tasks, nil
}

// GetTask returns a single task by ID.
func (s *TaskService) GetTask(ctx context.Context, id string) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, nil, id)
	if err != nil {
		s.logFailure(ctx, "failed to fetch task", "TaskService.GetTask", err, logging.TaskID(id))
		return nil, err
	}
	return t, nil
}

// CreateTask creates a task. New tasks always start unassigned.
func (s *TaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	s.logger.InfoContext(ctx, "creating task", slog.String("name", t.Name))

	in := t.Clone()
	in.AssignedUser = ""
	in.AssignedUserName = task.Unassigned

	created, err := s.store.CreateTask(ctx, nil, &in)
	if err != nil {
		s.logFailure(ctx, "failed to create task", "TaskService.CreateTask", err)
		return nil, err
	}
	return created, nil
}

// UpdateTask applies the patch in one transaction. A non-empty AssignedUser
// moves the task onto that user's pending list; an empty one unassigns it.
// In both cases the task leaves its previous user's list. A missing target
// user aborts the whole update, scalar edits included.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	s.logger.InfoContext(ctx, "updating task", logging.TaskID(id))

	updated, err := txn.WithTransaction(ctx, s.coord, "TaskService.UpdateTask",
		func(ctx context.Context, tx *txn.Tx) (*task.Task, error) {
			return s.update(ctx, tx, id, patch)
		})
	if err != nil {
		s.logFailure(ctx, "failed to update task", "TaskService.UpdateTask", err, logging.TaskID(id))
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) update(ctx context.Context, tx *txn.Tx, id string, patch task.Patch) (*task.Task, error) {
	sc := tx.Scope()

	current, err := s.store.GetTask(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	previous := current.AssignedUser

	next := task.Patch{
		Name:          patch.Name,
		Description:   patch.Description,
		Deadline:      patch.Deadline,
		ClearDeadline: patch.ClearDeadline,
		Completed:     patch.Completed,
	}
	owner := previous

	if patch.AssignedUser != nil {
		if *patch.AssignedUser == "" {
			next = next.Merge(task.Unassign())
			owner = ""
		} else {
			target, err := s.attach(ctx, sc, *patch.AssignedUser, current.ID)
			if err != nil {
				return nil, err
			}
			next = next.Merge(task.AssignTo(target.ID, target.Name))
			owner = target.ID
		}
	}

	updated, err := s.store.UpdateTask(ctx, sc, current.ID, next)
	if err != nil {
		return nil, err
	}

	if previous != "" && previous != owner {
		if err := s.detach(ctx, sc, previous, current.ID); err != nil {
			return nil, err
		}
	}

	switch {
	case owner == previous:
	case owner != "":
		s.emit(tx, domain.EventTaskAssigned, current.ID, owner, previous)
	default:
		s.emit(tx, domain.EventTaskUnassigned, current.ID, "", previous)
	}

	return updated, nil
}

// attach loads the target user and appends taskID to its pending list when
// absent.
func (s *TaskService) attach(ctx context.Context, sc ports.Scope, userID, taskID string) (*user.User, error) {
	target, err := s.store.GetUser(ctx, sc, userID)
	if err != nil {
		return nil, err
	}
	if target.HasPendingTask(taskID) {
		return target, nil
	}

	pending := target.WithPendingTask(taskID)
	return s.store.UpdateUser(ctx, sc, target.ID, user.Patch{PendingTasks: &pending})
}

// DeleteTask deletes the task and removes it from its user's pending list
// when that user still exists.
func (s *TaskService) DeleteTask(ctx context.Context, id string) (*task.Task, error) {
	s.logger.InfoContext(ctx, "deleting task", logging.TaskID(id))

	deleted, err := txn.WithTransaction(ctx, s.coord, "TaskService.DeleteTask",
		func(ctx context.Context, tx *txn.Tx) (*task.Task, error) {
			deleted, err := s.store.DeleteTask(ctx, tx.Scope(), id)
			if err != nil {
				return nil, err
			}
			if deleted.IsAssigned() {
				if err := s.detach(ctx, tx.Scope(), deleted.AssignedUser, deleted.ID); err != nil {
					return nil, err
				}
				s.emit(tx, domain.EventTaskUnassigned, deleted.ID, "", deleted.AssignedUser)
			}
			return deleted, nil
		})
	if err != nil {
		s.logFailure(ctx, "failed to delete task", "TaskService.DeleteTask", err, logging.TaskID(id))
		return nil, err
	}
	return deleted, nil
}
