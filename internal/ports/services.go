package ports

import (
	"context"

	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
)

// UserService defines the service port for user operations.
// Implemented by the application layer; called by inbound adapters (handlers).
// Update and Delete keep every referenced task consistent within one
// transaction.
type UserService interface {
	// ListUsers returns users matching the filter, oldest first.
	ListUsers(ctx context.Context, filter user.Filter) ([]user.User, error)

	// GetUser returns a single user by ID.
	// Returns domain.ErrInvalidID or domain.ErrNotFound.
	GetUser(ctx context.Context, id string) (*user.User, error)

	// CreateUser creates a user with an empty pending list.
	// Returns domain.ErrValidation or domain.ErrConflict (duplicate email).
	CreateUser(ctx context.Context, u *user.User) (*user.User, error)

	// UpdateUser applies the patch. When the pending list is replaced, every
	// listed task is assigned to the user and every dropped task is unassigned.
	// Returns domain.ErrNotFound for the user or any listed task.
	UpdateUser(ctx context.Context, id string, patch user.Patch) (*user.User, error)

	// DeleteUser deletes the user and unassigns its pending tasks.
	DeleteUser(ctx context.Context, id string) (*user.User, error)
}

// TaskService defines the service port for task operations.
// Implemented by the application layer; called by inbound adapters (handlers).
type TaskService interface {
	// ListTasks returns tasks matching the filter, oldest first.
	ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error)

	// GetTask returns a single task by ID.
	// Returns domain.ErrInvalidID or domain.ErrNotFound.
	GetTask(ctx context.Context, id string) (*task.Task, error)

	// CreateTask creates an unassigned task.
	// Returns domain.ErrValidation if the task fails validation.
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)

	// UpdateTask applies the patch. A set AssignedUser moves the task between
	// users' pending lists; an empty one unassigns it.
	// Returns domain.ErrNotFound for the task or the target user.
	UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error)

	// DeleteTask deletes the task and removes it from its user's pending list.
	DeleteTask(ctx context.Context, id string) (*task.Task, error)
}
