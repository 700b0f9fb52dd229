package ports

import (
	"context"

	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
)

// Scope is a handle to one open store transaction. Writes made through a
// Scope are visible only to calls that pass the same Scope until Commit.
//
// A Scope is owned by a single goroutine. Abort after Commit is a no-op.
type Scope interface {
	// Commit makes every staged write visible atomically.
	Commit() error

	// Abort discards every staged write and releases the scope.
	Abort()
}

// TxBeginner opens transaction scopes. Only one write scope may be open per
// logical operation; nesting is not supported.
type TxBeginner interface {
	Begin(ctx context.Context) (Scope, error)
}

// UserStore provides CRUD primitives for users. Every method accepts an
// optional Scope; a nil Scope runs the call as its own committed unit.
//
// Methods taking an id return a *domain.InvalidIDError for malformed ids and
// a *domain.NotFoundError for well-formed ids with no record.
type UserStore interface {
	GetUser(ctx context.Context, sc Scope, id string) (*user.User, error)
	ListUsers(ctx context.Context, sc Scope, filter user.Filter) ([]user.User, error)

	// CreateUser assigns ID and CreatedAt. Returns a *domain.ValidationError
	// for invalid data or a *domain.ConflictError for a duplicate email.
	CreateUser(ctx context.Context, sc Scope, u *user.User) (*user.User, error)

	// UpdateUser applies the patch and returns the stored result. Returns a
	// *domain.ConflictError when the new email belongs to another user.
	UpdateUser(ctx context.Context, sc Scope, id string, patch user.Patch) (*user.User, error)

	// DeleteUser removes the record and returns it as it was.
	DeleteUser(ctx context.Context, sc Scope, id string) (*user.User, error)
}

// TaskStore provides CRUD primitives for tasks with the same scope and error
// contract as UserStore.
type TaskStore interface {
	GetTask(ctx context.Context, sc Scope, id string) (*task.Task, error)
	ListTasks(ctx context.Context, sc Scope, filter task.Filter) ([]task.Task, error)
	CreateTask(ctx context.Context, sc Scope, t *task.Task) (*task.Task, error)
	UpdateTask(ctx context.Context, sc Scope, id string, patch task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, sc Scope, id string) (*task.Task, error)
}

// Store is the full persistence port consumed by the application layer.
type Store interface {
	TxBeginner
	UserStore
	TaskStore
}
