package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/taskboard/internal/adapters/store/memstore"
	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
)

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	s, err := memstore.New(memstore.WithClock(tickingClock()))
	require.NoError(t, err)
	return s
}

func mustCreateUser(t *testing.T, s *memstore.Store, name, email string) *user.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), nil, &user.User{Name: name, Email: email})
	require.NoError(t, err)
	return u
}

func mustCreateTask(t *testing.T, s *memstore.Store, name string) *task.Task {
	t.Helper()
	tk, err := s.CreateTask(context.Background(), nil, &task.Task{Name: name, AssignedUserName: task.Unassigned})
	require.NoError(t, err)
	return tk
}

func TestStore_CreateAndGetUser(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	created := mustCreateUser(t, s, "Ann", "ann@example.com")
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, []string{}, created.PendingTasks)

	got, err := s.GetUser(ctx, nil, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("GetUser mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	created := mustCreateUser(t, s, "Ann", "ann@example.com")
	created.Name = "mutated"
	created.PendingTasks = append(created.PendingTasks, "x")

	got, err := s.GetUser(ctx, nil, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Empty(t, got.PendingTasks)
}

func TestStore_MalformedIDIsNotNotFound(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"get user", func() error { _, err := s.GetUser(ctx, nil, "abc"); return err }},
		{"update user", func() error { _, err := s.UpdateUser(ctx, nil, "abc", user.Patch{}); return err }},
		{"delete user", func() error { _, err := s.DeleteUser(ctx, nil, "abc"); return err }},
		{"get task", func() error { _, err := s.GetTask(ctx, nil, "abc"); return err }},
		{"update task", func() error { _, err := s.UpdateTask(ctx, nil, "abc", task.Patch{}); return err }},
		{"delete task", func() error { _, err := s.DeleteTask(ctx, nil, "abc"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.ErrorIs(t, err, domain.ErrInvalidID)
			assert.NotErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	id := domain.NewID()

	_, err := s.GetUser(context.Background(), nil, id)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityUser, nf.Entity)
	assert.Equal(t, id, nf.ID)

	_, err = s.DeleteTask(context.Background(), nil, id)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityTask, nf.Entity)
}

func TestStore_CreateUser_Validation(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	_, err := s.CreateUser(context.Background(), nil, &user.User{Name: "", Email: "bad"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
}

func TestStore_EmailIsUnique(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "Ann", "ann@example.com")
	bob := mustCreateUser(t, s, "Bob", "bob@example.com")

	_, err := s.CreateUser(ctx, nil, &user.User{Name: "Ann 2", Email: "ann@example.com"})
	require.ErrorIs(t, err, domain.ErrConflict)

	email := "ann@example.com"
	_, err = s.UpdateUser(ctx, nil, bob.ID, user.Patch{Email: &email})
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "email", cerr.Field)

	// Re-saving a user's own email is not a conflict.
	own := "bob@example.com"
	_, err = s.UpdateUser(ctx, nil, bob.ID, user.Patch{Email: &own})
	require.NoError(t, err)
}

func TestStore_ScopeIsolationAndCommit(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "Ann", "ann@example.com")

	sc, err := s.Begin(ctx)
	require.NoError(t, err)

	name := "Annie"
	_, err = s.UpdateUser(ctx, sc, u.ID, user.Patch{Name: &name})
	require.NoError(t, err)

	inside, err := s.GetUser(ctx, sc, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", inside.Name)

	outside, err := s.GetUser(ctx, nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", outside.Name, "staged write must not leak before commit")

	require.NoError(t, sc.Commit())

	after, err := s.GetUser(ctx, nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", after.Name)
}

func TestStore_AbortDiscardsEveryWrite(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "Ann", "ann@example.com")
	tk := mustCreateTask(t, s, "write docs")

	sc, err := s.Begin(ctx)
	require.NoError(t, err)

	pending := []string{tk.ID}
	_, err = s.UpdateUser(ctx, sc, u.ID, user.Patch{PendingTasks: &pending})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, sc, tk.ID, task.AssignTo(u.ID, u.Name))
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, sc, &task.Task{Name: "staged", AssignedUserName: task.Unassigned})
	require.NoError(t, err)

	sc.Abort()
	sc.Abort()

	gotUser, err := s.GetUser(ctx, nil, u.ID)
	require.NoError(t, err)
	assert.Empty(t, gotUser.PendingTasks)

	gotTask, err := s.GetTask(ctx, nil, tk.ID)
	require.NoError(t, err)
	assert.False(t, gotTask.IsAssigned())

	all, err := s.ListTasks(ctx, nil, task.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ClosedScope(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	sc, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sc.Commit())

	require.ErrorIs(t, sc.Commit(), memstore.ErrScopeClosed)
	sc.Abort()

	_, err = s.GetUser(ctx, sc, domain.NewID())
	require.ErrorIs(t, err, memstore.ErrScopeClosed)
}

func TestStore_ForeignScope(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	_, err := s.GetTask(context.Background(), foreignScope{}, domain.NewID())
	require.ErrorIs(t, err, memstore.ErrForeignScope)
}

type foreignScope struct{}

func (foreignScope) Commit() error { return errors.New("not used") }
func (foreignScope) Abort()        {}

func TestStore_BeginHonorsCanceledContext(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Begin(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStore_BeginReleasesScopeWhenDeadlinePassesWhileWaiting(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	holder, err := s.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	result := make(chan error, 1)
	go func() {
		_, err := s.Begin(ctx)
		result <- err
	}()

	<-ctx.Done()
	holder.Abort()
	require.ErrorIs(t, <-result, context.DeadlineExceeded)

	// The late waiter gave its scope back, so the writer lock is free.
	next, err := s.Begin(context.Background())
	require.NoError(t, err)
	next.Abort()
}

func TestStore_ListTasks(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "Ann", "ann@example.com")
	mustCreateTask(t, s, "one")
	t2 := mustCreateTask(t, s, "two")
	t3 := mustCreateTask(t, s, "three")

	done := true
	_, err := s.UpdateTask(ctx, nil, t2.ID, task.Patch{Completed: &done})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, nil, t3.ID, task.AssignTo(u.ID, u.Name))
	require.NoError(t, err)

	names := func(ts []task.Task) []string {
		out := make([]string, 0, len(ts))
		for _, tk := range ts {
			out = append(out, tk.Name)
		}
		return out
	}

	notDone := false
	tests := []struct {
		name   string
		filter task.Filter
		want   []string
	}{
		{"all oldest first", task.Filter{}, []string{"one", "two", "three"}},
		{"skip", task.Filter{Skip: 1}, []string{"two", "three"}},
		{"limit", task.Filter{Limit: 2}, []string{"one", "two"}},
		{"skip past end", task.Filter{Skip: 10}, []string{}},
		{"completed", task.Filter{Completed: &done}, []string{"two"}},
		{"not completed", task.Filter{Completed: &notDone}, []string{"one", "three"}},
		{"assigned user", task.Filter{AssignedUser: u.ID}, []string{"three"}},
		{"assigned and completed", task.Filter{AssignedUser: u.ID, Completed: &done}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTasks(ctx, nil, tt.filter)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, names(got)); diff != "" {
				t.Errorf("ListTasks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_ListUsers(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "Ann", "ann@example.com")
	mustCreateUser(t, s, "Bob", "bob@example.com")

	all, err := s.ListUsers(ctx, nil, user.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ann", all[0].Name)

	byEmail, err := s.ListUsers(ctx, nil, user.Filter{Email: "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Bob", byEmail[0].Name)

	none, err := s.ListUsers(ctx, nil, user.Filter{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_UpdateTaskRejectsInconsistentAssignmentName(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	tk := mustCreateTask(t, s, "one")

	name := "Ann"
	_, err := s.UpdateTask(context.Background(), nil, tk.ID, task.Patch{AssignedUserName: &name})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestStore_HealthCheck(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	assert.Equal(t, "store", s.Name())
	require.NoError(t, s.HealthCheck(context.Background()))
}
