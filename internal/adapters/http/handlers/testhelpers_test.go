package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

const (
	testUserID = "6f1c1c9e-3f6e-4d7e-9a59-0c4a3f6f2b10"
	testTaskID = "0b8e5f0c-8a0e-4c59-b7a4-2f4c3f0a9d21"
)

var testTime = time.Date(2026, 2, 12, 15, 4, 5, 0, time.UTC)

// mockUserService is a testify mock of ports.UserService.
type mockUserService struct{ mock.Mock }

func newMockUserService(t *testing.T) *mockUserService {
	m := &mockUserService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockUserService) ListUsers(ctx context.Context, f user.Filter) ([]user.User, error) {
	args := m.Called(ctx, f)
	users, _ := args.Get(0).([]user.User)
	return users, args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	args := m.Called(ctx, u)
	out, _ := args.Get(0).(*user.User)
	return out, args.Error(1)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id string, p user.Patch) (*user.User, error) {
	args := m.Called(ctx, id, p)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserService) DeleteUser(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

// mockTaskService is a testify mock of ports.TaskService.
type mockTaskService struct{ mock.Mock }

func newMockTaskService(t *testing.T) *mockTaskService {
	m := &mockTaskService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockTaskService) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, error) {
	args := m.Called(ctx, f)
	tasks, _ := args.Get(0).([]task.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskService) GetTask(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*task.Task)
	return t, args.Error(1)
}

func (m *mockTaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	args := m.Called(ctx, t)
	out, _ := args.Get(0).(*task.Task)
	return out, args.Error(1)
}

func (m *mockTaskService) UpdateTask(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	args := m.Called(ctx, id, p)
	t, _ := args.Get(0).(*task.Task)
	return t, args.Error(1)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*task.Task)
	return t, args.Error(1)
}

// mockHealthRegistry is a testify mock of ports.HealthRegistry.
type mockHealthRegistry struct{ mock.Mock }

func (m *mockHealthRegistry) Register(ports.HealthChecker) {}

func (m *mockHealthRegistry) CheckAll(ctx context.Context) map[string]error {
	res, _ := m.Called(ctx).Get(0).(map[string]error)
	return res
}

func validUser() user.User {
	return user.User{
		ID:           testUserID,
		Name:         "Ann Lee",
		Email:        "ann@example.com",
		PendingTasks: []string{testTaskID},
		CreatedAt:    testTime,
	}
}

func validTask() task.Task {
	return task.Task{
		ID:               testTaskID,
		Name:             "Write report",
		Description:      "Quarterly numbers",
		AssignedUser:     testUserID,
		AssignedUserName: "Ann Lee",
		CreatedAt:        testTime,
	}
}

func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(v))
	return buf
}

// envelope mirrors dto.Envelope with a typed payload.
type envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), "body = %s", rec.Body.String())
	return env
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body = %s", rec.Body.String())
}
