// Package dto provides HTTP request/response data transfer objects and the
// {message, data} envelope for the inbound HTTP adapter layer.
package dto

import (
	"slices"
	"time"

	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
)

// Envelope messages for successful responses.
const (
	MsgUsersRetrieved = "Users retrieved"
	MsgUsersCount     = "Users count retrieved"
	MsgUserCreated    = "User created"
	MsgUserFound      = "User found"
	MsgUserUpdated    = "User updated successfully"
	MsgUserDeleted    = "User deleted successfully"
	MsgTasksRetrieved = "Tasks retrieved"
	MsgTasksCount     = "Tasks count retrieved"
	MsgTaskCreated    = "Task created"
	MsgTaskFound      = "Task found"
	MsgTaskUpdated    = "Task updated successfully"
	MsgTaskDeleted    = "Task deleted successfully"
)

// UserResponse represents a single user in HTTP responses.
type UserResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PendingTasks []string `json:"pending_tasks"`
	CreatedAt    string   `json:"created_at"`
}

// ToUserResponse converts a domain User to an HTTP response DTO.
func ToUserResponse(u *user.User) UserResponse {
	pending := slices.Clone(u.PendingTasks)
	if pending == nil {
		pending = []string{}
	}
	return UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PendingTasks: pending,
		CreatedAt:    u.CreatedAt.Format(time.RFC3339),
	}
}

// ToUserListResponse converts a slice of domain Users to response DTOs.
func ToUserListResponse(users []user.User) []UserResponse {
	items := make([]UserResponse, len(users))
	for i := range users {
		items[i] = ToUserResponse(&users[i])
	}
	return items
}

// TaskResponse represents a single task in HTTP responses.
type TaskResponse struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Deadline         *string `json:"deadline"`
	Completed        bool    `json:"completed"`
	AssignedUser     string  `json:"assigned_user"`
	AssignedUserName string  `json:"assigned_user_name"`
	CreatedAt        string  `json:"created_at"`
}

// ToTaskResponse converts a domain Task to an HTTP response DTO.
func ToTaskResponse(t *task.Task) TaskResponse {
	resp := TaskResponse{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Completed:        t.Completed,
		AssignedUser:     t.AssignedUser,
		AssignedUserName: t.AssignedUserName,
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
	}
	if t.Deadline != nil {
		d := t.Deadline.Format(time.RFC3339)
		resp.Deadline = &d
	}
	return resp
}

// ToTaskListResponse converts a slice of domain Tasks to response DTOs.
func ToTaskListResponse(tasks []task.Task) []TaskResponse {
	items := make([]TaskResponse, len(tasks))
	for i := range tasks {
		items[i] = ToTaskResponse(&tasks[i])
	}
	return items
}
