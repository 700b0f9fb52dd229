package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
)

const (
	msgRequired     = domain.MsgRequired
	msgMustNotEmpty = "must not be empty"
	msgRFC3339      = "must be an RFC 3339 timestamp"
)

// IDList is a list of identifiers that also accepts a single JSON string,
// which is normalized to a one-element list.
type IDList []string

// UnmarshalJSON accepts either "id" or ["id", ...].
func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = IDList{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or an array of strings: %w", err)
	}
	if many == nil {
		many = []string{}
	}
	*l = many
	return nil
}

// Field is an optional string that tells an absent key apart from an
// explicit null. Set reports whether the key appeared in the body at all.
type Field struct {
	Set   bool
	Null  bool
	Value string
}

// UnmarshalJSON records presence and accepts a string or null.
func (f *Field) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		f.Value = ""
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// Empty reports whether the field was sent as null or "".
func (f *Field) Empty() bool {
	return f.Set && (f.Null || f.Value == "")
}

// CreateUserRequest represents the JSON body for creating a user. A new user
// never starts with pending tasks; assignments go through an update.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate checks that required fields are present.
// Returns a *domain.ValidationError if any checks fail.
func (r *CreateUserRequest) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = msgRequired
	}
	if strings.TrimSpace(r.Email) == "" {
		fields["email"] = msgRequired
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// ToUser maps the request onto a new domain User.
func (r *CreateUserRequest) ToUser() *user.User {
	return &user.User{
		Name:         strings.TrimSpace(r.Name),
		Email:        strings.TrimSpace(r.Email),
		PendingTasks: []string{},
	}
}

// UpdateUserRequest represents the JSON body for PUT/PATCH on a user.
// All fields are optional; nil means "do not change this field.".
// PendingTasks, when present, replaces the whole list.
type UpdateUserRequest struct {
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	PendingTasks *IDList `json:"pending_tasks,omitempty"`
}

// Validate checks that any provided fields have valid values.
// Returns a *domain.ValidationError if any checks fail.
func (r *UpdateUserRequest) Validate() error {
	fields := make(map[string]string)

	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fields["name"] = msgMustNotEmpty
	}
	if r.Email != nil && strings.TrimSpace(*r.Email) == "" {
		fields["email"] = msgMustNotEmpty
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// ToPatch maps the request onto a user.Patch.
func (r *UpdateUserRequest) ToPatch() user.Patch {
	var p user.Patch
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		p.Name = &name
	}
	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		p.Email = &email
	}
	if r.PendingTasks != nil {
		ids := []string(*r.PendingTasks)
		p.PendingTasks = &ids
	}
	return p
}

// CreateTaskRequest represents the JSON body for creating a task. Tasks are
// created unassigned.
type CreateTaskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Deadline    string `json:"deadline,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
}

// Validate checks that required fields are present and the deadline parses.
// Returns a *domain.ValidationError if any checks fail.
func (r *CreateTaskRequest) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = msgRequired
	}
	if r.Deadline != "" {
		if _, err := time.Parse(time.RFC3339, r.Deadline); err != nil {
			fields["deadline"] = msgRFC3339
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// ToTask maps a validated request onto a new domain Task.
func (r *CreateTaskRequest) ToTask() *task.Task {
	t := &task.Task{
		Name:             strings.TrimSpace(r.Name),
		Description:      r.Description,
		Completed:        r.Completed,
		AssignedUserName: task.Unassigned,
	}
	if d, err := time.Parse(time.RFC3339, r.Deadline); err == nil {
		d = d.UTC()
		t.Deadline = &d
	}
	return t
}

// UpdateTaskRequest represents the JSON body for PUT/PATCH on a task.
// All fields are optional; an absent key means "do not change this field".
// AssignedUser sent as "" or null unassigns the task, and Deadline sent as
// "" or null clears the deadline.
type UpdateTaskRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Deadline     Field   `json:"deadline"`
	Completed    *bool   `json:"completed,omitempty"`
	AssignedUser Field   `json:"assigned_user"`
}

// Validate checks that any provided fields have valid values.
// Returns a *domain.ValidationError if any checks fail.
func (r *UpdateTaskRequest) Validate() error {
	fields := make(map[string]string)

	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fields["name"] = msgMustNotEmpty
	}
	if r.Deadline.Set && !r.Deadline.Empty() {
		if _, err := time.Parse(time.RFC3339, r.Deadline.Value); err != nil {
			fields["deadline"] = msgRFC3339
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// ToPatch maps a validated request onto a task.Patch.
func (r *UpdateTaskRequest) ToPatch() task.Patch {
	p := task.Patch{
		Description: r.Description,
		Completed:   r.Completed,
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		p.Name = &name
	}
	if r.AssignedUser.Set {
		assignee := r.AssignedUser.Value
		p.AssignedUser = &assignee
	}
	switch {
	case r.Deadline.Empty():
		p.ClearDeadline = true
	case r.Deadline.Set:
		if d, err := time.Parse(time.RFC3339, r.Deadline.Value); err == nil {
			d = d.UTC()
			p.Deadline = &d
		}
	}
	return p
}
