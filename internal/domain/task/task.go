// Package task holds the Task entity and its assignment state.
package task

import (
	"strings"
	"time"

	"github.com/jsamuelsen11/taskboard/internal/domain"
)

// Unassigned is the AssignedUserName of a task that has no assigned user.
const Unassigned = "unassigned"

// Task is a unit of work that may be assigned to one user. AssignedUserName
// is a copy of the user's name taken at assignment time; later renames of the
// user are not propagated.
type Task struct {
	ID               string
	Name             string
	Description      string
	Deadline         *time.Time
	Completed        bool
	AssignedUser     string
	AssignedUserName string
	CreatedAt        time.Time
}

// Patch is a partial update. A nil field means "do not change this field".
// AssignedUser set to "" means unassign. ClearDeadline removes the deadline
// and wins over Deadline.
type Patch struct {
	Name             *string
	Description      *string
	Deadline         *time.Time
	ClearDeadline    bool
	Completed        *bool
	AssignedUser     *string
	AssignedUserName *string
}

// Filter holds optional criteria for listing tasks. Zero values mean no
// filter for that dimension.
type Filter struct {
	Completed    *bool
	AssignedUser string
	Skip         int
	Limit        int
}

// Validate checks business rules for the Task entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (t *Task) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(t.Name) == "" {
		fields["name"] = domain.MsgRequired
	}
	if t.AssignedUser == "" && t.AssignedUserName != Unassigned {
		fields["assigned_user_name"] = "must be " + Unassigned + " when no user is assigned"
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// IsAssigned reports whether the task has an assigned user.
func (t *Task) IsAssigned() bool {
	return t.AssignedUser != ""
}

// Apply returns a copy of t with the patch applied. The receiver is not
// modified.
func (t *Task) Apply(p Patch) Task {
	out := t.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	switch {
	case p.ClearDeadline:
		out.Deadline = nil
	case p.Deadline != nil:
		d := *p.Deadline
		out.Deadline = &d
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.AssignedUser != nil {
		out.AssignedUser = *p.AssignedUser
	}
	if p.AssignedUserName != nil {
		out.AssignedUserName = *p.AssignedUserName
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Task) Clone() Task {
	out := *t
	if t.Deadline != nil {
		d := *t.Deadline
		out.Deadline = &d
	}
	return out
}

// AssignTo returns the patch fields that point a task at the given user.
func AssignTo(userID, userName string) Patch {
	return Patch{AssignedUser: &userID, AssignedUserName: &userName}
}

// Unassign returns the patch fields that clear a task's assignment.
func Unassign() Patch {
	empty, name := "", Unassigned
	return Patch{AssignedUser: &empty, AssignedUserName: &name}
}

// Merge overlays the non-nil fields of o onto p.
func (p Patch) Merge(o Patch) Patch {
	if o.Name != nil {
		p.Name = o.Name
	}
	if o.Description != nil {
		p.Description = o.Description
	}
	if o.Deadline != nil {
		p.Deadline = o.Deadline
		p.ClearDeadline = false
	}
	if o.ClearDeadline {
		p.Deadline = nil
		p.ClearDeadline = true
	}
	if o.Completed != nil {
		p.Completed = o.Completed
	}
	if o.AssignedUser != nil {
		p.AssignedUser = o.AssignedUser
	}
	if o.AssignedUserName != nil {
		p.AssignedUserName = o.AssignedUserName
	}
	return p
}
