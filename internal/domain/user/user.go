// Package user holds the User entity and the operations on its pending-task
// list that the consistency rules are built from.
package user

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/jsamuelsen11/taskboard/internal/domain"
)

// User is a person that tasks can be assigned to. PendingTasks holds the IDs
// of the tasks whose AssignedUser is this user.
type User struct {
	ID           string
	Name         string
	Email        string
	PendingTasks []string
	CreatedAt    time.Time
}

// Patch is a partial update. A nil field means "do not change this field".
// PendingTasks, when set, replaces the whole list.
type Patch struct {
	Name         *string
	Email        *string
	PendingTasks *[]string
}

// Filter holds optional criteria for listing users. Zero values mean no
// filter for that dimension.
type Filter struct {
	Email string
	Skip  int
	Limit int
}

// Validate checks business rules for the User entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (u *User) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(u.Name) == "" {
		fields["name"] = domain.MsgRequired
	}
	if strings.TrimSpace(u.Email) == "" {
		fields["email"] = domain.MsgRequired
	} else if _, err := mail.ParseAddress(u.Email); err != nil {
		fields["email"] = fmt.Sprintf("invalid address: %q", u.Email)
	}
	if msg := validatePending(u.PendingTasks); msg != "" {
		fields["pending_tasks"] = msg
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// validatePending rejects malformed and duplicate task IDs. Duplicates are
// refused rather than silently collapsed.
func validatePending(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, err := domain.ParseID(domain.EntityTask, id); err != nil {
			return fmt.Sprintf("invalid task id: %q", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Sprintf("duplicate task id: %q", id)
		}
		seen[id] = struct{}{}
	}
	return ""
}

// Apply returns a copy of u with the patch applied. The receiver is not
// modified.
func (u *User) Apply(p Patch) User {
	out := u.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.PendingTasks != nil {
		out.PendingTasks = slices.Clone(*p.PendingTasks)
		if out.PendingTasks == nil {
			out.PendingTasks = []string{}
		}
	}
	return out
}

// Clone returns a deep copy of u.
func (u *User) Clone() User {
	out := *u
	out.PendingTasks = slices.Clone(u.PendingTasks)
	if out.PendingTasks == nil {
		out.PendingTasks = []string{}
	}
	return out
}

// HasPendingTask reports whether taskID is in the pending list.
func (u *User) HasPendingTask(taskID string) bool {
	return slices.Contains(u.PendingTasks, taskID)
}

// WithPendingTask returns the pending list with taskID appended, or the list
// unchanged when it already holds taskID.
func (u *User) WithPendingTask(taskID string) []string {
	out := slices.Clone(u.PendingTasks)
	if slices.Contains(out, taskID) {
		return out
	}
	return append(out, taskID)
}

// WithoutPendingTask returns the pending list with every occurrence of taskID
// removed.
func (u *User) WithoutPendingTask(taskID string) []string {
	out := make([]string, 0, len(u.PendingTasks))
	for _, id := range u.PendingTasks {
		if id != taskID {
			out = append(out, id)
		}
	}
	return out
}

// DroppedTasks returns the IDs present in before but absent from after, in
// their original order.
func DroppedTasks(before, after []string) []string {
	var dropped []string
	for _, id := range before {
		if !slices.Contains(after, id) && !slices.Contains(dropped, id) {
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// NormalizeIDs canonicalizes every task ID in ids. The first malformed ID
// yields an *domain.InvalidIDError.
func NormalizeIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := domain.ParseID(domain.EntityTask, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
