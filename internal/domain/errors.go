package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for errors.Is() checking.
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidID   = errors.New("invalid identifier")
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrInternal    = errors.New("internal error")
)

// Entity names used in error values and messages.
const (
	EntityUser = "User"
	EntityTask = "Task"
)

// MsgRequired is the validation message for mandatory fields.
const MsgRequired = "is required"

// NotFoundError reports that an entity with the given ID does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// UserNotFound returns a *NotFoundError for a User.
func UserNotFound(id string) error {
	return &NotFoundError{Entity: EntityUser, ID: id}
}

// TaskNotFound returns a *NotFoundError for a Task.
func TaskNotFound(id string) error {
	return &NotFoundError{Entity: EntityTask, ID: id}
}

// InvalidIDError reports an identifier that is not syntactically valid. It is
// distinct from NotFoundError: the lookup never reached the store.
type InvalidIDError struct {
	Entity string
	Value  string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("Invalid %s ID format: %q", strings.ToLower(e.Entity), e.Value)
}

func (e *InvalidIDError) Unwrap() error {
	return ErrInvalidID
}

// ValidationError provides programmatic access to field-level validation failures.
// Use errors.Is(err, ErrValidation) for simple checks, or errors.As(err, &verr) to
// access verr.Fields for per-field error details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError reports a unique constraint violation on a single field.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s validation failed: %s: %s has to be unique", e.Entity, e.Field, e.Field)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
