package domain

import "errors"

// Class is the classified outcome of a failed operation. Inbound adapters map
// a Class to their own status codes; the domain never sees transport details.
type Class string

const (
	ClassNone              Class = ""
	ClassInvalidIdentifier Class = "invalid_identifier"
	ClassNotFound          Class = "not_found"
	ClassValidation        Class = "validation"
	ClassConflict          Class = "conflict"
	ClassUnavailable       Class = "unavailable"
	ClassInternal          Class = "internal"
)

// Classify translates an already-raised error into its Class. A nil error is
// ClassNone; anything unrecognized is ClassInternal.
//
// Identifier syntax is checked first so that a malformed ID is never reported
// as not-found, even if a caller wrapped both.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrInvalidID):
		return ClassInvalidIdentifier
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrConflict):
		return ClassConflict
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}
