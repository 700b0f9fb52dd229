package domain

import "github.com/google/uuid"

// NewID returns a new store-assigned identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseID validates the syntax of an identifier for the given entity and
// returns its canonical form. Malformed input yields an *InvalidIDError.
func ParseID(entity, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &InvalidIDError{Entity: entity, Value: raw}
	}
	return id.String(), nil
}
