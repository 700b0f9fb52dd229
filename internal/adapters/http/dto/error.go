package dto

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/jsamuelsen11/taskboard/internal/domain"
)

// MsgUnexpected is the message of every response whose cause is not a
// classified domain failure. Internal details never reach the client.
const MsgUnexpected = "An unexpected error occurred, try again"

const msgUnavailable = "A downstream dependency is unavailable, try again"

// Envelope is the body of every API response. Data is null on failure.
type Envelope struct {
	Message string        `json:"message"`
	Data    any           `json:"data"`
	Errors  []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail represents a single field-level validation error within an
// error Envelope.
type ErrorDetail struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// NewErrorEnvelope builds the failure envelope and status code for err.
func NewErrorEnvelope(err error) (int, Envelope) {
	class := domain.Classify(err)
	status := StatusFor(class)

	env := Envelope{Message: errorMessage(class, err)}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		env.Errors = validationFieldsToDetails(verr.Fields)
	}
	return status, env
}

// WriteErrorResponse classifies err and writes the failure envelope.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, env := NewErrorEnvelope(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	WriteJSON(w, r, status, env)
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// A handler that outlived its deadline has nobody left to answer.
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil && !errors.Is(encErr, http.ErrHandlerTimeout) {
		slog.ErrorContext(r.Context(), "failed to encode response",
			slog.Any("error", encErr),
		)
	}
}

// StatusFor maps an error class to an HTTP status code. Uniqueness conflicts
// are client input errors and share 400 with validation failures.
func StatusFor(class domain.Class) int {
	switch class {
	case domain.ClassNone:
		return http.StatusOK
	case domain.ClassInvalidIdentifier, domain.ClassValidation, domain.ClassConflict:
		return http.StatusBadRequest
	case domain.ClassNotFound:
		return http.StatusNotFound
	case domain.ClassUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(class domain.Class, err error) string {
	switch class {
	case domain.ClassInvalidIdentifier:
		var ierr *domain.InvalidIDError
		if errors.As(err, &ierr) {
			return ierr.Error()
		}
		return domain.ErrInvalidID.Error()
	case domain.ClassNotFound:
		var nerr *domain.NotFoundError
		if errors.As(err, &nerr) {
			return nerr.Error()
		}
		return domain.ErrNotFound.Error()
	case domain.ClassValidation:
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return verr.Error()
		}
		return domain.ErrValidation.Error()
	case domain.ClassConflict:
		var cerr *domain.ConflictError
		if errors.As(err, &cerr) {
			return cerr.Error()
		}
		return domain.ErrConflict.Error()
	case domain.ClassUnavailable:
		return msgUnavailable
	default:
		return MsgUnexpected
	}
}

// validationFieldsToDetails converts domain validation fields to sorted
// ErrorDetail entries.
func validationFieldsToDetails(fields map[string]string) []ErrorDetail {
	details := make([]ErrorDetail, 0, len(fields))
	for field, msg := range fields {
		details = append(details, ErrorDetail{
			Location: "body." + field,
			Message:  msg,
		})
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Location < details[j].Location
	})
	return details
}
