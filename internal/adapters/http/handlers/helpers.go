package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/taskboard/internal/adapters/http/dto"
	"github.com/jsamuelsen11/taskboard/internal/domain"
)

const msgNonNegativeInt = "must be a non-negative integer"

// pathID returns the {id} URL parameter. Syntax is checked by the store so
// that a malformed ID is reported as such for the right entity.
func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// listQuery holds the pagination options shared by the list endpoints.
type listQuery struct {
	skip  int
	limit int
	count bool
}

// parseListQuery reads skip, limit and count from the query string.
func parseListQuery(r *http.Request) (listQuery, error) {
	q := r.URL.Query()
	fields := make(map[string]string)
	var lq listQuery

	for name, dst := range map[string]*int{"skip": &lq.skip, "limit": &lq.limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields[name] = msgNonNegativeInt
			continue
		}
		*dst = n
	}

	if raw := q.Get("count"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields["count"] = "must be a boolean"
		}
		lq.count = b
	}

	if len(fields) > 0 {
		return listQuery{}, &domain.ValidationError{Fields: fields}
	}
	return lq, nil
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	dto.WriteJSON(w, r, status, dto.Envelope{Message: message, Data: data})
}

// maxJSONBodyBytes is the maximum allowed size for a JSON request body (1 MB).
const maxJSONBodyBytes = 1 << 20

// decodeJSONBody decodes the request body as JSON into dst. The body is
// limited to maxJSONBodyBytes to prevent resource exhaustion. On failure,
// it writes a 400 error response and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		dto.WriteErrorResponse(w, r, &domain.ValidationError{
			Fields: map[string]string{"body": "invalid JSON"},
		})
		return false
	}
	return true
}

// validatable is implemented by request DTOs that support validation.
type validatable interface {
	Validate() error
}

// decodeAndValidate decodes the JSON request body into dst and validates it.
// On decode or validation failure it writes an error response and returns false.
func decodeAndValidate[T validatable](w http.ResponseWriter, r *http.Request, dst T) bool {
	if !decodeJSONBody(w, r, dst) {
		return false
	}
	if err := dst.Validate(); err != nil {
		dto.WriteErrorResponse(w, r, err)
		return false
	}
	return true
}
