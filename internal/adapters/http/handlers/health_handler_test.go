package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/taskboard/internal/adapters/http/handlers"
)

func TestLiveness_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := handlers.NewHealthHandler(&mockHealthRegistry{})

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	requireStatus(t, rec, http.StatusOK)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		results    map[string]error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all healthy",
			results:    map[string]error{"store": nil, "webhook": nil},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready","checks":{"store":"ok","webhook":"ok"}}`,
		},
		{
			name:       "webhook breaker open",
			results:    map[string]error{"store": nil, "webhook": errors.New("circuit breaker open")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"not_ready","checks":{"store":"ok","webhook":"circuit breaker open"}}`,
		},
		{
			name:       "no checkers",
			results:    map[string]error{},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := &mockHealthRegistry{}
			registry.On("CheckAll", mock.Anything).Return(tt.results)
			h := handlers.NewHealthHandler(registry)

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			requireStatus(t, rec, tt.wantStatus)
			require.True(t, json.Valid(rec.Body.Bytes()))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			registry.AssertExpectations(t)
		})
	}
}
