package handlers

import (
	"net/http"

	"github.com/jsamuelsen11/taskboard/internal/adapters/http/dto"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	svc ports.UserService
}

// NewUserHandler creates a new UserHandler with the given service port.
func NewUserHandler(svc ports.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ListUsers handles GET /api/v1/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	users, err := h.svc.ListUsers(r.Context(), user.Filter{
		Email: r.URL.Query().Get("email"),
		Skip:  lq.skip,
		Limit: lq.limit,
	})
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	if lq.count {
		writeData(w, r, http.StatusOK, dto.MsgUsersCount, len(users))
		return
	}
	writeData(w, r, http.StatusOK, dto.MsgUsersRetrieved, dto.ToUserListResponse(users))
}

// CreateUser handles POST /api/v1/users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.svc.CreateUser(r.Context(), req.ToUser())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusCreated, dto.MsgUserCreated, dto.ToUserResponse(created))
}

// GetUser handles GET /api/v1/users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), pathID(r))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, dto.MsgUserFound, dto.ToUserResponse(u))
}

// UpdateUser handles PUT and PATCH /api/v1/users/{id}.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateUser(r.Context(), pathID(r), req.ToPatch())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, dto.MsgUserUpdated, dto.ToUserResponse(updated))
}

// DeleteUser handles DELETE /api/v1/users/{id}. The deleted user is echoed
// back in the response.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteUser(r.Context(), pathID(r))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, dto.MsgUserDeleted, dto.ToUserResponse(deleted))
}
