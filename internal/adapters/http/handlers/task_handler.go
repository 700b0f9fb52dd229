package handlers

import (
	"net/http"
	"strconv"

	"github.com/jsamuelsen11/taskboard/internal/adapters/http/dto"
	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	svc ports.TaskService
}

// NewTaskHandler creates a new TaskHandler with the given service port.
func NewTaskHandler(svc ports.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// ListTasks handles GET /api/v1/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, count, err := parseTaskFilter(r)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	tasks, err := h.svc.ListTasks(r.Context(), filter)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	if count {
		writeData(w, r, http.StatusOK, dto.MsgTasksCount, len(tasks))
		return
	}
	writeData(w, r, http.StatusOK, dto.MsgTasksRetrieved, dto.ToTaskListResponse(tasks))
}

// CreateTask handles POST /api/v1/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, err := h.svc.CreateTask(r.Context(), req.ToTask())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusCreated, dto.MsgTaskCreated, dto.ToTaskResponse(created))
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTask(r.Context(), pathID(r))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, dto.MsgTaskFound, dto.ToTaskResponse(t))
}

// UpdateTask handles PUT and PATCH /api/v1/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateTask(r.Context(), pathID(r), req.ToPatch())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, dto.MsgTaskUpdated, dto.ToTaskResponse(updated))
}

// DeleteTask handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteTask(r.Context(), pathID(r))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, dto.MsgTaskDeleted, dto.ToTaskResponse(deleted))
}

// parseTaskFilter extracts completed and assigned_user on top of the shared
// pagination parameters.
func parseTaskFilter(r *http.Request) (task.Filter, bool, error) {
	lq, err := parseListQuery(r)
	if err != nil {
		return task.Filter{}, false, err
	}

	q := r.URL.Query()
	filter := task.Filter{
		AssignedUser: q.Get("assigned_user"),
		Skip:         lq.skip,
		Limit:        lq.limit,
	}

	if raw := q.Get("completed"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return task.Filter{}, false, &domain.ValidationError{
				Fields: map[string]string{"completed": "must be a boolean"},
			}
		}
		filter.Completed = &b
	}

	return filter, lq.count, nil
}
