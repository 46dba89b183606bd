package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/datemate/taskpoll/internal/api/shared"
	"github.com/datemate/taskpoll/internal/platform/logger"
	"github.com/datemate/taskpoll/internal/service"
	"github.com/datemate/taskpoll/internal/task"
	"github.com/go-chi/chi/v5"
)

// TaskHandler serves the asynchronous AI task endpoints.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Routes mounts the task endpoints on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/", h.SubmitTask)
	r.Get("/{id}", h.GetTask)
	r.Delete("/{id}", h.DeleteTask)
}

// SubmitTask handles POST /api/ai/tasks. It answers 202 with the new task id
// as soon as the task is queued.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req task.SubmitRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	created, err := h.tasks.Submit(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "failed to queue task")
		return
	}

	logger.FromContext(r.Context()).Info("task accepted",
		"task_id", created.ID,
		"task_type", created.Type)

	w.Header().Set("Location", "/api/ai/tasks/"+created.ID)
	shared.RespondWithJSON(w, r, http.StatusAccepted, task.SubmitResponse{
		TaskID: created.ID,
		Status: created.Status,
	})
}

// GetTask handles GET /api/ai/tasks/{id}. Unknown and expired ids are 404.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	t, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "failed to load task")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// DeleteTask handles DELETE /api/ai/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" || len(id) > 64 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task id")
		return "", false
	}
	return id, true
}
