package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/boxpack-api/internal/api/shared"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/service"
)

// TaskHandler serves packing task endpoints.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// CreateTask handles POST /api/tasks. The items are placed by the active
// strategy before anything is stored; a failed placement stores nothing.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), service.CreateTaskInput{
		CreatorID: userID,
		WorkerID:  req.WorkerID,
		Space:     req.space(),
		Items:     req.items(),
	})
	if err != nil {
		var verr *placement.ViolationError
		if errors.As(err, &verr) {
			respondWithViolations(w, r, err, verr)
			return
		}
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, toTaskResponse(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(task))
}

// ListUserTasks handles GET /api/users/{id}/tasks.
func (h *TaskHandler) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tasks.ListCreatedBy(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskSummaries(tasks))
}

// ListWorkerTasks handles GET /api/workers/{id}/tasks.
func (h *TaskHandler) ListWorkerTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	workerID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tasks.ListAssignedTo(r.Context(), workerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskSummaries(tasks))
}

func respondWithViolations(w http.ResponseWriter, r *http.Request, err error, verr *placement.ViolationError) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	shared.LogError(r, status, msg, err, shared.WithElevatedLogLevel())
	shared.RespondWithJSON(w, r, status, GeometryErrorResponse{
		Error:      msg,
		TraceID:    shared.GetTraceID(r.Context()),
		Violations: verr.Violations,
	})
}
