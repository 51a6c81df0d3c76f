package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/pkg/cache"
	"github.com/taskfabric/gateway/pkg/downstream"
)

// TaskTTLs holds the cache lifetimes for task endpoints.
type TaskTTLs struct {
	List    time.Duration
	Task    time.Duration
	History time.Duration
}

// TaskHandler orchestrates task reads through the response cache and
// keeps it coherent across writes. Point entries (task, history) are
// invalidated directly; list entries are orphaned by bumping the task
// collection generation.
type TaskHandler struct {
	tasks       *downstream.TaskService
	store       *cache.Store
	generations *cache.Generations
	ttl         TaskTTLs
	logger      zerolog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks *downstream.TaskService, store *cache.Store, generations *cache.Generations, ttl TaskTTLs, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:       tasks,
		store:       store,
		generations: generations,
		ttl:         ttl,
		logger:      logger.With().Str("component", "task_handler").Logger(),
	}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := downstream.ParseTaskFilter(q)
	page, pageSize := parsePaging(q)

	gen := h.generations.Current(cache.CollectionTasks)
	key := cache.TaskListKey(filter.Key(), page, pageSize, gen)

	if cached, err := h.store.Get(key); err == nil {
		RespondWithRaw(w, http.StatusOK, cached)
		return
	}

	resp, err := h.tasks.Query(r.Context(), filter, page, pageSize)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.store.Set(key, resp, h.ttl.List)
	RespondWithRaw(w, http.StatusOK, resp)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	key := cache.TaskKey(taskID)
	if cached, err := h.store.Get(key); err == nil {
		RespondWithRaw(w, http.StatusOK, cached)
		return
	}

	resp, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.store.Set(key, resp, h.ttl.Task)
	RespondWithRaw(w, http.StatusOK, resp)
}

// History handles GET /api/tasks/{id}/history.
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	key := cache.TaskHistoryKey(taskID)
	if cached, err := h.store.Get(key); err == nil {
		RespondWithRaw(w, http.StatusOK, cached)
		return
	}

	resp, err := h.tasks.GetHistory(r.Context(), taskID)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.store.Set(key, resp, h.ttl.History)
	RespondWithRaw(w, http.StatusOK, resp)
}

// Create handles POST /api/tasks. A successful create bumps the task
// collection generation so every cached list falls out of scope at once.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, err := h.tasks.Create(r.Context(), userID, json.RawMessage(body))
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	gen := h.generations.Bump(cache.CollectionTasks)
	h.logger.Debug().Int64("generation", gen).Msg("task created, list caches orphaned")

	RespondWithRaw(w, resp.StatusCode, resp.Body)
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, err := h.tasks.Update(r.Context(), userID, taskID, json.RawMessage(body))
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.invalidateTask(taskID)
	RespondWithRaw(w, http.StatusOK, resp)
}

// Assign handles PUT /api/tasks/{id}/assign. The task service has no
// partial update, so assignment reads the current task and writes it
// back with the new assignee.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AssignedUserID == uuid.Nil {
		RespondWithError(w, http.StatusBadRequest, "assignedUserId is required")
		return
	}

	current, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	var task downstream.TaskResponse
	if err := json.Unmarshal(current, &task); err != nil {
		h.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("malformed task payload")
		RespondWithError(w, http.StatusBadGateway, "task service returned a malformed task")
		return
	}

	update := downstream.UpdateTaskRequest{
		Title:       &task.Title,
		Description: &task.Description,
		AssignedTo:  &req.AssignedUserID,
	}
	payload, err := json.Marshal(update)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	resp, err := h.tasks.Update(r.Context(), userID, taskID, payload)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.invalidateTask(taskID)
	RespondWithRaw(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, taskID); err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.invalidateTask(taskID)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateTask drops the task's point cache entries and orphans all
// cached lists. Runs only after a successful downstream write.
func (h *TaskHandler) invalidateTask(taskID uuid.UUID) {
	h.store.Invalidate(cache.TaskKey(taskID))
	h.store.Invalidate(cache.TaskHistoryKey(taskID))
	h.generations.Bump(cache.CollectionTasks)
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
