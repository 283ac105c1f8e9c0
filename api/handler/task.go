package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskwarden/backend/api/transport"
	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/pkg/httpcontext"
	"github.com/taskwarden/backend/repository"
	trackerUC "github.com/taskwarden/backend/usecase/tracker"
)

const deadlineLayout = "2006-01-02"

type TaskHandler struct {
	baseHandler
	tracker  *trackerUC.Controller
	tasks    repository.TaskRepository
	validate *validator.Validate
}

func NewTaskHandler(tracker *trackerUC.Controller, tasks repository.TaskRepository, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		tracker:     tracker,
		tasks:       tasks,
		validate:    validator.New(),
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	if _, ok := h.principal(ctx); !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	// The list is served unfiltered; visibility is applied by the tracker,
	// never server-side here.
	tasks, err := h.tasks.List(stdCtx, repository.TaskFilter{})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), err.Error(), nil))
		return
	}

	deadline, _ := time.Parse(deadlineLayout, req.Deadline)

	task := &domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Assignee:    req.Assignee,
		Deadline:    deadline,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.tracker.CreateTask(stdCtx, viewer, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if created == nil {
		// Members fall through silently without touching the store.
		h.respondSuccess(ctx, http.StatusOK, nil)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task status
// @Tags tasks
// @Router /api/v1/tasks/{id}/status [put]
func (h *TaskHandler) UpdateTaskStatus(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	var req transport.TaskStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), err.Error(), nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.tracker.UpdateTaskStatus(stdCtx, viewer, id, domain.Status(req.Status)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Update task fields
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	var req transport.TaskUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), err.Error(), nil))
		return
	}

	patch := trackerUC.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Deadline != nil {
		deadline, _ := time.Parse(deadlineLayout, *req.Deadline)
		patch.Deadline = &deadline
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		patch.Status = &status
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.tracker.UpdateTaskFields(stdCtx, viewer, id, patch); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.tracker.DeleteTask(stdCtx, viewer, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
