package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/services"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/transport/http/dto"
	httpmw "github.com/okrboard/backend/internal/transport/http/middleware"
)

type TaskHandler struct {
	tasks   ports.TaskService
	cascade ports.CascadeService
	factory ports.SubtaskFactory
	gate    ports.ApprovalGate
	logger  *logger.Logger
}

func NewTaskHandler(engine *services.Engine, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:   engine.Tasks,
		cascade: engine.Cascade,
		factory: engine.Factory,
		gate:    engine.Gate,
		logger:  logger,
	}
}

// CreateTask routes the payload through the approval gate. A task created
// directly answers 201, an intercepted one 202 with the pending request.
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, "task_create", err)
	}
	if errs := req.Validate(); len(errs) > 0 {
		return invalid(c, h.logger, "task_create", errs)
	}

	rights := httpmw.RightsFrom(c)
	h.logger.Infow("task_create_request", "title", req.Title, "scope", req.Scope, "user_id", rights.UserID)
	res, err := h.gate.RequestOrCreate(c.UserContext(), req.ToPayload(), rights, req.Notes)
	if err != nil {
		return writeError(c, h.logger, "task_create", err, "scope", req.Scope)
	}

	if res.Pending() {
		h.logger.Infow("task_create_pending_approval", "request_id", res.Request.ID)
		return c.Status(fiber.StatusAccepted).JSON(dto.GateToResponse(res))
	}
	h.logger.Infow("task_create_success", "id", res.Task.ID)
	return c.Status(fiber.StatusCreated).JSON(dto.GateToResponse(res))
}

func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	filter := ports.TaskFilter{
		OrganizationID: c.Query("organization_id"),
		DepartmentID:   c.Query("department_id"),
		ParentID:       c.Query("parent_id"),
		Status:         domain.TaskStatus(c.Query("status")),
		Scope:          domain.Scope(c.Query("scope")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "invalid limit",
			})
		}
		filter.Limit = limit
	}

	tasks, err := h.tasks.ListTasks(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.logger, "tasks_list", err)
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := h.tasks.GetTask(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "task_get", err, "id", id)
	}
	return c.JSON(task)
}

func (h *TaskHandler) ListChildren(c *fiber.Ctx) error {
	id := c.Params("id")
	children, err := h.tasks.ListChildren(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "task_children", err, "id", id)
	}
	return c.JSON(children)
}

func (h *TaskHandler) CommitMilestones(c *fiber.Ctx) error {
	id := c.Params("id")
	var req dto.CommitMilestonesRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, "task_milestones", err)
	}

	h.logger.Infow("task_milestones_request", "id", id, "count", len(req.Milestones))
	res, err := h.tasks.CommitMilestones(c.UserContext(), id, req.Milestones)
	if err != nil {
		return writeError(c, h.logger, "task_milestones", err, "id", id)
	}
	return c.JSON(res)
}

// SetStatus answers 207 when the status was stored but some children did
// not receive the pushed value.
func (h *TaskHandler) SetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, "task_status", err)
	}
	if errs := req.Validate(); len(errs) > 0 {
		return invalid(c, h.logger, "task_status", errs)
	}

	h.logger.Infow("task_status_request", "id", id, "status", req.Status)
	res, err := h.tasks.SetStatus(c.UserContext(), id, domain.TaskStatus(req.Status))
	var partial *services.PartialCascadeError
	if errors.As(err, &partial) && res != nil {
		h.logger.Warnw("task_status_partial", "id", id, "failed", len(partial.Failed))
		return c.Status(fiber.StatusMultiStatus).JSON(res)
	}
	if err != nil {
		return writeError(c, h.logger, "task_status", err, "id", id)
	}
	return c.JSON(res)
}

func (h *TaskHandler) Reopen(c *fiber.Ctx) error {
	id := c.Params("id")
	var req dto.ReopenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, h.logger, "task_reopen", err)
		}
	}

	h.logger.Infow("task_reopen_request", "id", id, "reset_milestones", req.ResetMilestones)
	res, err := h.tasks.Reopen(c.UserContext(), id, req.ResetMilestones)
	if err != nil {
		return writeError(c, h.logger, "task_reopen", err, "id", id)
	}
	return c.JSON(res)
}

func (h *TaskHandler) Expand(c *fiber.Ctx) error {
	id := c.Params("id")
	var req dto.ExpandRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, "task_expand", err)
	}
	if errs := req.Validate(); len(errs) > 0 {
		return invalid(c, h.logger, "task_expand", errs)
	}

	rights := httpmw.RightsFrom(c)
	h.logger.Infow("task_expand_request", "id", id, "departments", len(req.DepartmentIDs), "members", len(req.MemberIDs))
	res, err := h.factory.ExpandToSubtasks(c.UserContext(), id, req.Targets(), rights)
	if err != nil {
		return writeError(c, h.logger, "task_expand", err, "id", id)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *TaskHandler) Reconcile(c *fiber.Ctx) error {
	id := c.Params("id")
	res, err := h.cascade.ReconcileParent(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "task_reconcile", err, "id", id)
	}
	return c.JSON(res)
}
