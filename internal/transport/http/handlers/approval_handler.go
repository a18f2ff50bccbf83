package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/transport/http/dto"
	httpmw "github.com/okrboard/backend/internal/transport/http/middleware"
)

type ApprovalHandler struct {
	gate   ports.ApprovalGate
	logger *logger.Logger
}

func NewApprovalHandler(gate ports.ApprovalGate, logger *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{gate: gate, logger: logger}
}

func (h *ApprovalHandler) ListRequests(c *fiber.Ctx) error {
	status := c.Query("status")
	if !dto.ValidApprovalStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "status must be one of: pending, approved, rejected",
		})
	}

	reqs, err := h.gate.ListRequests(c.UserContext(), domain.ApprovalStatus(status))
	if err != nil {
		return writeError(c, h.logger, "approvals_list", err)
	}
	return c.JSON(reqs)
}

func (h *ApprovalHandler) GetRequest(c *fiber.Ctx) error {
	id := c.Params("id")
	req, err := h.gate.GetRequest(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "approval_get", err, "id", id)
	}
	return c.JSON(req)
}

// Resolve records the manager decision. The deciding user comes from X-User-ID.
func (h *ApprovalHandler) Resolve(c *fiber.Ctx) error {
	id := c.Params("id")
	var req dto.ResolveApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, "approval_resolve", err)
	}
	if errs := req.Validate(); len(errs) > 0 {
		return invalid(c, h.logger, "approval_resolve", errs)
	}

	decidedBy := httpmw.RightsFrom(c).UserID
	h.logger.Infow("approval_resolve_request", "id", id, "approve", req.Approve, "decided_by", decidedBy)
	res, err := h.gate.Resolve(c.UserContext(), id, req.Decision(decidedBy))
	if err != nil {
		return writeError(c, h.logger, "approval_resolve", err, "id", id)
	}
	return c.JSON(res)
}
