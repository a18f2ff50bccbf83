package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/okrboard/backend/internal/core/progress"
	"github.com/okrboard/backend/internal/core/services"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/transport/http/dto"
)

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var weightErr *progress.WeightError
	switch {
	case errors.As(err, &weightErr),
		errors.Is(err, progress.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidScope),
		errors.Is(err, services.ErrTaskInvalidInput):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrApprovalNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrTaskConflict),
		errors.Is(err, progress.ErrNotTerminal),
		errors.Is(err, services.ErrWrongTemplateScope),
		errors.Is(err, services.ErrApprovalAlreadyDecided):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrMissingDepartment),
		errors.Is(err, services.ErrMissingOrganization),
		errors.Is(err, services.ErrInvalidTargets):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrAssignmentForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// writeError logs err under event and renders it as an ErrorResponse.
func writeError(c *fiber.Ctx, log *logger.Logger, event string, err error, keysAndValues ...interface{}) error {
	status := statusFor(err)
	kv := append(keysAndValues, "status", status, "error", err)
	if status >= fiber.StatusInternalServerError {
		log.Errorw(event+"_failed", kv...)
	} else {
		log.Warnw(event+"_rejected", kv...)
	}

	resp := dto.ErrorResponse{Error: err.Error()}
	var weightErr *progress.WeightError
	if errors.As(err, &weightErr) {
		sum := weightErr.Sum
		resp.Sum = &sum
		resp.Weight = weightErr.Weight
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx, log *logger.Logger, event string, err error) error {
	log.Warnw(event+"_body_parse_failed", "error", err)
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: "invalid request body",
	})
}

func invalid(c *fiber.Ctx, log *logger.Logger, event string, details []string) error {
	log.Warnw(event+"_validation_failed", "details", details)
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:   "validation failed",
		Details: details,
	})
}
