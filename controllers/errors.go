package controller

import (
	"context"
	"errors"
	"net/http"

	"prospectflow/editor"
	"prospectflow/store"
	"prospectflow/utils"
	"prospectflow/worker"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps a domain error onto an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var apiErr *utils.ExaAPIError
	switch {
	case errors.Is(err, editor.ErrSessionNotFound),
		errors.Is(err, editor.ErrStepNotFound),
		errors.Is(err, store.ErrRecordNotFound):
		return fiber.StatusNotFound, "Not found"

	case errors.Is(err, editor.ErrUnknownTab),
		errors.Is(err, editor.ErrUnknownModal),
		errors.Is(err, editor.ErrEmptyPrompt),
		errors.Is(err, utils.ErrInvalidRecipient),
		errors.Is(err, store.ErrUnknownObject):
		return fiber.StatusBadRequest, "Invalid request"

	case errors.Is(err, editor.ErrNoDraft),
		errors.Is(err, editor.ErrNoPublished),
		errors.Is(err, editor.ErrPublishInFlight),
		errors.Is(err, editor.ErrEmptySelection),
		errors.Is(err, editor.ErrSequenceIsNew),
		errors.Is(err, editor.ErrEnrollInFlight),
		errors.Is(err, editor.ErrGenerateInFlight),
		errors.Is(err, worker.ErrAlreadyQueued),
		errors.Is(err, worker.ErrQueryRequired):
		return fiber.StatusConflict, "Conflict"

	case errors.Is(err, utils.ErrExaNotConfigured),
		errors.Is(err, utils.ErrMailerNotConfigured),
		errors.Is(err, worker.ErrQueueFull):
		return fiber.StatusServiceUnavailable, "Service unavailable"

	case errors.Is(err, utils.ErrSearchTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "Upstream timed out"

	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status, apiErr.Message
		}
		return fiber.StatusBadGateway, "Upstream request failed"

	case errors.Is(err, editor.ErrPersist),
		errors.Is(err, editor.ErrGenerationFailure),
		errors.Is(err, utils.ErrSearchCanceled):
		return fiber.StatusBadGateway, "Upstream request failed"
	}
	return fiber.StatusInternalServerError, http.StatusText(fiber.StatusInternalServerError)
}

// respondError writes err as a JSON error. Details are only sent for client
// errors; server side failures go to LogError instead.
func respondError(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		utils.LogError("request_failed", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"status": status,
		})
		return utils.ErrorResponse(c, status, message, nil)
	}
	return utils.ErrorResponse(c, status, message, err)
}

// NotFound answers unknown routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "Not Found",
		"message": "Route " + c.Method() + " " + c.Path() + " does not exist",
	})
}
