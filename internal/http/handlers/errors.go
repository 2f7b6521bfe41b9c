package handlers

import (
	"errors"

	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/flow"
	"github.com/equifund/backend/internal/http/dto"
	"github.com/equifund/backend/internal/middleware"
	"github.com/equifund/backend/internal/query"
	"github.com/equifund/backend/internal/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusFor maps a service error to its HTTP status and the message shown to the caller.
func statusFor(err error) (int, string) {
	var failed *flow.ActionFailedError
	var blocked *services.BlockedError

	switch {
	case errors.As(err, &failed):
		return fiber.StatusUnprocessableEntity, failed.Message
	case errors.As(err, &blocked):
		return fiber.StatusBadRequest, string(blocked.Reason)
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, chain.ErrInvalidAddress), errors.Is(err, query.ErrProjectNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, services.ErrNotOwner):
		return fiber.StatusForbidden, "owner access required"
	case errors.Is(err, flow.ErrInFlight), errors.Is(err, flow.ErrSequenceUsed):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, chain.ErrNotConnected):
		return fiber.StatusServiceUnavailable, "wallet not connected"
	case errors.Is(err, chain.ErrRemote):
		return fiber.StatusBadGateway, "unable to load"
	}
	return fiber.StatusInternalServerError, "internal error"
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, msg := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(errorBody(c, msg))
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody(c, msg))
}

// pathAddress parses an address route parameter. A malformed value maps to 404.
func pathAddress(c *fiber.Ctx, name string) (common.Address, error) {
	return chain.ParseAddress(c.Params(name))
}

func errorBody(c *fiber.Ctx, msg string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)}
}
