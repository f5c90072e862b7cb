package serverutils

import (
	"errors"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindStateConflict:
		return fiber.StatusConflict
	case apperror.KindProvider:
		return fiber.StatusBadGateway
	case apperror.KindConfiguration:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// MessageOf is the client-facing message for err. Internal errors are not
// echoed back.
func MessageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + ": " + appErr.Details
		}
		return appErr.Message
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Message
	}
	return "Internal server error"
}

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusOf(err)
		return ctx.Status(code).JSON(ErrorResponse(code, MessageOf(err)))
	}
}
