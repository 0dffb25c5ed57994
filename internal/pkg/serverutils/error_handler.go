package serverutils

import (
	"errors"

	"career-chat-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders any error returned by a handler as the standard envelope.
// Causes wrapped inside an AppError never reach the client.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := apperror.As(err); ok {
		code = appErr.Code
		message = appErr.Message
	} else {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}
	}

	return ctx.Status(code).JSON(ErrorResponse(code, message))
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
