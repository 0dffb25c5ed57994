package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError carries an HTTP status and a client-safe message. Err is the
// underlying cause and is only ever logged.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(fiber.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(fiber.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(fiber.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(fiber.StatusNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(fiber.StatusConflict, message, nil)
}

func Internal(message string, err error) *AppError {
	return New(fiber.StatusInternalServerError, message, err)
}

func ServiceUnavailable(message string, err error) *AppError {
	return New(fiber.StatusServiceUnavailable, message, err)
}

// As extracts an AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the status carried by err, 500 for anything untyped.
func CodeOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return fiber.StatusInternalServerError
}
