package handlers

import (
	"errors"
	"log"

	"ocha/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string            `json:"message"`
	Code    apperr.Code       `json:"code,omitempty"`
	Field   string            `json:"field,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		if e.Code == apperr.CodeInvalidInput {
			return fiber.StatusUnprocessableEntity
		}
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindAuth:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the fiber.Config ErrorHandler. Handlers return errors and
// this is the only place they become responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Message: fe.Message})
	}

	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Printf("Internal error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			Code:    apperr.CodeInternal,
		})
	}

	return c.Status(StatusFor(e)).JSON(ErrorResponse{
		Message: e.Message,
		Code:    e.Code,
		Field:   e.Field,
		Errors:  e.Fields,
	})
}

func badBody(err error) error {
	log.Printf("Error parsing request body: %v", err)
	return apperr.Validation(apperr.CodeInvalidBody, "Invalid request body")
}
