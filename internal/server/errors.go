package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/skill-roadmap/internal/roadmap"
)

// HTTPStatus returns the appropriate HTTP status code for an engine error
func HTTPStatus(err error) int {
	var validationErr *roadmap.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.Is(err, roadmap.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, roadmap.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, roadmap.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the message shown to clients. Internal errors are not exposed.
func publicMessage(err error) string {
	var validationErr *roadmap.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, roadmap.ErrInvalidOrder):
		return "order must list every step id exactly once"
	case errors.Is(err, roadmap.ErrForbidden):
		return "roadmap belongs to another user"
	case errors.Is(err, roadmap.ErrNotFound):
		return "not found"
	default:
		return "internal server error"
	}
}
