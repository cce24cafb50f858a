package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/spigell/skill-matcher/internal/failure"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case failure.IsValidation(err):
		return http.StatusBadRequest
	case failure.IsExtraction(err):
		return http.StatusUnprocessableEntity
	case failure.IsRetrieval(err) && errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case failure.IsRetrieval(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
