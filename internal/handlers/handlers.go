// Package handlers is the HTTP surface. Handlers validate and decode,
// then delegate to services; domain errors are mapped to API errors in
// one place so status codes stay consistent across routes.
package handlers

import (
	"errors"
	"net/http"

	"eventhub/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

func apiError(msg string, err error) error {
	switch {
	case errors.Is(err, status.ErrValidation):
		return apis.NewBadRequestError(msg, err)
	case errors.Is(err, status.ErrInsufficientInventory):
		return apis.NewApiError(http.StatusConflict, "Not enough tickets available", err)
	case errors.Is(err, status.ErrInvalidState):
		return apis.NewApiError(http.StatusConflict, msg, err)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError(msg, err)
	case errors.Is(err, status.ErrForbidden):
		return apis.NewForbiddenError(msg, err)
	case errors.Is(err, status.ErrInvariantViolation), errors.Is(err, status.ErrStorageUnavailable):
		return apis.NewApiError(http.StatusInternalServerError, msg, err)
	default:
		// Unwrapped storage or driver errors are server faults.
		return apis.NewApiError(http.StatusInternalServerError, msg, err)
	}
}

// requireRole checks the authenticated record's role field. Admins pass
// every check.
func requireRole(e *core.RequestEvent, roles ...string) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	role := e.Auth.GetString("role")
	if role == RoleAdmin {
		return nil
	}
	for _, r := range roles {
		if role == r {
			return nil
		}
	}
	return apis.NewForbiddenError("Insufficient role", nil)
}

func authID(e *core.RequestEvent) string {
	if e.Auth == nil {
		return ""
	}
	return e.Auth.Id
}
