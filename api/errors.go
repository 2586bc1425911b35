package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

// respondError translates store and policy errors into HTTP responses.
// Unknown existence always wins over denied access: the store returns
// domain.ErrNotFound before evaluating permissions, so a 403 never leaks
// whether a resource exists.
func respondError(c echo.Context, err error) error {
	var forbidden *domain.ForbiddenError
	var invalid *domain.ValidationError
	var referenced *domain.UserReferencedError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.String(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrNotFound):
		return c.String(http.StatusNotFound, "not found")
	case errors.As(err, &forbidden):
		return c.String(http.StatusForbidden, forbidden.Reason)
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"field": invalid.Field,
			"error": invalid.Reason,
		})
	case errors.As(err, &referenced):
		return c.JSON(http.StatusConflict, map[string]any{
			"error":    "user is still referenced",
			"boards":   referenced.Boards,
			"tasks":    referenced.Tasks,
			"comments": referenced.Comments,
		})
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
}
