package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// directorySecretHeader authenticates calls from the user directory service.
const directorySecretHeader = "X-Directory-Secret"

type directoryDeletionPayload struct {
	UserID string `json:"userId" validate:"required"`
}

type directoryDeletionResponse struct {
	Cleared int64 `json:"cleared"`
}

// postDirectoryDeletions handles a user-deleted notification from the
// directory service. References that can be cleared (assignee, reviewer,
// membership) are cleared; the request is refused with a conflict while the
// user still owns boards or authored tasks or comments.
func postDirectoryDeletions(store Storage, secret string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if secret == "" {
			return c.String(http.StatusNotFound, "not found")
		}
		provided := c.Request().Header.Get(directorySecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.String(http.StatusUnauthorized, "invalid directory secret")
		}
		var p directoryDeletionPayload
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&p); err != nil {
			return c.String(http.StatusBadRequest, "userId is required")
		}
		cleared, err := store.PurgeUserRefs(c.Request().Context(), p.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, directoryDeletionResponse{Cleared: cleared})
	}
}
