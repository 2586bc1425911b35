package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

type commentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

// commentPayload intentionally has no author field: the author is always the
// authenticated actor and anything else in the body is ignored.
type commentPayload struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func getTaskComments(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		comments, err := store.ListCommentsForTask(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, commentsResponse{Comments: comments})
	}
}

func postTaskComments(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var p commentPayload
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&p); err != nil {
			return c.String(http.StatusBadRequest,
				fmt.Sprintf("content is required and must be at most %d characters", domain.MaxCommentLength))
		}
		comment, err := store.CreateComment(c.Request().Context(), userID, c.Param("id"), p.Content)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, comment)
	}
}

func deleteComment(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := store.DeleteComment(c.Request().Context(), userID, c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
