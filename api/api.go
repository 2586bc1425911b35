package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, directorySecret string, logger *log.Logger) {
	e.Validator = newPayloadValidator()

	e.POST("/api/boards", postBoards(store, auth))
	e.GET("/api/boards", getBoards(store, auth, logger))
	e.GET("/api/boards/:id", getBoard(store, auth))
	e.PATCH("/api/boards/:id", patchBoard(store, auth))
	e.DELETE("/api/boards/:id", deleteBoard(store, auth))

	e.GET("/api/boards/:id/tasks", getBoardTasks(store, auth))
	e.POST("/api/boards/:id/tasks", postBoardTasks(store, auth))
	e.GET("/api/tasks/assigned", getTasksAssigned(store, auth, logger))
	e.GET("/api/tasks/reviewing", getTasksReviewing(store, auth, logger))
	e.GET("/api/tasks/:id", getTask(store, auth))
	e.PATCH("/api/tasks/:id", patchTask(store, auth))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth))

	e.GET("/api/tasks/:id/comments", getTaskComments(store, auth))
	e.POST("/api/tasks/:id/comments", postTaskComments(store, auth))
	e.DELETE("/api/comments/:id", deleteComment(store, auth))

	e.POST("/internal/directory/deletions", postDirectoryDeletions(store, directorySecret))

	e.GET("/healthz", healthz(store))
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "storage unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}
