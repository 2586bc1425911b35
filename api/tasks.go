package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

const dueDateLayout = "2006-01-02"

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type taskPayload struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee"`
	Reviewer    string `json:"reviewer"`
	DueDate     string `json:"dueDate"`
}

type taskPatchPayload struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Assignee    *string `json:"assignee"`
	Reviewer    *string `json:"reviewer"`
	DueDate     *string `json:"dueDate"`
}

func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dueDateLayout, raw)
	if err != nil {
		return nil, domain.Invalid("dueDate", "must be a YYYY-MM-DD date")
	}
	return &d, nil
}

func getBoardTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := store.ListTasksForBoard(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

func postBoardTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var p taskPayload
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&p); err != nil {
			return c.String(http.StatusBadRequest,
				fmt.Sprintf("title is required and must be at most %d characters", domain.MaxTaskTitleLength))
		}
		status, err := domain.ParseStatus(p.Status)
		if err != nil {
			return respondError(c, err)
		}
		priority, err := domain.ParsePriority(p.Priority)
		if err != nil {
			return respondError(c, err)
		}
		due, err := parseDueDate(p.DueDate)
		if err != nil {
			return respondError(c, err)
		}
		draft := domain.Task{
			Title:       p.Title,
			Description: p.Description,
			Status:      status,
			Priority:    priority,
			AssigneeID:  p.Assignee,
			ReviewerID:  p.Reviewer,
			DueDate:     due,
		}
		t, err := store.CreateTask(c.Request().Context(), userID, c.Param("id"), draft)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func getTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		t, err := store.GetTask(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func patchTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var p taskPatchPayload
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&p); err != nil {
			return c.String(http.StatusBadRequest,
				fmt.Sprintf("title must be nonempty and at most %d characters", domain.MaxTaskTitleLength))
		}
		patch := domain.TaskPatch{
			Title:       p.Title,
			Description: p.Description,
			AssigneeID:  p.Assignee,
			ReviewerID:  p.Reviewer,
		}
		if p.Status != nil {
			status, err := domain.ParseStatus(*p.Status)
			if err != nil {
				return respondError(c, err)
			}
			patch.Status = &status
		}
		if p.Priority != nil {
			priority, err := domain.ParsePriority(*p.Priority)
			if err != nil {
				return respondError(c, err)
			}
			patch.Priority = &priority
		}
		if p.DueDate != nil {
			// An explicit empty string clears the due date; absence leaves
			// it untouched.
			if *p.DueDate == "" {
				patch.ClearDueDate = true
			} else {
				due, err := parseDueDate(*p.DueDate)
				if err != nil {
					return respondError(c, err)
				}
				patch.DueDate = due
			}
		}
		t, err := store.UpdateTask(c.Request().Context(), userID, c.Param("id"), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := store.DeleteTask(c.Request().Context(), userID, c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getTasksAssigned(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return listTaskScope("/api/tasks/assigned", store.ListTasksAssigned, auth, logger)
}

func getTasksReviewing(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return listTaskScope("/api/tasks/reviewing", store.ListTasksReviewing, auth, logger)
}

// listTaskScope serves the cross-board task lists (assigned, reviewing) with
// request metrics. These lists are deliberately unfiltered by board
// membership.
func listTaskScope(route string, fetch func(context.Context, string) ([]domain.Task, error), auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger, route)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := fetch(ctx, userID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, fetchErr)
			return err
		}
		metrics.SetItemsReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}
