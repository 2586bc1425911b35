package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// maxRequestBody bounds every decoded request body.
const maxRequestBody = 64 << 10

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, maxRequestBody)
	return sonic.ConfigStd.NewDecoder(lr).Decode(dst)
}

type boardsResponse struct {
	Boards []domain.Board `json:"boards"`
}

type boardPayload struct {
	Title string `json:"title" validate:"required,max=100"`
}

type boardPatchPayload struct {
	Title   *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Members *[]string `json:"members"`
}

func postBoards(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var p boardPayload
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&p); err != nil {
			return c.String(http.StatusBadRequest,
				fmt.Sprintf("title is required and must be at most %d characters", domain.MaxBoardTitleLength))
		}
		b, err := store.CreateBoard(c.Request().Context(), userID, p.Title)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, b)
	}
}

func getBoards(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger, "/api/boards")
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
		boards, fetchErr := store.ListBoards(ctx, userID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, fetchErr)
			return err
		}
		metrics.SetItemsReturned(len(boards))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, boardsResponse{Boards: boards})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		b, err := store.GetBoard(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}

func patchBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var p boardPatchPayload
		if err := decodeBody(c, &p); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&p); err != nil {
			return c.String(http.StatusBadRequest,
				fmt.Sprintf("title must be nonempty and at most %d characters", domain.MaxBoardTitleLength))
		}
		patch := domain.BoardPatch{Title: p.Title, Members: p.Members}
		b, err := store.UpdateBoard(c.Request().Context(), userID, c.Param("id"), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}

func deleteBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := store.DeleteBoard(c.Request().Context(), userID, c.Param("id")); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
