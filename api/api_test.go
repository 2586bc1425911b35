package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

// stubStore embeds Storage so only the methods a test exercises need
// overriding.
type stubStore struct {
	Storage

	createBoardFn    func(ctx context.Context, actor, title string) (domain.Board, error)
	getBoardFn       func(ctx context.Context, actor, id string) (domain.Board, error)
	updateBoardFn    func(ctx context.Context, actor, id string, patch domain.BoardPatch) (domain.Board, error)
	deleteBoardFn    func(ctx context.Context, actor, id string) error
	listBoardsFn     func(ctx context.Context, actor string) ([]domain.Board, error)
	createTaskFn     func(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error)
	getTaskFn        func(ctx context.Context, actor, id string) (domain.Task, error)
	updateTaskFn     func(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error)
	deleteTaskFn     func(ctx context.Context, actor, id string) error
	listBoardTasksFn func(ctx context.Context, actor, boardID string) ([]domain.Task, error)
	listAssignedFn   func(ctx context.Context, actor string) ([]domain.Task, error)
	createCommentFn  func(ctx context.Context, actor, taskID, content string) (domain.Comment, error)
	deleteCommentFn  func(ctx context.Context, actor, id string) error
	listCommentsFn   func(ctx context.Context, actor, taskID string) ([]domain.Comment, error)
	purgeFn          func(ctx context.Context, userID string) (int64, error)
	pingFn           func(ctx context.Context) error
}

func (s *stubStore) CreateBoard(ctx context.Context, actor, title string) (domain.Board, error) {
	return s.createBoardFn(ctx, actor, title)
}

func (s *stubStore) GetBoard(ctx context.Context, actor, id string) (domain.Board, error) {
	return s.getBoardFn(ctx, actor, id)
}

func (s *stubStore) UpdateBoard(ctx context.Context, actor, id string, patch domain.BoardPatch) (domain.Board, error) {
	return s.updateBoardFn(ctx, actor, id, patch)
}

func (s *stubStore) DeleteBoard(ctx context.Context, actor, id string) error {
	return s.deleteBoardFn(ctx, actor, id)
}

func (s *stubStore) ListBoards(ctx context.Context, actor string) ([]domain.Board, error) {
	return s.listBoardsFn(ctx, actor)
}

func (s *stubStore) CreateTask(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error) {
	return s.createTaskFn(ctx, actor, boardID, draft)
}

func (s *stubStore) GetTask(ctx context.Context, actor, id string) (domain.Task, error) {
	return s.getTaskFn(ctx, actor, id)
}

func (s *stubStore) UpdateTask(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error) {
	return s.updateTaskFn(ctx, actor, id, patch)
}

func (s *stubStore) DeleteTask(ctx context.Context, actor, id string) error {
	return s.deleteTaskFn(ctx, actor, id)
}

func (s *stubStore) ListTasksForBoard(ctx context.Context, actor, boardID string) ([]domain.Task, error) {
	return s.listBoardTasksFn(ctx, actor, boardID)
}

func (s *stubStore) ListTasksAssigned(ctx context.Context, actor string) ([]domain.Task, error) {
	return s.listAssignedFn(ctx, actor)
}

func (s *stubStore) CreateComment(ctx context.Context, actor, taskID, content string) (domain.Comment, error) {
	return s.createCommentFn(ctx, actor, taskID, content)
}

func (s *stubStore) DeleteComment(ctx context.Context, actor, id string) error {
	return s.deleteCommentFn(ctx, actor, id)
}

func (s *stubStore) ListCommentsForTask(ctx context.Context, actor, taskID string) ([]domain.Comment, error) {
	return s.listCommentsFn(ctx, actor, taskID)
}

func (s *stubStore) PurgeUserRefs(ctx context.Context, userID string) (int64, error) {
	return s.purgeFn(ctx, userID)
}

func (s *stubStore) Ping(ctx context.Context) error {
	return s.pingFn(ctx)
}

type stubAuth struct {
	userID string
	err    error
}

func (a stubAuth) UserIDFromAuthHeader(string) (string, error) { return a.userID, a.err }

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = newPayloadValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer x.y.z")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHealthzReportsStorage(t *testing.T) {
	store := &stubStore{pingFn: func(ctx context.Context) error { return nil }}
	c, rec := newTestContext(t, http.MethodGet, "/healthz", "")
	if err := healthz(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	store.pingFn = func(ctx context.Context) error { return errors.New("connection refused") }
	c, rec = newTestContext(t, http.MethodGet, "/healthz", "")
	if err := healthz(store)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestUnauthenticatedRequestGets401(t *testing.T) {
	store := &stubStore{}
	auth := stubAuth{err: errMissingAuthorization}

	c, rec := newTestContext(t, http.MethodGet, "/api/boards/b1", "")
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := getBoard(store, auth)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
