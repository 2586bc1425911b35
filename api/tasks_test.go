package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

func TestPostBoardTasksDefaultsAndParses(t *testing.T) {
	var gotBoard string
	var gotDraft domain.Task
	store := &stubStore{
		createTaskFn: func(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error) {
			gotBoard, gotDraft = boardID, draft
			draft.ID = "t1"
			draft.BoardID = boardID
			draft.CreatedBy = actor
			return draft, nil
		},
	}

	body := `{"title":"Fix login","assignee":"bob","dueDate":"2026-09-01"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/boards/b1/tasks", body)
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := postBoardTasks(store, stubAuth{userID: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotBoard != "b1" {
		t.Fatalf("unexpected board: %q", gotBoard)
	}
	if gotDraft.Status != domain.StatusToDo || gotDraft.Priority != domain.PriorityMedium {
		t.Fatalf("expected defaults, got status=%q priority=%q", gotDraft.Status, gotDraft.Priority)
	}
	if gotDraft.AssigneeID != "bob" || gotDraft.ReviewerID != "" {
		t.Fatalf("unexpected refs: %#v", gotDraft)
	}
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if gotDraft.DueDate == nil || !gotDraft.DueDate.Equal(want) {
		t.Fatalf("unexpected due date: %v", gotDraft.DueDate)
	}

	var created domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if created.CreatedBy != "alice" {
		t.Fatalf("expected creator to be the actor, got %q", created.CreatedBy)
	}
}

func TestPostBoardTasksRejectsBadInput(t *testing.T) {
	store := &stubStore{
		createTaskFn: func(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error) {
			t.Fatal("store must not be called")
			return domain.Task{}, nil
		},
	}

	for name, body := range map[string]string{
		"badStatus":   `{"title":"t","status":"archived"}`,
		"badPriority": `{"title":"t","priority":"urgent"}`,
		"badDueDate":  `{"title":"t","dueDate":"next tuesday"}`,
		"noTitle":     `{"status":"to_do"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, rec := newTestContext(t, http.MethodPost, "/api/boards/b1/tasks", body)
			c.SetParamNames("id")
			c.SetParamValues("b1")
			if err := postBoardTasks(store, stubAuth{userID: "alice"})(c); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPostBoardTasksNonMemberAssignee(t *testing.T) {
	store := &stubStore{
		createTaskFn: func(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error) {
			return domain.Task{}, domain.Invalid("assignee", "user is not a member of the board")
		},
	}

	c, rec := newTestContext(t, http.MethodPost, "/api/boards/b1/tasks", `{"title":"t","assignee":"stranger"}`)
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := postBoardTasks(store, stubAuth{userID: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["field"] != "assignee" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestPatchTaskClearsDueDate(t *testing.T) {
	var got domain.TaskPatch
	store := &stubStore{
		updateTaskFn: func(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error) {
			got = patch
			return domain.Task{ID: id}, nil
		},
	}

	c, rec := newTestContext(t, http.MethodPatch, "/api/tasks/t1", `{"dueDate":""}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")
	if err := patchTask(store, stubAuth{userID: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !got.ClearDueDate || got.DueDate != nil {
		t.Fatalf("expected clear-due-date patch, got %#v", got)
	}
}

func TestPatchTaskUnassigns(t *testing.T) {
	var got domain.TaskPatch
	store := &stubStore{
		updateTaskFn: func(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error) {
			got = patch
			return domain.Task{ID: id}, nil
		},
	}

	c, rec := newTestContext(t, http.MethodPatch, "/api/tasks/t1", `{"assignee":"","status":"done"}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")
	if err := patchTask(store, stubAuth{userID: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.AssigneeID == nil || *got.AssigneeID != "" {
		t.Fatalf("expected explicit unassign, got %#v", got.AssigneeID)
	}
	if got.Status == nil || *got.Status != domain.StatusDone {
		t.Fatalf("unexpected status: %#v", got.Status)
	}
	if got.ReviewerID != nil || got.Title != nil {
		t.Fatalf("untouched fields must stay nil: %#v", got)
	}
}

func TestDeleteTaskForbiddenReason(t *testing.T) {
	store := &stubStore{
		deleteTaskFn: func(ctx context.Context, actor, id string) error {
			return domain.Forbidden("not the task creator or the board owner")
		},
	}

	c, rec := newTestContext(t, http.MethodDelete, "/api/tasks/t1", "")
	c.SetParamNames("id")
	c.SetParamValues("t1")
	if err := deleteTask(store, stubAuth{userID: "member"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec.Body.String() != "not the task creator or the board owner" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestListBoardTasksDeniedIsNotEmpty(t *testing.T) {
	store := &stubStore{
		listBoardTasksFn: func(ctx context.Context, actor, boardID string) ([]domain.Task, error) {
			return nil, domain.Forbidden("not a member of the board")
		},
	}

	c, rec := newTestContext(t, http.MethodGet, "/api/boards/b1/tasks", "")
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := getBoardTasks(store, stubAuth{userID: "stranger"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected a denial rather than an empty list, got %d", rec.Code)
	}
}

func TestGetTasksAssigned(t *testing.T) {
	store := &stubStore{
		listAssignedFn: func(ctx context.Context, actor string) ([]domain.Task, error) {
			if actor != "alice" {
				t.Fatalf("unexpected actor: %q", actor)
			}
			return []domain.Task{{ID: "t1", BoardID: "left-board", AssigneeID: "alice"}}, nil
		},
	}

	c, rec := newTestContext(t, http.MethodGet, "/api/tasks/assigned", "")
	if err := getTasksAssigned(store, stubAuth{userID: "alice"}, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp tasksResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks: %#v", resp.Tasks)
	}
}
