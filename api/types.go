package api

import (
	"context"

	"kanban-api/domain"
)

// Storage abstracts persistence for handlers. Every call carries the acting
// user; the store resolves the ownership chain and enforces the access rules,
// so handlers only translate its errors into HTTP responses.
type Storage interface {
	CreateBoard(ctx context.Context, actor, title string) (domain.Board, error)
	GetBoard(ctx context.Context, actor, id string) (domain.Board, error)
	UpdateBoard(ctx context.Context, actor, id string, patch domain.BoardPatch) (domain.Board, error)
	DeleteBoard(ctx context.Context, actor, id string) error
	ListBoards(ctx context.Context, actor string) ([]domain.Board, error)

	CreateTask(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error)
	GetTask(ctx context.Context, actor, id string) (domain.Task, error)
	UpdateTask(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, actor, id string) error
	ListTasksForBoard(ctx context.Context, actor, boardID string) ([]domain.Task, error)
	ListTasksAssigned(ctx context.Context, actor string) ([]domain.Task, error)
	ListTasksReviewing(ctx context.Context, actor string) ([]domain.Task, error)

	CreateComment(ctx context.Context, actor, taskID, content string) (domain.Comment, error)
	DeleteComment(ctx context.Context, actor, id string) error
	ListCommentsForTask(ctx context.Context, actor, taskID string) ([]domain.Comment, error)

	PurgeUserRefs(ctx context.Context, userID string) (int64, error)
	Ping(ctx context.Context) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
