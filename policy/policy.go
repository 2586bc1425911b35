// Package policy provides authorization decisions for board, task and
// comment operations. Decisions are pure functions over resources whose
// ownership chain has already been resolved, so the engine is testable with
// in-memory fixtures and independent of storage traversal.
package policy

import "kanban-api/domain"

// Action is the class of operation being authorized. Write covers both
// create and update.
type Action int

const (
	ActionRead Action = iota + 1
	ActionWrite
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionWrite:
		return "write"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Kind tags the resource type a decision applies to.
type Kind int

const (
	KindBoard Kind = iota + 1
	KindTask
	KindComment
)

// Resource is an authorization target with its owning board resolved.
// For tasks the chain is Task→Board, for comments Comment→Task→Board; the
// caller walks the chain once per request and hands the result here.
type Resource struct {
	Kind  Kind
	Board domain.Board

	// TaskCreatedBy is set for KindTask.
	TaskCreatedBy string
	// CommentAuthor is set for KindComment.
	CommentAuthor string
}

// BoardResource wraps a board for a decision.
func BoardResource(b domain.Board) Resource {
	return Resource{Kind: KindBoard, Board: b}
}

// TaskResource wraps a task and its resolved board for a decision.
func TaskResource(t domain.Task, b domain.Board) Resource {
	return Resource{Kind: KindTask, Board: b, TaskCreatedBy: t.CreatedBy}
}

// CommentResource wraps a comment and its resolved board for a decision.
func CommentResource(c domain.Comment, b domain.Board) Resource {
	return Resource{Kind: KindComment, Board: b, CommentAuthor: c.AuthorID}
}

// Decide returns nil when the actor may perform the action on the resource,
// domain.ErrUnauthenticated when there is no actor, and a
// *domain.ForbiddenError naming the missing role otherwise.
//
// Read and write authority is uniform across resource types: the board's
// owner and members. Delete authority is narrower and type-specific: boards
// by the owner only, tasks by the creator or the board owner, comments by
// the author only. "Can write" must never be conflated with "can delete".
func Decide(actor string, action Action, res Resource) error {
	if actor == "" {
		return domain.ErrUnauthenticated
	}

	if action != ActionDelete {
		if !res.Board.HasMember(actor) {
			return domain.Forbidden("not a member of the board")
		}
		return nil
	}

	switch res.Kind {
	case KindBoard:
		if !res.Board.IsOwner(actor) {
			return domain.Forbidden("not the board owner")
		}
	case KindTask:
		if actor != res.TaskCreatedBy && !res.Board.IsOwner(actor) {
			return domain.Forbidden("not the task creator or the board owner")
		}
	case KindComment:
		// Author-only, independent of current board membership.
		if actor != res.CommentAuthor {
			return domain.Forbidden("not the comment author")
		}
	default:
		return domain.Forbidden("unknown resource kind")
	}
	return nil
}
