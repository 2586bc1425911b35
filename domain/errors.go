package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a referenced board, task or comment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated reports that no valid actor was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ForbiddenError is returned when an authenticated actor fails an
// authorization check. The reason names the missing role ("not a member of
// the board", "not the owner", ...).
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// Forbidden builds a ForbiddenError with the given reason.
func Forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

// ValidationError reports a structurally invalid payload: a missing required
// field, a malformed enum value, or an assignee/reviewer that is not a board
// member.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UserReferencedError blocks directory-level deletion of a user that is still
// a non-nullable reference: a board owner, a task creator or a comment author.
type UserReferencedError struct {
	Boards   int
	Tasks    int
	Comments int
}

func (e *UserReferencedError) Error() string {
	return fmt.Sprintf("user still referenced: owns %d boards, created %d tasks, authored %d comments",
		e.Boards, e.Tasks, e.Comments)
}
