package domain

import "time"

// MaxCommentLength bounds comment content.
const MaxCommentLength = 1000

// Comment is an author-attributed note on a task. Comments are never edited:
// there is no updated_at and no update operation, only create and delete.
// The author is always the creating actor, never a client-supplied value.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task"`
	AuthorID  string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
