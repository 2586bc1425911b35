package domain

import "time"

// Status is the workflow state of a task.
type Status string

const (
	StatusToDo       Status = "to_do"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// ParseStatus validates a status value, defaulting empty input to StatusToDo.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusToDo, nil
	case StatusToDo, StatusInProgress, StatusReview, StatusDone:
		return Status(s), nil
	}
	return "", Invalid("status", "must be one of to_do, in_progress, review, done")
}

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a priority value, defaulting empty input to
// PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	}
	return "", Invalid("priority", "must be one of low, medium, high")
}

// MaxTaskTitleLength bounds task titles.
const MaxTaskTitleLength = 100

// Task is a unit of work belonging to exactly one board. BoardID and
// CreatedBy are fixed at creation; AssigneeID and ReviewerID are empty when
// unset and must reference a board member at the moment they are written.
type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"board"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assignee,omitempty"`
	ReviewerID  string     `json:"reviewer,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries a partial task update. Nil fields are left unchanged; an
// empty string for AssigneeID or ReviewerID clears the reference. The board
// reference is deliberately absent: tasks cannot move between boards.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	AssigneeID   *string
	ReviewerID   *string
	DueDate      *time.Time
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.AssigneeID == nil && p.ReviewerID == nil &&
		p.DueDate == nil && !p.ClearDueDate
}
