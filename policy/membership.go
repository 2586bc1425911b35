package policy

import "kanban-api/domain"

// ValidateMemberRef checks that a candidate assignee or reviewer reference
// belongs to the board's owner∪members set. An empty candidate is always
// valid: tasks may have no assignee or reviewer.
//
// The board must be the target task's own board, loaded inside the same
// transaction as the write that stores the reference, so a concurrent
// membership change cannot slip between the check and the write.
func ValidateMemberRef(field string, b domain.Board, candidate string) error {
	if candidate == "" {
		return nil
	}
	if !b.HasMember(candidate) {
		return domain.Invalid(field, "user is not a member of the board")
	}
	return nil
}
