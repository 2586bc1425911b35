package domain

import "time"

// MaxBoardTitleLength bounds board titles.
const MaxBoardTitleLength = 100

// Board is a shared workspace owning tasks. The owner is fixed at creation
// and is implicitly a member for every authorization purpose; the members set
// does not need to duplicate it.
type Board struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOwner reports whether the user owns the board.
func (b Board) IsOwner(userID string) bool {
	return userID != "" && userID == b.OwnerID
}

// HasMember reports whether the user may collaborate on the board. The owner
// always counts as a member.
func (b Board) HasMember(userID string) bool {
	if userID == "" {
		return false
	}
	if userID == b.OwnerID {
		return true
	}
	for _, m := range b.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// BoardPatch carries a partial board update. A non-nil Members slice
// replaces the whole membership set; the owner is implicitly retained
// regardless of its presence in the slice.
type BoardPatch struct {
	Title   *string
	Members *[]string
}

// NormalizeMembers deduplicates the given member set and strips the owner,
// who is an implicit member and must never appear in (or be removable from)
// the stored set.
func NormalizeMembers(ownerID string, members []string) []string {
	out := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m == "" || m == ownerID {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
