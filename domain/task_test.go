package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestParseStatus(t *testing.T) {
	testCases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"", StatusToDo, true},
		{"to_do", StatusToDo, true},
		{"in_progress", StatusInProgress, true},
		{"review", StatusReview, true},
		{"done", StatusDone, true},
		{"archived", "", false},
		{"To Do", "", false},
	}
	for _, tc := range testCases {
		got, err := ParseStatus(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseStatus(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		var invalid *ValidationError
		if !errors.As(err, &invalid) {
			t.Fatalf("ParseStatus(%q): expected ValidationError, got %v", tc.in, err)
		}
	}
}

func TestParsePriority(t *testing.T) {
	testCases := []struct {
		in   string
		want Priority
		ok   bool
	}{
		{"", PriorityMedium, true},
		{"low", PriorityLow, true},
		{"medium", PriorityMedium, true},
		{"high", PriorityHigh, true},
		{"urgent", "", false},
	}
	for _, tc := range testCases {
		got, err := ParsePriority(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParsePriority(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParsePriority(%q): expected error", tc.in)
		}
	}
}

func TestTaskMarshalOmitsEmptyRefs(t *testing.T) {
	task := Task{ID: "t1", BoardID: "b1", Title: "Title", Status: StatusToDo, Priority: PriorityMedium, CreatedBy: "u1"}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	if strings.Contains(string(payload), "assignee") || strings.Contains(string(payload), "reviewer") {
		t.Fatalf("expected unset references to be omitted, got %s", payload)
	}
	if !strings.Contains(string(payload), "\"status\":\"to_do\"") {
		t.Fatalf("expected status field, got %s", payload)
	}
}

func TestBoardMembership(t *testing.T) {
	board := Board{ID: "b1", OwnerID: "owner", Members: []string{"alice", "bob"}}

	if !board.IsOwner("owner") || board.IsOwner("alice") || board.IsOwner("") {
		t.Fatal("unexpected IsOwner results")
	}
	// Owner is implicitly a member without being in the set.
	if !board.HasMember("owner") {
		t.Fatal("expected owner to count as member")
	}
	if !board.HasMember("alice") || !board.HasMember("bob") {
		t.Fatal("expected listed members to count")
	}
	if board.HasMember("carol") || board.HasMember("") {
		t.Fatal("expected non-members to be rejected")
	}
}

func TestNormalizeMembers(t *testing.T) {
	got := NormalizeMembers("owner", []string{"alice", "owner", "alice", "", "bob"})
	want := []string{"alice", "bob"}
	if len(got) != len(want) {
		t.Fatalf("unexpected members: %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected members: %#v", got)
		}
	}
}

func TestTaskPatchEmpty(t *testing.T) {
	if !(TaskPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
	title := "t"
	if (TaskPatch{Title: &title}).Empty() {
		t.Fatal("patch with title should not be empty")
	}
	if (TaskPatch{ClearDueDate: true}).Empty() {
		t.Fatal("patch clearing due date should not be empty")
	}
}
