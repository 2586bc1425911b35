// Package storage persists boards, tasks and comments in Postgres and
// enforces authorization on every operation. Mutations that depend on a
// prior read (membership check before a task write, ownership check before a
// cascade delete) run inside a single snapshot-isolated transaction so a
// concurrent membership change cannot interleave between check and write.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"kanban-api/domain"
	"kanban-api/policy"
)

// Store provides access to the relational resource store.
type Store struct {
	db *sql.DB
}

// New creates a Store over the given database handle. The handle is expected
// to use the pgx stdlib driver.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Ping reports store reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a repeatable-read transaction. Serialization
// failures are retried once before surfacing.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	for attempt := 0; ; attempt++ {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
		if err != nil {
			return err
		}
		if err = fn(tx); err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
		if err != nil && attempt == 0 && isSerializationFailure(err) {
			continue
		}
		return err
	}
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// --- Boards ---

const boardColumns = `id, title, owner_id, created_at, updated_at`

func scanBoard(row interface{ Scan(...any) error }) (domain.Board, error) {
	var b domain.Board
	err := row.Scan(&b.ID, &b.Title, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, domain.ErrNotFound
	}
	return b, err
}

func getBoard(ctx context.Context, q querier, id string) (domain.Board, error) {
	b, err := scanBoard(q.QueryRowContext(ctx, `select `+boardColumns+` from boards where id=$1`, id))
	if err != nil {
		return domain.Board{}, err
	}
	b.Members, err = boardMembers(ctx, q, id)
	return b, err
}

func boardMembers(ctx context.Context, q querier, boardID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `select user_id from board_members where board_id=$1 order by user_id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateBoard creates a board owned by the actor.
func (s *Store) CreateBoard(ctx context.Context, actor, title string) (domain.Board, error) {
	if actor == "" {
		return domain.Board{}, domain.ErrUnauthenticated
	}
	b, err := scanBoard(s.db.QueryRowContext(ctx,
		`insert into boards(id, title, owner_id) values($1,$2,$3) returning `+boardColumns,
		uuid.NewString(), title, actor))
	if err != nil {
		return domain.Board{}, err
	}
	b.Members = []string{}
	return b, nil
}

// GetBoard returns the board when the actor is its owner or a member.
func (s *Store) GetBoard(ctx context.Context, actor, id string) (domain.Board, error) {
	b, err := getBoard(ctx, s.db, id)
	if err != nil {
		return domain.Board{}, err
	}
	if err := policy.Decide(actor, policy.ActionRead, policy.BoardResource(b)); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// UpdateBoard applies the patch when the actor is the owner or a member.
func (s *Store) UpdateBoard(ctx context.Context, actor, id string, patch domain.BoardPatch) (domain.Board, error) {
	var out domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := getBoard(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := policy.Decide(actor, policy.ActionWrite, policy.BoardResource(b)); err != nil {
			return err
		}
		if patch.Title != nil {
			if _, err := tx.ExecContext(ctx, `update boards set title=$1, updated_at=now() where id=$2`, *patch.Title, id); err != nil {
				return err
			}
		}
		if patch.Members != nil {
			members := domain.NormalizeMembers(b.OwnerID, *patch.Members)
			if _, err := tx.ExecContext(ctx, `delete from board_members where board_id=$1`, id); err != nil {
				return err
			}
			for _, m := range members {
				if _, err := tx.ExecContext(ctx, `insert into board_members(board_id, user_id) values($1,$2)`, id, m); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, `update boards set updated_at=now() where id=$1`, id); err != nil {
				return err
			}
		}
		out, err = getBoard(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Board{}, err
	}
	return out, nil
}

// DeleteBoard removes the board and, by cascade, all its tasks and their
// comments. Owner only.
func (s *Store) DeleteBoard(ctx context.Context, actor, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := getBoard(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := policy.Decide(actor, policy.ActionDelete, policy.BoardResource(b)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `delete from boards where id=$1`, id)
		return err
	})
}

// ListBoards returns the actor's visibility scope: boards they own plus
// boards containing at least one task assigned to them. This is deliberately
// broader than the owner-or-member rule used for object-level access and the
// two must not be collapsed.
func (s *Store) ListBoards(ctx context.Context, actor string) ([]domain.Board, error) {
	if actor == "" {
		return nil, domain.ErrUnauthenticated
	}
	rows, err := s.db.QueryContext(ctx, `
		select b.id, b.title, b.owner_id, b.created_at, b.updated_at, m.user_id
		from boards b
		left join board_members m on m.board_id = b.id
		where b.owner_id = $1
		   or exists (select 1 from tasks t where t.board_id = b.id and t.assignee_id = $1)
		order by b.created_at, b.id, m.user_id`, actor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := []domain.Board{}
	index := map[string]int{}
	for rows.Next() {
		var b domain.Board
		var member sql.NullString
		if err := rows.Scan(&b.ID, &b.Title, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt, &member); err != nil {
			return nil, err
		}
		i, ok := index[b.ID]
		if !ok {
			b.Members = []string{}
			i = len(boards)
			index[b.ID] = i
			boards = append(boards, b)
		}
		if member.Valid {
			boards[i].Members = append(boards[i].Members, member.String)
		}
	}
	return boards, rows.Err()
}

// --- Tasks ---

const taskColumns = `id, board_id, title, description, status, priority,
	coalesce(assignee_id,''), coalesce(reviewer_id,''), created_by, due_date, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.BoardID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssigneeID, &t.ReviewerID, &t.CreatedBy, &due, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}

func getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	return scanTask(q.QueryRowContext(ctx, `select `+taskColumns+` from tasks where id=$1`, id))
}

// boardForTask resolves a task's ownership chain in one step.
func boardForTask(ctx context.Context, q querier, t domain.Task) (domain.Board, error) {
	return getBoard(ctx, q, t.BoardID)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// checkTaskWrite gates a task create or update. Reference validation runs
// before the actor's own write permission: a bad assignee or reviewer reports
// as invalid input even when the actor would also be denied. A missing actor
// still wins over everything. Nil references are left unvalidated.
func checkTaskWrite(actor string, b domain.Board, res policy.Resource, assignee, reviewer *string) error {
	if actor == "" {
		return domain.ErrUnauthenticated
	}
	if assignee != nil {
		if err := policy.ValidateMemberRef("assignee", b, *assignee); err != nil {
			return err
		}
	}
	if reviewer != nil {
		if err := policy.ValidateMemberRef("reviewer", b, *reviewer); err != nil {
			return err
		}
	}
	return policy.Decide(actor, policy.ActionWrite, res)
}

// CreateTask creates a task on the board. The actor must be the board's
// owner or a member and becomes created_by; assignee and reviewer references
// are validated against the board inside the same transaction.
func (s *Store) CreateTask(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error) {
	var out domain.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := getBoard(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if err := checkTaskWrite(actor, b, policy.BoardResource(b), &draft.AssigneeID, &draft.ReviewerID); err != nil {
			return err
		}
		out, err = scanTask(tx.QueryRowContext(ctx, `
			insert into tasks(id, board_id, title, description, status, priority, assignee_id, reviewer_id, created_by, due_date)
			values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			returning `+taskColumns,
			uuid.NewString(), boardID, draft.Title, draft.Description, draft.Status, draft.Priority,
			nullable(draft.AssigneeID), nullable(draft.ReviewerID), actor, draft.DueDate))
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// GetTask returns the task when the actor may read its board.
func (s *Store) GetTask(ctx context.Context, actor, id string) (domain.Task, error) {
	t, err := getTask(ctx, s.db, id)
	if err != nil {
		return domain.Task{}, err
	}
	b, err := boardForTask(ctx, s.db, t)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.Decide(actor, policy.ActionRead, policy.TaskResource(t, b)); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTask applies the patch. Membership references are re-validated
// against the task's existing board; the board reference itself never
// changes.
func (s *Store) UpdateTask(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error) {
	var out domain.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		b, err := boardForTask(ctx, tx, t)
		if err != nil {
			return err
		}
		if err := checkTaskWrite(actor, b, policy.TaskResource(t, b), patch.AssigneeID, patch.ReviewerID); err != nil {
			return err
		}
		if patch.Empty() {
			out = t
			return nil
		}
		set := []string{"updated_at=now()"}
		args := []any{}
		idx := 1
		add := func(col string, val any) {
			set = append(set, fmt.Sprintf("%s=$%d", col, idx))
			args = append(args, val)
			idx++
		}
		if patch.Title != nil {
			add("title", *patch.Title)
		}
		if patch.Description != nil {
			add("description", *patch.Description)
		}
		if patch.Status != nil {
			add("status", *patch.Status)
		}
		if patch.Priority != nil {
			add("priority", *patch.Priority)
		}
		if patch.AssigneeID != nil {
			add("assignee_id", nullable(*patch.AssigneeID))
		}
		if patch.ReviewerID != nil {
			add("reviewer_id", nullable(*patch.ReviewerID))
		}
		if patch.ClearDueDate {
			set = append(set, "due_date=null")
		} else if patch.DueDate != nil {
			add("due_date", *patch.DueDate)
		}
		q := fmt.Sprintf("update tasks set %s where id=$%d", joinComma(set), idx)
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
		out, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// DeleteTask removes the task and, by cascade, its comments. Task creator or
// board owner only.
func (s *Store) DeleteTask(ctx context.Context, actor, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		b, err := boardForTask(ctx, tx, t)
		if err != nil {
			return err
		}
		if err := policy.Decide(actor, policy.ActionDelete, policy.TaskResource(t, b)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `delete from tasks where id=$1`, id)
		return err
	})
}

func listTasks(ctx context.Context, q querier, where string, args ...any) ([]domain.Task, error) {
	rows, err := q.QueryContext(ctx, `select `+taskColumns+` from tasks where `+where+` order by created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListTasksForBoard returns the board's tasks. The actor must pass the board
// read rule; a non-member gets a denial, not an empty list.
func (s *Store) ListTasksForBoard(ctx context.Context, actor, boardID string) ([]domain.Task, error) {
	b, err := getBoard(ctx, s.db, boardID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, policy.ActionRead, policy.BoardResource(b)); err != nil {
		return nil, err
	}
	return listTasks(ctx, s.db, `board_id=$1`, boardID)
}

// ListTasksAssigned returns tasks assigned to the actor with no membership
// filter: an actor sees their assignments even on boards they no longer
// belong to.
func (s *Store) ListTasksAssigned(ctx context.Context, actor string) ([]domain.Task, error) {
	if actor == "" {
		return nil, domain.ErrUnauthenticated
	}
	return listTasks(ctx, s.db, `assignee_id=$1`, actor)
}

// ListTasksReviewing returns tasks the actor reviews, with no membership
// filter.
func (s *Store) ListTasksReviewing(ctx context.Context, actor string) ([]domain.Task, error) {
	if actor == "" {
		return nil, domain.ErrUnauthenticated
	}
	return listTasks(ctx, s.db, `reviewer_id=$1`, actor)
}

// --- Comments ---

const commentColumns = `id, task_id, author_id, content, created_at`

func scanComment(row interface{ Scan(...any) error }) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, err
}

// CreateComment creates a comment on the task. The actor must be the task's
// board owner or a member and always becomes the author.
func (s *Store) CreateComment(ctx context.Context, actor, taskID, content string) (domain.Comment, error) {
	var out domain.Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		b, err := boardForTask(ctx, tx, t)
		if err != nil {
			return err
		}
		if err := policy.Decide(actor, policy.ActionWrite, policy.TaskResource(t, b)); err != nil {
			return err
		}
		out, err = scanComment(tx.QueryRowContext(ctx,
			`insert into comments(id, task_id, author_id, content) values($1,$2,$3,$4) returning `+commentColumns,
			uuid.NewString(), taskID, actor, content))
		return err
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return out, nil
}

// DeleteComment removes the comment. Author only, regardless of the actor's
// current board role.
func (s *Store) DeleteComment(ctx context.Context, actor, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := scanComment(tx.QueryRowContext(ctx, `select `+commentColumns+` from comments where id=$1`, id))
		if err != nil {
			return err
		}
		t, err := getTask(ctx, tx, c.TaskID)
		if err != nil {
			return err
		}
		b, err := boardForTask(ctx, tx, t)
		if err != nil {
			return err
		}
		if err := policy.Decide(actor, policy.ActionDelete, policy.CommentResource(c, b)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `delete from comments where id=$1`, id)
		return err
	})
}

// ListCommentsForTask returns the task's comments under the board read rule.
func (s *Store) ListCommentsForTask(ctx context.Context, actor, taskID string) ([]domain.Comment, error) {
	t, err := getTask(ctx, s.db, taskID)
	if err != nil {
		return nil, err
	}
	b, err := boardForTask(ctx, s.db, t)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, policy.ActionRead, policy.TaskResource(t, b)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `select `+commentColumns+` from comments where task_id=$1 order by created_at, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// --- Directory integration ---

// PurgeUserRefs handles a directory-level user deletion: nullable references
// (assignee, reviewer) are cleared, but the purge is refused while the user
// holds non-nullable references as a board owner, task creator or comment
// author. Returns the number of cleared references.
func (s *Store) PurgeUserRefs(ctx context.Context, userID string) (int64, error) {
	var cleared int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var ref domain.UserReferencedError
		err := tx.QueryRowContext(ctx, `
			select
				(select count(*) from boards where owner_id=$1),
				(select count(*) from tasks where created_by=$1),
				(select count(*) from comments where author_id=$1)`, userID).
			Scan(&ref.Boards, &ref.Tasks, &ref.Comments)
		if err != nil {
			return err
		}
		if ref.Boards > 0 || ref.Tasks > 0 || ref.Comments > 0 {
			return &ref
		}
		cleared = 0
		res, err := tx.ExecContext(ctx, `update tasks set assignee_id=null, updated_at=now() where assignee_id=$1`, userID)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		cleared += n
		res, err = tx.ExecContext(ctx, `update tasks set reviewer_id=null, updated_at=now() where reviewer_id=$1`, userID)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		cleared += n
		_, err = tx.ExecContext(ctx, `delete from board_members where user_id=$1`, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}
