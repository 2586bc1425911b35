package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

// Backend is the store surface the cache wraps.
type Backend interface {
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

// Cache wraps a store with redis-backed caching of the per-actor visibility
// lists (visible boards, assigned tasks, reviewing tasks). Listings only
// need read-committed consistency, so TTL-bounded staleness is acceptable;
// mutations evict the entries of the actors they are known to affect,
// including references captured from the pre-image of a changed or deleted
// task, and the TTL covers the rest.
type Cache struct {
	Backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided redis client and TTL.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Backend: base, redis: client, ttl: ttl}
}

func boardsCacheKey(userID string) string    { return "scope:boards:" + userID }
func assignedCacheKey(userID string) string  { return "scope:assigned:" + userID }
func reviewingCacheKey(userID string) string { return "scope:reviewing:" + userID }

// ListBoards serves the actor's board scope from cache when possible.
func (c *Cache) ListBoards(ctx context.Context, actor string) ([]domain.Board, error) {
	key := boardsCacheKey(actor)
	var cached []domain.Board
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	boards, err := c.Backend.ListBoards(ctx, actor)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, boards)
	return boards, nil
}

// ListTasksAssigned serves the actor's assigned tasks from cache when
// possible.
func (c *Cache) ListTasksAssigned(ctx context.Context, actor string) ([]domain.Task, error) {
	key := assignedCacheKey(actor)
	var cached []domain.Task
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	tasks, err := c.Backend.ListTasksAssigned(ctx, actor)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tasks)
	return tasks, nil
}

// ListTasksReviewing serves the actor's reviewing tasks from cache when
// possible.
func (c *Cache) ListTasksReviewing(ctx context.Context, actor string) ([]domain.Task, error) {
	key := reviewingCacheKey(actor)
	var cached []domain.Task
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	tasks, err := c.Backend.ListTasksReviewing(ctx, actor)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) CreateBoard(ctx context.Context, actor, title string) (domain.Board, error) {
	b, err := c.Backend.CreateBoard(ctx, actor, title)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, actor)
	return b, nil
}

func (c *Cache) UpdateBoard(ctx context.Context, actor, id string, patch domain.BoardPatch) (domain.Board, error) {
	b, err := c.Backend.UpdateBoard(ctx, actor, id, patch)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, actor, b.OwnerID)
	return b, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, actor, id string) error {
	// Capture the refs of the tasks about to cascade; best effort, the TTL
	// covers a failed lookup.
	affected := []string{actor}
	if tasks, err := c.Backend.ListTasksForBoard(ctx, actor, id); err == nil {
		for _, t := range tasks {
			affected = append(affected, t.AssigneeID, t.ReviewerID)
		}
	}
	if err := c.Backend.DeleteBoard(ctx, actor, id); err != nil {
		return err
	}
	c.evict(ctx, affected...)
	return nil
}

func (c *Cache) CreateTask(ctx context.Context, actor, boardID string, draft domain.Task) (domain.Task, error) {
	t, err := c.Backend.CreateTask(ctx, actor, boardID, draft)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, actor, t.AssigneeID, t.ReviewerID)
	return t, nil
}

func (c *Cache) UpdateTask(ctx context.Context, actor, id string, patch domain.TaskPatch) (domain.Task, error) {
	var prev domain.Task
	if p, err := c.Backend.GetTask(ctx, actor, id); err == nil {
		prev = p
	}
	t, err := c.Backend.UpdateTask(ctx, actor, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	// A replaced assignee or reviewer loses the task from their lists, so
	// the pre-image refs are evicted alongside the new ones.
	c.evict(ctx, actor, prev.AssigneeID, prev.ReviewerID, t.AssigneeID, t.ReviewerID)
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, actor, id string) error {
	var prev domain.Task
	if p, err := c.Backend.GetTask(ctx, actor, id); err == nil {
		prev = p
	}
	if err := c.Backend.DeleteTask(ctx, actor, id); err != nil {
		return err
	}
	c.evict(ctx, actor, prev.AssigneeID, prev.ReviewerID)
	return nil
}

func (c *Cache) PurgeUserRefs(ctx context.Context, userID string) (int64, error) {
	n, err := c.Backend.PurgeUserRefs(ctx, userID)
	if err != nil {
		return 0, err
	}
	c.evict(ctx, userID)
	return n, nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, users ...string) {
	if c.redis == nil {
		return
	}
	keys := make([]string, 0, 3*len(users))
	seen := map[string]struct{}{}
	for _, u := range users {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		keys = append(keys, boardsCacheKey(u), assignedCacheKey(u), reviewingCacheKey(u))
	}
	if len(keys) == 0 {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}
