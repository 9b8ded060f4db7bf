package comments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory implementation for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[string]Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{comments: make(map[string]Comment)}
}

func (s *MemoryStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.DeletedAt = nil
	s.comments[c.ID] = c
	return c, nil
}

// Add satisfies progress.CommentWriter: the completion transaction mirrors
// the completion comment into the comment feed through this.
func (s *MemoryStore) Add(ctx context.Context, userID, contentID, body string, createdAt time.Time) error {
	_, err := s.Create(ctx, Comment{UserID: userID, ContentID: contentID, Body: body, CreatedAt: createdAt})
	return err
}

func (s *MemoryStore) ListByContent(_ context.Context, contentID string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	s.mu.RLock()
	var out []Comment
	for _, c := range s.comments {
		if c.ContentID == contentID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, commentID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.UserID != userID || c.DeletedAt != nil {
		return ErrNotFoundOrForbidden
	}
	c.Body = "[deleted]"
	now := time.Now().UTC()
	c.DeletedAt = &now
	s.comments[commentID] = c
	return nil
}
