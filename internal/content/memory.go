package content

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-memory implementation for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	contents map[string]Content
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contents: make(map[string]Content)}
}

// Put inserts or replaces a content entry. Test seeding helper.
func (s *MemoryStore) Put(c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.contents[c.ID] = c
}

func (s *MemoryStore) Get(_ context.Context, id string) (Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[id]
	if !ok {
		return Content{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) List(_ context.Context, category string) ([]Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Content
	for _, c := range s.contents {
		if category == "" || c.Category == category {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, query string) ([]Content, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Content
	for _, c := range s.contents {
		if strings.Contains(strings.ToLower(c.Title), query) ||
			strings.Contains(strings.ToLower(c.Description), query) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) IncrementViewCount(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok {
		return 0, ErrNotFound
	}
	c.ViewCount++
	c.UpdatedAt = time.Now().UTC()
	s.contents[id] = c
	return c.ViewCount, nil
}

// AdjustCount applies a like/favorite counter delta. Used by the social
// membership stores to keep denormalized counters in step.
func (s *MemoryStore) AdjustCount(_ context.Context, id, kind string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok {
		return 0, ErrNotFound
	}
	var n int
	switch kind {
	case "like":
		c.LikeCount += delta
		n = c.LikeCount
	case "favorite":
		c.FavoriteCount += delta
		n = c.FavoriteCount
	}
	s.contents[id] = c
	return n, nil
}

// Meta satisfies progress.MetaFunc when bound as s.Meta.
func (s *MemoryStore) Meta(contentID string) (string, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[contentID]
	if !ok {
		return "", "", false
	}
	return c.Title, c.ThumbnailURL, true
}
