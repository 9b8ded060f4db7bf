package social

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Counters is the slice of the content store the in-memory reaction store
// needs to keep denormalized counts in step.
type Counters interface {
	AdjustCount(ctx context.Context, id, kind string, delta int) (int, error)
}

// MemoryStore is the in-memory Store used in tests and local runs. Each
// membership keeps its creation time so listings can mirror the production
// created_at ordering.
type MemoryStore struct {
	mu       sync.Mutex
	members  map[string]time.Time
	counters Counters
}

func NewMemoryStore(counters Counters) *MemoryStore {
	return &MemoryStore{
		members:  make(map[string]time.Time),
		counters: counters,
	}
}

func memberKey(userID, contentID, kind string) string {
	return userID + "/" + contentID + "/" + kind
}

// Toggle flips membership and the denormalized counter under one lock, so a
// counter failure leaves the membership untouched, like the production
// transaction rolling back.
func (s *MemoryStore) Toggle(ctx context.Context, userID, contentID, kind string) (bool, int, error) {
	if _, err := counterColumn(kind); err != nil {
		return false, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(userID, contentID, kind)
	_, present := s.members[key]
	active := !present

	delta := 1
	if !active {
		delta = -1
	}
	count, err := s.counters.AdjustCount(ctx, contentID, kind, delta)
	if err != nil {
		return false, 0, err
	}

	if present {
		delete(s.members, key)
	} else {
		s.members[key] = time.Now().UTC()
	}
	return active, count, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID, kind string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := userID + "/"
	suffix := "/" + kind
	type entry struct {
		contentID string
		at        time.Time
	}
	var entries []entry
	for key, at := range s.members {
		if strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix) {
			entries = append(entries, entry{
				contentID: strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix),
				at:        at,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.contentID
	}
	return out, nil
}

func (s *MemoryStore) Has(_ context.Context, userID, contentID, kind string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[memberKey(userID, contentID, kind)]
	return ok, nil
}
