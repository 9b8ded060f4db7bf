package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MetaFunc resolves the denormalized content fields list items carry.
// Returning ok=false drops the record from listings, mirroring the
// production join against the contents table.
type MetaFunc func(contentID string) (title, thumbnailURL string, ok bool)

// CommentWriter receives the standalone comment created at completion time.
type CommentWriter interface {
	Add(ctx context.Context, userID, contentID, body string, createdAt time.Time) error
}

// MemoryStore is the in-memory implementation used by tests and local
// development. Semantics match PostgresStore, including the monotonic
// watched-time guard.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]WatchRecord // userID+"/"+contentID

	meta     MetaFunc
	comments CommentWriter
}

func NewMemoryStore(meta MetaFunc, comments CommentWriter) *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]WatchRecord),
		meta:     meta,
		comments: comments,
	}
}

func key(userID, contentID string) string { return userID + "/" + contentID }

func (s *MemoryStore) GetProgress(_ context.Context, userID, contentID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key(userID, contentID)].WatchedTime, nil
}

func (s *MemoryStore) GetRecord(_ context.Context, userID, contentID string) (WatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key(userID, contentID)]
	if !ok {
		return WatchRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) SaveProgress(_ context.Context, userID, contentID string, watchedTime float64, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, contentID)
	rec, ok := s.records[k]
	if ok && rec.WatchedTime > watchedTime {
		// Stale write; discard.
		return nil
	}
	if !ok {
		rec = WatchRecord{UserID: userID, ContentID: contentID}
	}
	rec.WatchedTime = watchedTime
	rec.ProgressPercent = percent
	rec.LastAccessAt = time.Now().UTC()
	s.records[k] = rec
	return nil
}

func (s *MemoryStore) ResetProgress(_ context.Context, userID, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, contentID)
	rec, ok := s.records[k]
	if !ok {
		return nil
	}
	rec.WatchedTime = 0
	rec.ProgressPercent = 0
	rec.LastAccessAt = time.Now().UTC()
	s.records[k] = rec
	return nil
}

// CompleteContent holds the lock across the completed check, the record
// update, and the comment write, so racing callers see exactly one winner
// and exactly one comment, like the production transaction.
func (s *MemoryStore) CompleteContent(ctx context.Context, p CompleteParams) (time.Time, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(p.UserID, p.ContentID)
	rec, ok := s.records[k]
	if ok && rec.Completed {
		return time.Time{}, ErrAlreadyCompleted
	}
	if !ok {
		rec = WatchRecord{UserID: p.UserID, ContentID: p.ContentID}
	}

	if s.comments != nil {
		if err := s.comments.Add(ctx, p.UserID, p.ContentID, p.Comment, now); err != nil {
			return time.Time{}, err
		}
	}

	rec.ProgressPercent = 100
	rec.Completed = true
	rec.CompletionComment = p.Comment
	rec.CompletedAt = &now
	rec.LastAccessAt = now
	rec.Category = p.Category
	s.records[k] = rec
	return now, nil
}

func (s *MemoryStore) ListInProgress(_ context.Context, userID string) ([]ListItem, error) {
	items := s.collect(userID, false)
	sort.Slice(items, func(i, j int) bool {
		return items[i].LastAccessAt.After(items[j].LastAccessAt)
	})
	return items, nil
}

func (s *MemoryStore) ListCompleted(_ context.Context, userID string) ([]ListItem, error) {
	items := s.collect(userID, true)
	sort.Slice(items, func(i, j int) bool {
		return items[i].CompletedAt.After(*items[j].CompletedAt)
	})
	return items, nil
}

func (s *MemoryStore) collect(userID string, completed bool) []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ListItem
	for _, rec := range s.records {
		if rec.UserID != userID || rec.Completed != completed {
			continue
		}
		it := ListItem{WatchRecord: rec}
		if s.meta != nil {
			title, thumb, ok := s.meta(rec.ContentID)
			if !ok {
				continue
			}
			it.Title = title
			it.ThumbnailURL = thumb
		}
		out = append(out, it)
	}
	return out
}
