package progress

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no watch record exists for a (user, content) pair.
var ErrNotFound = errors.New("watch record not found")

// ErrAlreadyCompleted is returned by CompleteContent when the record is
// already completed. A record completes at most once.
var ErrAlreadyCompleted = errors.New("watch record already completed")

// WatchRecord is one user's watch state for one piece of content. There is
// at most one record per (UserID, ContentID).
type WatchRecord struct {
	UserID            string     `json:"user_id"`
	ContentID         string     `json:"content_id"`
	WatchedTime       float64    `json:"watched_time"`     // furthest playback position reached, seconds
	ProgressPercent   int        `json:"progress_percent"` // round(100 * watchedTime / duration) at last save
	Completed         bool       `json:"completed"`
	CompletionComment string     `json:"completion_comment,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	LastAccessAt      time.Time  `json:"last_access_at"`
	Category          string     `json:"category,omitempty"` // denormalized from content at completion time
}

// ListItem is a watch record joined with the content fields the learning
// screens display.
type ListItem struct {
	WatchRecord
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CompleteParams is everything the completion transaction writes.
type CompleteParams struct {
	UserID    string
	ContentID string
	Comment   string
	Category  string
}

// Store persists watch records.
//
// SaveProgress is monotonic: a write with a smaller watched time than the
// stored value is silently discarded, so late-arriving out-of-order writes
// can never regress a record. ResetProgress is the one sanctioned decrease,
// used by the explicit start-from-beginning flow.
type Store interface {
	// GetProgress returns the persisted watched time, 0 when no record exists.
	GetProgress(ctx context.Context, userID, contentID string) (float64, error)
	// GetRecord returns the full record, ErrNotFound when absent.
	GetRecord(ctx context.Context, userID, contentID string) (WatchRecord, error)
	// SaveProgress upserts watched time and percent. Never touches the
	// completion fields, never decreases a stored watched time.
	SaveProgress(ctx context.Context, userID, contentID string, watchedTime float64, percent int) error
	// ResetProgress sets watched time back to zero for an existing record.
	ResetProgress(ctx context.Context, userID, contentID string) error
	// CompleteContent marks the record completed, stores the completion
	// comment and denormalized category, and creates the standalone Comment
	// entity in the same transaction. Returns the completion timestamp, or
	// ErrAlreadyCompleted when a concurrent or earlier call won.
	CompleteContent(ctx context.Context, p CompleteParams) (time.Time, error)
	// ListInProgress returns not-yet-completed records joined with content
	// title/thumbnail, most recently accessed first.
	ListInProgress(ctx context.Context, userID string) ([]ListItem, error)
	// ListCompleted returns completed records joined with content
	// title/thumbnail, most recently completed first.
	ListCompleted(ctx context.Context, userID string) ([]ListItem, error)
}
