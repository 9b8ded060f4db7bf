package comments

import (
	"context"
	"errors"
	"time"
)

// ErrNotFoundOrForbidden is returned when a comment does not exist, is
// already deleted, or belongs to another user. The three cases are
// deliberately indistinguishable to the caller.
var ErrNotFoundOrForbidden = errors.New("comment not found or not owned by user")

// Comment is a single comment on a piece of content. Completion comments
// are stored here in addition to the watch record itself.
type Comment struct {
	ID        string     `json:"id"`
	ContentID string     `json:"content_id"`
	UserID    string     `json:"user_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Store defines the contract for comment persistence.
type Store interface {
	Create(ctx context.Context, c Comment) (Comment, error)
	// ListByContent returns comments for a content, newest first.
	// Soft-deleted comments appear with a redacted body.
	ListByContent(ctx context.Context, contentID string, limit int) ([]Comment, error)
	// SoftDelete redacts a comment. Author-only.
	SoftDelete(ctx context.Context, commentID, userID string) error
}
