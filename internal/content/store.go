package content

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a content id resolves to nothing.
var ErrNotFound = errors.New("content not found")

// Content is one piece of educational video/audio material. The three
// counters are denormalized for fast display and kept approximately in
// sync via atomic increments alongside membership writes.
type Content struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	Duration      float64   `json:"duration"` // seconds
	VideoPath     string    `json:"-"`        // blob-store path, resolved to a URL at play time
	AudioPath     string    `json:"-"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	ViewCount     int       `json:"view_count"`
	LikeCount     int       `json:"like_count"`
	FavoriteCount int       `json:"favorite_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Store interface {
	Get(ctx context.Context, id string) (Content, error)
	// List returns contents for a category, or all when category is empty,
	// newest first.
	List(ctx context.Context, category string) ([]Content, error)
	// Search returns contents whose title or description contains the query,
	// case-insensitively, newest first. An empty query matches nothing.
	Search(ctx context.Context, query string) ([]Content, error)
	// IncrementViewCount atomically bumps the view counter and returns the
	// new value.
	IncrementViewCount(ctx context.Context, id string) (int, error)
}
