package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production Postgres-backed implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const contentColumns = `id, title, description, category, duration_seconds,
	video_path, audio_path, thumbnail_url, view_count, like_count, favorite_count,
	created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (Content, error) {
	q := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	c, err := scanContent(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("get content: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, category string) ([]Content, error) {
	q := `SELECT ` + contentColumns + ` FROM contents`
	args := []any{}
	if category != "" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("list contents: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]Content, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	q := `SELECT ` + contentColumns + ` FROM contents
		WHERE title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("search contents: %w", err)
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("search contents: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) IncrementViewCount(ctx context.Context, id string) (int, error) {
	const q = `UPDATE contents SET view_count = view_count + 1, updated_at = now()
	           WHERE id = $1 RETURNING view_count`
	var n int
	if err := s.pool.QueryRow(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment view count: %w", err)
	}
	return n, nil
}

func scanContent(row pgx.Row) (Content, error) {
	var c Content
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Category, &c.Duration,
		&c.VideoPath, &c.AudioPath, &c.ThumbnailURL,
		&c.ViewCount, &c.LikeCount, &c.FavoriteCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}
