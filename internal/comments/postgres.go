package comments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists comments in Postgres. It reads the same comments
// table the completion transaction writes into.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, c Comment) (Comment, error) {
	const q = `INSERT INTO comments (id, user_id, content_id, body, created_at)
	           VALUES (gen_random_uuid(), $1, $2, $3, now())
	           RETURNING id, content_id, user_id, body, created_at, deleted_at`
	row := s.pool.QueryRow(ctx, q, c.UserID, c.ContentID, c.Body)
	var out Comment
	err := row.Scan(&out.ID, &out.ContentID, &out.UserID, &out.Body, &out.CreatedAt, &out.DeletedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByContent(ctx context.Context, contentID string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const q = `SELECT id, content_id, user_id, body, created_at, deleted_at
	           FROM comments
	           WHERE content_id = $1
	           ORDER BY created_at DESC, id DESC
	           LIMIT $2`
	rows, err := s.pool.Query(ctx, q, contentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ContentID, &c.UserID, &c.Body, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("list comments: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SoftDelete(ctx context.Context, commentID, userID string) error {
	const q = `UPDATE comments
	           SET body = '[deleted]', deleted_at = now()
	           WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	ct, err := s.pool.Exec(ctx, q, commentID, userID)
	if err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}
