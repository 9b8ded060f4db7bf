package social

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps reaction membership in the reactions table and the
// denormalized counters on contents, flipped together in one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func counterColumn(kind string) (string, error) {
	switch kind {
	case KindLike:
		return "like_count", nil
	case KindFavorite:
		return "favorite_count", nil
	}
	return "", fmt.Errorf("social: unknown reaction kind %q", kind)
}

func (s *PostgresStore) Toggle(ctx context.Context, userID, contentID, kind string) (bool, int, error) {
	col, err := counterColumn(kind)
	if err != nil {
		return false, 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin toggle tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM reactions
		WHERE user_id = $1 AND content_id = $2 AND kind = $3`,
		userID, contentID, kind)
	if err != nil {
		return false, 0, fmt.Errorf("delete reaction: %w", err)
	}

	active := tag.RowsAffected() == 0
	delta := -1
	if active {
		delta = 1
		_, err = tx.Exec(ctx, `
			INSERT INTO reactions (user_id, content_id, kind, created_at)
			VALUES ($1, $2, $3, now())`,
			userID, contentID, kind)
		if err != nil {
			return false, 0, fmt.Errorf("insert reaction: %w", err)
		}
	}

	var count int
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE contents SET %s = GREATEST(%s + $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING %s`, col, col, col),
		contentID, delta).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("update %s: %w", col, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit toggle tx: %w", err)
	}
	return active, count, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID, kind string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT content_id FROM reactions
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC`,
		userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list reactions: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Has(ctx context.Context, userID, contentID, kind string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reactions
			WHERE user_id = $1 AND content_id = $2 AND kind = $3
		)`, userID, contentID, kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reaction: %w", err)
	}
	return exists, nil
}
