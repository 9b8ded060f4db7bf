package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production Postgres-backed implementation.
//
// learning_records has a composite primary key (user_id, content_id); the
// monotonic guard lives in the upsert's WHERE clause so concurrent or
// re-ordered writes resolve server-side.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetProgress(ctx context.Context, userID, contentID string) (float64, error) {
	const q = `SELECT watched_time FROM learning_records WHERE user_id = $1 AND content_id = $2`
	var watched float64
	err := s.pool.QueryRow(ctx, q, userID, contentID).Scan(&watched)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get progress: %w", err)
	}
	return watched, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, userID, contentID string) (WatchRecord, error) {
	const q = `SELECT user_id, content_id, watched_time, progress_percent, completed,
	                  COALESCE(completion_comment, ''), completed_at, last_access_at, COALESCE(category, '')
	           FROM learning_records WHERE user_id = $1 AND content_id = $2`
	var rec WatchRecord
	err := s.pool.QueryRow(ctx, q, userID, contentID).Scan(
		&rec.UserID, &rec.ContentID, &rec.WatchedTime, &rec.ProgressPercent, &rec.Completed,
		&rec.CompletionComment, &rec.CompletedAt, &rec.LastAccessAt, &rec.Category,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WatchRecord{}, ErrNotFound
		}
		return WatchRecord{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) SaveProgress(ctx context.Context, userID, contentID string, watchedTime float64, percent int) error {
	const q = `
INSERT INTO learning_records (user_id, content_id, watched_time, progress_percent, completed, last_access_at)
VALUES ($1, $2, $3, $4, false, $5)
ON CONFLICT (user_id, content_id)
DO UPDATE SET
  watched_time     = EXCLUDED.watched_time,
  progress_percent = EXCLUDED.progress_percent,
  last_access_at   = EXCLUDED.last_access_at
WHERE learning_records.watched_time <= EXCLUDED.watched_time`

	if _, err := s.pool.Exec(ctx, q, userID, contentID, watchedTime, percent, time.Now().UTC()); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetProgress(ctx context.Context, userID, contentID string) error {
	const q = `UPDATE learning_records
	           SET watched_time = 0, progress_percent = 0, last_access_at = $3
	           WHERE user_id = $1 AND content_id = $2`
	if _, err := s.pool.Exec(ctx, q, userID, contentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// CompleteContent writes the completion fields and the standalone comment
// row in one transaction, so the UI-visible completion is all-or-nothing.
// The upsert's WHERE clause makes completion first-writer-wins: a record
// that is already completed is left untouched and no second comment is
// written, however many callers race. The stored watched time is preserved,
// never clobbered by completion.
func (s *PostgresStore) CompleteContent(ctx context.Context, p CompleteParams) (time.Time, error) {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("complete content: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
INSERT INTO learning_records (user_id, content_id, watched_time, progress_percent, completed,
                              completion_comment, completed_at, last_access_at, category)
VALUES ($1, $2, 0, 100, true, $3, $4, $4, $5)
ON CONFLICT (user_id, content_id)
DO UPDATE SET
  progress_percent   = 100,
  completed          = true,
  completion_comment = EXCLUDED.completion_comment,
  completed_at       = EXCLUDED.completed_at,
  last_access_at     = EXCLUDED.last_access_at,
  category           = EXCLUDED.category
WHERE learning_records.completed = false`

	tag, err := tx.Exec(ctx, upsert, p.UserID, p.ContentID, p.Comment, now, p.Category)
	if err != nil {
		return time.Time{}, fmt.Errorf("complete content: upsert record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return time.Time{}, ErrAlreadyCompleted
	}

	const insertComment = `INSERT INTO comments (id, user_id, content_id, body, created_at)
	                       VALUES (gen_random_uuid(), $1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertComment, p.UserID, p.ContentID, p.Comment, now); err != nil {
		return time.Time{}, fmt.Errorf("complete content: insert comment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("complete content: commit: %w", err)
	}
	return now, nil
}

func (s *PostgresStore) ListInProgress(ctx context.Context, userID string) ([]ListItem, error) {
	const q = `
SELECT r.user_id, r.content_id, r.watched_time, r.progress_percent, r.completed,
       COALESCE(r.completion_comment, ''), r.completed_at, r.last_access_at, COALESCE(r.category, ''),
       c.title, c.thumbnail_url
FROM learning_records r
JOIN contents c ON c.id = r.content_id
WHERE r.user_id = $1 AND r.completed = false
ORDER BY r.last_access_at DESC`
	return s.queryItems(ctx, q, userID)
}

func (s *PostgresStore) ListCompleted(ctx context.Context, userID string) ([]ListItem, error) {
	const q = `
SELECT r.user_id, r.content_id, r.watched_time, r.progress_percent, r.completed,
       COALESCE(r.completion_comment, ''), r.completed_at, r.last_access_at, COALESCE(r.category, ''),
       c.title, c.thumbnail_url
FROM learning_records r
JOIN contents c ON c.id = r.content_id
WHERE r.user_id = $1 AND r.completed = true
ORDER BY r.completed_at DESC`
	return s.queryItems(ctx, q, userID)
}

func (s *PostgresStore) queryItems(ctx context.Context, q, userID string) ([]ListItem, error) {
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []ListItem
	for rows.Next() {
		var it ListItem
		if err := rows.Scan(
			&it.UserID, &it.ContentID, &it.WatchedTime, &it.ProgressPercent, &it.Completed,
			&it.CompletionComment, &it.CompletedAt, &it.LastAccessAt, &it.Category,
			&it.Title, &it.ThumbnailURL,
		); err != nil {
			return nil, fmt.Errorf("list records: scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
