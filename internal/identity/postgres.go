package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/edu-platform/internal/platform/auth"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = `id::text, email, name, employee_id, password_hash, role, status, created_at`

func (s *PostgresStore) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	id := uuid.New()
	q := `
INSERT INTO users (id, email, name, employee_id, password_hash, role, status)
VALUES ($1, $2, $3, $4, $5, 'user', 'pending')
RETURNING ` + userColumns + `;
`
	u, err := scanUser(s.pool.QueryRow(ctx, q, id, p.Email, p.Name, p.EmployeeID, p.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) FindByLogin(ctx context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return User{}, ErrNotFound
	}
	q := `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1) OR lower(employee_id) = lower($1)
LIMIT 1;
`
	u, err := scanUser(s.pool.QueryRow(ctx, q, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`
	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1;`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmployeeID, &u.PasswordHash, &role, &u.Status, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	u.Role = auth.ParseRole(role)
	return u, nil
}
