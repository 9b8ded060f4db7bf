package identity

import (
	"context"
	"errors"
	"time"

	"github.com/example/edu-platform/internal/platform/auth"
)

// Account statuses. New registrations start pending and stay locked out
// until a manager approves them; inactive accounts are locked out again.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	ErrNotFound = errors.New("identity: user not found")
	ErrConflict = errors.New("identity: user already exists")
)

// User is one account. EmployeeID is the company-issued identifier users
// can log in with instead of their email.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	EmployeeID   string    `json:"employee_id"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateUserParams struct {
	Email        string
	Name         string
	EmployeeID   string
	PasswordHash string
}

// Store persists accounts. FindByLogin matches either email or employee ID.
type Store interface {
	CreateUser(ctx context.Context, p CreateUserParams) (User, error)
	FindByLogin(ctx context.Context, login string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	SetStatus(ctx context.Context, id, status string) error
}
