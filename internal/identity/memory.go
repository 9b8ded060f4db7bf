package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/edu-platform/internal/platform/auth"
)

// MemoryStore is the in-memory Store used in tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) CreateUser(_ context.Context, p CreateUserParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, p.Email) || strings.EqualFold(u.EmployeeID, p.EmployeeID) {
			return User{}, ErrConflict
		}
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        p.Email,
		Name:         p.Name,
		EmployeeID:   p.EmployeeID,
		PasswordHash: p.PasswordHash,
		Role:         auth.RoleUser,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) FindByLogin(_ context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return User{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, login) || strings.EqualFold(u.EmployeeID, login) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	s.users[id] = u
	return nil
}
