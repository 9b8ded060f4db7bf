package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/auth"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrAccountPending     = errors.New("identity: account pending approval")
	ErrAccountInactive    = errors.New("identity: account deactivated")
	ErrForbidden          = errors.New("identity: not allowed")
)

// ValidationError carries a field-level registration failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "identity: invalid " + e.Field + ": " + e.Reason
}

// Session is the result of a successful login: the account plus a signed
// access token.
type Session struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service registers and authenticates accounts. New registrations land in
// pending status and cannot log in until a manager approves them.
type Service struct {
	store     Store
	tokens    auth.JWTVerifier
	tokenTTL  time.Duration
	analytics *analytics.Publisher
	log       *zap.Logger

	mu        sync.Mutex
	observers []func(*User)
}

func NewService(store Store, tokens auth.JWTVerifier, tokenTTL time.Duration, pub *analytics.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{store: store, tokens: tokens, tokenTTL: tokenTTL, analytics: pub, log: log}
}

type RegisterParams struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

// Register creates a pending account.
func (s *Service) Register(ctx context.Context, p RegisterParams) (User, error) {
	email := strings.TrimSpace(p.Email)
	name := strings.TrimSpace(p.Name)
	employeeID := strings.TrimSpace(p.EmployeeID)

	if !isValidEmail(email) {
		return User{}, &ValidationError{Field: "email", Reason: "invalid"}
	}
	if name == "" {
		return User{}, &ValidationError{Field: "name", Reason: "required"}
	}
	if !isValidEmployeeID(employeeID) {
		return User{}, &ValidationError{Field: "employee_id", Reason: "invalid"}
	}
	if len(p.Password) < 8 {
		return User{}, &ValidationError{Field: "password", Reason: "min length 8"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u, err := s.store.CreateUser(ctx, CreateUserParams{
		Email:        email,
		Name:         name,
		EmployeeID:   employeeID,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, err
	}

	s.analytics.Publish(analytics.SubjectAccountRegistered, "registered", u.ID, map[string]any{
		"employee_id": u.EmployeeID,
	})
	return u, nil
}

// Login authenticates by email or employee ID. Pending and inactive
// accounts are rejected with distinct errors so the client can explain.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	u, err := s.store.FindByLogin(ctx, login)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	switch u.Status {
	case StatusActive:
	case StatusPending:
		return Session{}, ErrAccountPending
	default:
		return Session{}, ErrAccountInactive
	}

	token, exp, err := s.tokens.Sign(u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	s.notify(&u)
	return Session{User: u, AccessToken: token, ExpiresAt: exp}, nil
}

// OnAuthStateChanged registers fn to run after every successful login
// (with the user) and every logout (with nil). Embedded clients use it to
// re-render screens bound to the session.
func (s *Service) OnAuthStateChanged(fn func(*User)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Logout clears the client-held session and notifies observers. Tokens are
// not revoked server-side; they simply expire.
func (s *Service) Logout() {
	s.notify(nil)
}

func (s *Service) notify(u *User) {
	s.mu.Lock()
	obs := make([]func(*User), len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(u)
	}
}

// Me returns the account behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	return s.store.GetByID(ctx, userID)
}

// Approve activates a pending account. Only approver roles may call it.
func (s *Service) Approve(ctx context.Context, approver auth.Role, userID string) error {
	if !approver.CanApproveAccounts() {
		return ErrForbidden
	}
	return s.store.SetStatus(ctx, userID, StatusActive)
}

// Deactivate locks an account out. Only approver roles may call it.
func (s *Service) Deactivate(ctx context.Context, approver auth.Role, userID string) error {
	if !approver.CanApproveAccounts() {
		return ErrForbidden
	}
	return s.store.SetStatus(ctx, userID, StatusInactive)
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func isValidEmail(s string) bool {
	if len(s) > 254 {
		return false
	}
	return emailRe.MatchString(s)
}

var employeeIDRe = regexp.MustCompile(`^[A-Za-z0-9-]{3,32}$`)

func isValidEmployeeID(s string) bool {
	return employeeIDRe.MatchString(s)
}
