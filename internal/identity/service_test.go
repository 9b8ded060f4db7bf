package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/edu-platform/internal/platform/auth"
)

func newTestService() (*Service, *MemoryStore) {
	st := NewMemoryStore()
	tokens := auth.JWTVerifier{Secret: []byte("test-secret")}
	return NewService(st, tokens, time.Hour, nil, nil), st
}

func register(t *testing.T, svc *Service) User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterParams{
		Email:      "kim@example.com",
		Name:       "Kim Minsu",
		EmployeeID: "EMP-1042",
		Password:   "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestRegister_NewAccountIsPending(t *testing.T) {
	svc, _ := newTestService()
	u := register(t, svc)

	if u.Status != StatusPending {
		t.Fatalf("expected pending status, got %q", u.Status)
	}
	if u.Role != auth.RoleUser {
		t.Fatalf("expected user role, got %v", u.Role)
	}
	if u.PasswordHash == "correct horse" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		p     RegisterParams
		field string
	}{
		{"bad email", RegisterParams{Email: "not-an-email", Name: "a", EmployeeID: "EMP-1", Password: "longenough"}, "email"},
		{"missing name", RegisterParams{Email: "a@b.co", Name: "  ", EmployeeID: "EMP-1042", Password: "longenough"}, "name"},
		{"bad employee id", RegisterParams{Email: "a@b.co", Name: "a", EmployeeID: "x", Password: "longenough"}, "employee_id"},
		{"short password", RegisterParams{Email: "a@b.co", Name: "a", EmployeeID: "EMP-1042", Password: "short"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.p)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %q, got %v", tc.field, err)
			}
		})
	}
}

func TestRegister_DuplicateEmployeeID(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc)

	_, err := svc.Register(context.Background(), RegisterParams{
		Email:      "other@example.com",
		Name:       "Other",
		EmployeeID: "emp-1042",
		Password:   "longenough",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLogin_PendingAndInactiveAreLockedOut(t *testing.T) {
	svc, st := newTestService()
	u := register(t, svc)
	ctx := context.Background()

	if _, err := svc.Login(ctx, u.Email, "correct horse"); !errors.Is(err, ErrAccountPending) {
		t.Fatalf("expected ErrAccountPending, got %v", err)
	}

	if err := svc.Approve(ctx, auth.RoleManager, u.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Login(ctx, u.Email, "correct horse"); err != nil {
		t.Fatalf("login after approval: %v", err)
	}

	if err := svc.Deactivate(ctx, auth.RoleManager, u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Login(ctx, u.Email, "correct horse"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}

	got, _ := st.GetByID(ctx, u.ID)
	if got.Status != StatusInactive {
		t.Fatalf("expected inactive status, got %q", got.Status)
	}
}

func TestLogin_ByEmployeeIDIssuesVerifiableToken(t *testing.T) {
	svc, _ := newTestService()
	u := register(t, svc)
	ctx := context.Background()
	_ = svc.Approve(ctx, auth.RoleAdmin, u.ID)

	sess, err := svc.Login(ctx, "emp-1042", "correct horse")
	if err != nil {
		t.Fatalf("login by employee id: %v", err)
	}
	if sess.User.ID != u.ID {
		t.Fatal("session user mismatch")
	}

	claims, err := auth.JWTVerifier{Secret: []byte("test-secret")}.Parse(sess.AccessToken)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Subject != u.ID {
		t.Fatalf("token subject %q, want %q", claims.Subject, u.ID)
	}
}

func TestOnAuthStateChanged_FiresOnLoginAndLogout(t *testing.T) {
	svc, _ := newTestService()
	u := register(t, svc)
	ctx := context.Background()
	_ = svc.Approve(ctx, auth.RoleManager, u.ID)

	var seen []*User
	svc.OnAuthStateChanged(func(u *User) { seen = append(seen, u) })

	if _, err := svc.Login(ctx, u.Email, "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.Logout()

	if len(seen) != 2 {
		t.Fatalf("got %d notifications, want 2", len(seen))
	}
	if seen[0] == nil || seen[0].ID != u.ID {
		t.Fatal("login notification should carry the account")
	}
	if seen[1] != nil {
		t.Fatal("logout notification should be nil")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestService()
	u := register(t, svc)
	ctx := context.Background()
	_ = svc.Approve(ctx, auth.RoleManager, u.ID)

	if _, err := svc.Login(ctx, u.Email, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown login, got %v", err)
	}
}

func TestApprove_RequiresApproverRole(t *testing.T) {
	svc, _ := newTestService()
	u := register(t, svc)

	if err := svc.Approve(context.Background(), auth.RoleUser, u.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
