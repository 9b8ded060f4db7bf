package auth

import "strings"

// Role is the typed access level attached to a session. It is resolved
// once when the session is established, never re-parsed per check.
type Role int

const (
	RoleUser Role = iota
	RoleManager
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	default:
		return "user"
	}
}

// ParseRole maps a stored role string to a Role. Unknown or empty values
// degrade to RoleUser.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	default:
		return RoleUser
	}
}

// CanManageContent reports whether the role may create or edit catalog content.
func (r Role) CanManageContent() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanApproveAccounts reports whether the role may approve pending registrations.
func (r Role) CanApproveAccounts() bool {
	return r == RoleAdmin || r == RoleManager
}
