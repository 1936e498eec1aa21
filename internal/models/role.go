package models

import "strings"

// Role is the permission level carried by a user.
type Role int

// Fixed permission levels.
const (
	RoleBasic          Role = 100
	RoleServiceAccount Role = 200
	RoleAdmin          Role = 1000
)

// Level returns the integer permission level.
func (r Role) Level() int {
	return int(r)
}

// Outranks reports whether r is at or above min.
func (r Role) Outranks(min Role) bool {
	return r.Level() >= min.Level()
}

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleBasic:
		return "BASIC"
	case RoleServiceAccount:
		return "SERVICE_ACCOUNT"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// ParseRole maps a role name to its Role.
func ParseRole(name string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BASIC":
		return RoleBasic, true
	case "SERVICE_ACCOUNT":
		return RoleServiceAccount, true
	case "ADMIN":
		return RoleAdmin, true
	default:
		return 0, false
	}
}
