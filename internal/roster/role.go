package roster

import "strings"

// Role classifies an account for authorization decisions.
type Role string

const (
	// RoleMember is a regular club member.
	RoleMember Role = "member"
	// RoleAdmin may manage Termine, rosters, and user accounts.
	RoleAdmin Role = "admin"
)

// ParseRole maps a stored role string onto the enum. Unknown or empty values
// degrade to RoleMember so that a malformed record never gains privileges.
func ParseRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleMember
	}
}

// CanManageUsers reports whether the role may create, edit, lock, or delete
// user accounts.
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin
}

// CanManageEvents reports whether the role may create, edit, or delete
// Termine and manage enrollment rosters.
func (r Role) CanManageEvents() bool {
	return r == RoleAdmin
}
