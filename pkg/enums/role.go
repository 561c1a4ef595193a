package enums

import "fmt"

// Role is the capability level resolved for a request principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

var validRoles = []Role{
	RoleAdmin,
	RoleUser,
	RoleGuest,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// ResolveRole reduces a user's role assignments to a single capability level.
// Admin wins over user; no assignments at all means guest.
func ResolveRole(assignments []string) Role {
	resolved := RoleGuest
	for _, name := range assignments {
		switch Role(name) {
		case RoleAdmin:
			return RoleAdmin
		case RoleUser:
			resolved = RoleUser
		}
	}
	return resolved
}
