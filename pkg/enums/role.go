package enums

import "fmt"

// Role identifies what a user may do in the system.
type Role string

const (
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

var validRoles = []Role{
	RoleSeller,
	RoleAdmin,
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
