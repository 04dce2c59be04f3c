package domain

import "fmt"

type Role string

const (
	RoleDeveloper      Role = "Developer"
	RoleDesigner       Role = "Designer"
	RoleProductManager Role = "Product Manager"
	RoleQA             Role = "QA"
)

// DefaultRole is used when a member is added without a role.
const DefaultRole = RoleDeveloper

var roles = []Role{RoleDeveloper, RoleDesigner, RoleProductManager, RoleQA}

// Roles lists the selectable roles in display order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole maps a display string to a Role. Empty means DefaultRole.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return DefaultRole, nil
	}
	for _, r := range roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
