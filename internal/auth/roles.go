package auth

import "strings"

// Role is the single authority attached to a user account. The model is
// deliberately scalar: one role per principal, never a set.
type Role string

const (
	RoleSystemAdmin       Role = "SYSTEM_ADMIN"
	RoleHRManager         Role = "HR_MANAGER"
	RoleDepartmentManager Role = "DEPARTMENT_MANAGER"
	RoleEmployee          Role = "EMPLOYEE"
)

// ParseRole normalizes a raw role string into a known Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleSystemAdmin:
		return RoleSystemAdmin, true
	case RoleHRManager:
		return RoleHRManager, true
	case RoleDepartmentManager:
		return RoleDepartmentManager, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

// Valid reports whether the role is one of the known constants.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}
