package policy

import (
	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
)

// Resource identifies a collection subject to role-conditioned scoping.
type Resource string

const (
	ResourceEmployees   Resource = "employees"
	ResourceDepartments Resource = "departments"
	ResourceProjects    Resource = "projects"
	ResourceTasks       Resource = "tasks"
)

// ScopeKind enumerates the visibility variants.
type ScopeKind int

const (
	// ScopeUnrestricted grants visibility over the whole collection.
	ScopeUnrestricted ScopeKind = iota
	// ScopeDepartment restricts visibility to one department.
	ScopeDepartment
	// ScopeSelf restricts visibility to the caller's own records.
	ScopeSelf
)

// Scope is the authorized subset of a resource collection a principal may
// see. It is consumed by the persistence layer as an explicit filter and
// reusable as a boolean gate for single-resource reads.
type Scope struct {
	Kind         ScopeKind
	DepartmentID string
	EmployeeID   string
}

// Unrestricted grants full visibility.
func Unrestricted() Scope { return Scope{Kind: ScopeUnrestricted} }

// DepartmentScoped restricts visibility to the given department.
func DepartmentScoped(departmentID string) Scope {
	return Scope{Kind: ScopeDepartment, DepartmentID: departmentID}
}

// SelfScoped restricts visibility to the given employee's own records.
func SelfScoped(employeeID string) Scope {
	return Scope{Kind: ScopeSelf, EmployeeID: employeeID}
}

// Empty reports whether the scope can match nothing at all: a department
// or self scope whose anchoring id is missing. Callers short-circuit to an
// empty result instead of issuing an unfiltered query.
func (s Scope) Empty() bool {
	switch s.Kind {
	case ScopeDepartment:
		return s.DepartmentID == ""
	case ScopeSelf:
		return s.EmployeeID == ""
	default:
		return false
	}
}

// Filter translates the scope into explicit list-query arguments.
func (s Scope) Filter() directory.ListFilter {
	switch s.Kind {
	case ScopeDepartment:
		return directory.ListFilter{DepartmentID: s.DepartmentID}
	case ScopeSelf:
		return directory.ListFilter{EmployeeID: s.EmployeeID}
	default:
		return directory.ListFilter{}
	}
}

// Allows gates a single resource: the resource's department and owner ids
// are checked against the scope. Unknown ids never widen access.
func (s Scope) Allows(departmentID, employeeID string) bool {
	switch s.Kind {
	case ScopeUnrestricted:
		return true
	case ScopeDepartment:
		return s.DepartmentID != "" && s.DepartmentID == departmentID
	case ScopeSelf:
		return s.EmployeeID != "" && s.EmployeeID == employeeID
	default:
		return false
	}
}

// ScopeFor computes the default visibility for a principal over a resource
// collection. Admins and HR see everything; department managers see their
// own department; employees have unrestricted read over reference lists
// but only their own tasks.
func ScopeFor(p auth.Principal, resource Resource) Scope {
	switch p.Role {
	case auth.RoleSystemAdmin, auth.RoleHRManager:
		return Unrestricted()
	case auth.RoleDepartmentManager:
		if p.DepartmentID == "" {
			return SelfScoped(p.EmployeeID)
		}
		return DepartmentScoped(p.DepartmentID)
	case auth.RoleEmployee:
		if resource == ResourceTasks {
			return SelfScoped(p.EmployeeID)
		}
		return Unrestricted()
	default:
		return SelfScoped(p.EmployeeID)
	}
}
