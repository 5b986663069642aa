package policy

import (
	"context"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
)

// Narrow lookup contracts the policy consumes from the persistence layer.
// Every lookup failure, including a missing id, resolves to a deny:
// absence of evidence is absence of authorization.

type EmployeeLookup interface {
	Find(ctx context.Context, id string) (*directory.Employee, error)
}

type DepartmentLookup interface {
	Find(ctx context.Context, id string) (*directory.Department, error)
}

type ProjectLookup interface {
	Find(ctx context.Context, id string) (*directory.Project, error)
}

type TaskLookup interface {
	Find(ctx context.Context, id string) (*directory.Task, error)
}

type MembershipLookup interface {
	Exists(ctx context.Context, employeeID, projectID string) (bool, error)
}

// Policy answers ownership questions for fine-grained authorization
// decisions. It holds no mutable state and is safe for concurrent use.
type Policy struct {
	employees   EmployeeLookup
	departments DepartmentLookup
	projects    ProjectLookup
	tasks       TaskLookup
	memberships MembershipLookup
}

// New constructs the policy engine over the given lookups.
func New(employees EmployeeLookup, departments DepartmentLookup, projects ProjectLookup, tasks TaskLookup, memberships MembershipLookup) *Policy {
	return &Policy{
		employees:   employees,
		departments: departments,
		projects:    projects,
		tasks:       tasks,
		memberships: memberships,
	}
}

// IsOwnRecord reports whether the target employee record belongs to the
// principal. Always false for principals with no linked employee.
func (*Policy) IsOwnRecord(p auth.Principal, employeeID string) bool {
	return p.EmployeeID != "" && p.EmployeeID == employeeID
}

// IsInOwnDepartment reports whether the target employee works in the
// principal's department. This is membership, not headship.
func (pl *Policy) IsInOwnDepartment(ctx context.Context, p auth.Principal, employeeID string) bool {
	if p.DepartmentID == "" {
		return false
	}
	emp, err := pl.employees.Find(ctx, employeeID)
	if err != nil || emp == nil {
		return false
	}
	return emp.DepartmentID != "" && emp.DepartmentID == p.DepartmentID
}

// IsOwnDepartment reports whether the principal's employee is the recorded
// head of the department. Merely working in the department does not count;
// write authority is gated by headship.
func (pl *Policy) IsOwnDepartment(ctx context.Context, p auth.Principal, departmentID string) bool {
	if p.EmployeeID == "" {
		return false
	}
	dept, err := pl.departments.Find(ctx, departmentID)
	if err != nil || dept == nil {
		return false
	}
	return dept.HeadID != "" && dept.HeadID == p.EmployeeID
}

// IsProjectInOwnDepartment applies the headship check to a project's
// already-resolved department.
func (pl *Policy) IsProjectInOwnDepartment(ctx context.Context, p auth.Principal, departmentID string) bool {
	return pl.IsOwnDepartment(ctx, p, departmentID)
}

// IsProjectInOwnDepartmentByProjectID resolves the project's department
// and applies the headship check.
func (pl *Policy) IsProjectInOwnDepartmentByProjectID(ctx context.Context, p auth.Principal, projectID string) bool {
	if p.EmployeeID == "" {
		return false
	}
	proj, err := pl.projects.Find(ctx, projectID)
	if err != nil || proj == nil || proj.DepartmentID == "" {
		return false
	}
	return pl.IsOwnDepartment(ctx, p, proj.DepartmentID)
}

// IsTaskInOwnDepartment reports whether the task's project belongs to the
// principal's department. Membership-based, matching the read side of
// department scoping.
func (pl *Policy) IsTaskInOwnDepartment(ctx context.Context, p auth.Principal, taskID string) bool {
	if p.DepartmentID == "" {
		return false
	}
	task, err := pl.tasks.Find(ctx, taskID)
	if err != nil || task == nil || task.ProjectID == "" {
		return false
	}
	proj, err := pl.projects.Find(ctx, task.ProjectID)
	if err != nil || proj == nil {
		return false
	}
	return proj.DepartmentID != "" && proj.DepartmentID == p.DepartmentID
}

// IsTaskAssignedToUser reports whether the task's assignee is the
// principal's employee.
func (pl *Policy) IsTaskAssignedToUser(ctx context.Context, p auth.Principal, taskID string) bool {
	if p.EmployeeID == "" {
		return false
	}
	task, err := pl.tasks.Find(ctx, taskID)
	if err != nil || task == nil {
		return false
	}
	return task.AssigneeID != "" && task.AssigneeID == p.EmployeeID
}

// IsProjectAssignedToUser reports whether an employee-project membership
// exists for the principal and the project.
func (pl *Policy) IsProjectAssignedToUser(ctx context.Context, p auth.Principal, projectID string) bool {
	if p.EmployeeID == "" {
		return false
	}
	ok, err := pl.memberships.Exists(ctx, p.EmployeeID, projectID)
	if err != nil {
		return false
	}
	return ok
}

// SameDepartment verifies that two employees resolve to the same non-empty
// department. Used as a multi-entity consistency check on write paths that
// relate scoped entities, e.g. assigning a manager to an employee.
func (pl *Policy) SameDepartment(ctx context.Context, employeeID, otherID string) bool {
	a, err := pl.employees.Find(ctx, employeeID)
	if err != nil || a == nil || a.DepartmentID == "" {
		return false
	}
	b, err := pl.employees.Find(ctx, otherID)
	if err != nil || b == nil {
		return false
	}
	return a.DepartmentID == b.DepartmentID
}
