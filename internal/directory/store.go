package directory

import "context"

// ListFilter narrows a list query to the caller's authorized subset. The
// zero value means no restriction. Filters are explicit arguments so role
// names never leak into query text.
type ListFilter struct {
	// DepartmentID restricts results to one department when set.
	DepartmentID string
	// EmployeeID restricts results to records owned by (or assigned to)
	// one employee when set.
	EmployeeID string
}

// EmployeeStore manages employee records.
type EmployeeStore interface {
	Create(ctx context.Context, e *Employee) error
	Find(ctx context.Context, id string) (*Employee, error)
	List(ctx context.Context, filter ListFilter) ([]Employee, error)
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id string) error
}

// DepartmentStore manages departments. Find resolves the head relationship
// so headship checks need no second query.
type DepartmentStore interface {
	Create(ctx context.Context, d *Department) error
	Find(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id string) error
}

// ProjectStore manages projects.
type ProjectStore interface {
	Create(ctx context.Context, p *Project) error
	Find(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter ListFilter) ([]Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error
}

// TaskStore manages tasks. For tasks, ListFilter.EmployeeID filters by
// assignee.
type TaskStore interface {
	Create(ctx context.Context, t *Task) error
	Find(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter ListFilter) ([]Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}

// EmployeeProjectStore manages employee-project memberships.
type EmployeeProjectStore interface {
	Assign(ctx context.Context, employeeID, projectID string) error
	Remove(ctx context.Context, employeeID, projectID string) error
	Exists(ctx context.Context, employeeID, projectID string) (bool, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]EmployeeProject, error)
}
