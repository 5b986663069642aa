package directory

import "time"

// Employee is a staff record. DepartmentID and ManagerID are empty when
// unassigned.
type Employee struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Designation  string
	DepartmentID string
	ManagerID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Department groups employees. HeadID identifies the employee who manages
// the department; headship is distinct from membership and gates write
// authority for department managers.
type Department struct {
	ID        string
	Name      string
	HeadID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project belongs to a department and has employees assigned through
// EmployeeProject memberships.
type Project struct {
	ID           string
	Name         string
	Description  string
	DepartmentID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Task belongs to a project and may be assigned to a single employee.
type Task struct {
	ID         string
	ProjectID  string
	AssigneeID string
	Title      string
	Status     string
	DueDate    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EmployeeProject links an employee to a project.
type EmployeeProject struct {
	EmployeeID string
	ProjectID  string
	AssignedAt time.Time
}
