package auth

import "time"

// User is an account that can authenticate against the API. An account may
// be linked to an employee record; the department is derived from that
// employee and carried here so token issuance does not need extra lookups.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	EmployeeID   string // empty when the account has no linked employee
	DepartmentID string // derived from the linked employee, empty otherwise
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
