package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"staffhub.org/internal/directory"
)

// Employees ----------------------------------------------------------------

type employeeStore struct{ db *sql.DB }

var _ directory.EmployeeStore = (*employeeStore)(nil)

const employeeColumns = `
	id, first_name, last_name, email, designation,
	coalesce(department_id::text, ''), coalesce(manager_id::text, ''),
	created_at, updated_at`

func scanEmployee(s interface{ Scan(...any) error }) (directory.Employee, error) {
	var e directory.Employee
	err := s.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Designation,
		&e.DepartmentID, &e.ManagerID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *employeeStore) Create(ctx context.Context, e *directory.Employee) error {
	_, err := s.db.ExecContext(ctx,
		`insert into employees(id, first_name, last_name, email, designation, department_id, manager_id)
		 values($1, $2, $3, $4, $5, nullif($6, '')::uuid, nullif($7, '')::uuid)`,
		e.ID, e.FirstName, e.LastName, e.Email, e.Designation, e.DepartmentID, e.ManagerID,
	)
	if err != nil && isUniqueViolation(err) {
		return directory.ErrAlreadyExists
	}
	return err
}

func (s *employeeStore) Find(ctx context.Context, id string) (*directory.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		`select`+employeeColumns+` from employees where id = $1`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *employeeStore) List(ctx context.Context, filter directory.ListFilter) ([]directory.Employee, error) {
	q := `select` + employeeColumns + ` from employees`
	where, args := filterClause(map[string]string{
		"department_id": filter.DepartmentID,
		"id":            filter.EmployeeID,
	})
	rows, err := s.db.QueryContext(ctx, q+where+` order by last_name, first_name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *employeeStore) Update(ctx context.Context, e *directory.Employee) error {
	res, err := s.db.ExecContext(ctx,
		`update employees
		 set first_name = $2, last_name = $3, email = $4, designation = $5,
		     department_id = nullif($6, '')::uuid, manager_id = nullif($7, '')::uuid,
		     updated_at = now()
		 where id = $1`,
		e.ID, e.FirstName, e.LastName, e.Email, e.Designation, e.DepartmentID, e.ManagerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *employeeStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from employees where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Departments --------------------------------------------------------------

type departmentStore struct{ db *sql.DB }

var _ directory.DepartmentStore = (*departmentStore)(nil)

const departmentColumns = `
	id, name, coalesce(head_id::text, ''), created_at, updated_at`

func scanDepartment(s interface{ Scan(...any) error }) (directory.Department, error) {
	var d directory.Department
	err := s.Scan(&d.ID, &d.Name, &d.HeadID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *departmentStore) Create(ctx context.Context, d *directory.Department) error {
	_, err := s.db.ExecContext(ctx,
		`insert into departments(id, name, head_id)
		 values($1, $2, nullif($3, '')::uuid)`,
		d.ID, d.Name, d.HeadID,
	)
	if err != nil && isUniqueViolation(err) {
		return directory.ErrAlreadyExists
	}
	return err
}

func (s *departmentStore) Find(ctx context.Context, id string) (*directory.Department, error) {
	row := s.db.QueryRowContext(ctx,
		`select`+departmentColumns+` from departments where id = $1`, id)
	d, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *departmentStore) List(ctx context.Context) ([]directory.Department, error) {
	rows, err := s.db.QueryContext(ctx,
		`select`+departmentColumns+` from departments order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *departmentStore) Update(ctx context.Context, d *directory.Department) error {
	res, err := s.db.ExecContext(ctx,
		`update departments
		 set name = $2, head_id = nullif($3, '')::uuid, updated_at = now()
		 where id = $1`,
		d.ID, d.Name, d.HeadID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *departmentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from departments where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Projects -----------------------------------------------------------------

type projectStore struct{ db *sql.DB }

var _ directory.ProjectStore = (*projectStore)(nil)

const projectColumns = `
	p.id, p.name, p.description, coalesce(p.department_id::text, ''),
	p.created_at, p.updated_at`

func scanProject(s interface{ Scan(...any) error }) (directory.Project, error) {
	var p directory.Project
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.DepartmentID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *projectStore) Create(ctx context.Context, p *directory.Project) error {
	_, err := s.db.ExecContext(ctx,
		`insert into projects(id, name, description, department_id)
		 values($1, $2, $3, nullif($4, '')::uuid)`,
		p.ID, p.Name, p.Description, p.DepartmentID,
	)
	if err != nil && isUniqueViolation(err) {
		return directory.ErrAlreadyExists
	}
	return err
}

func (s *projectStore) Find(ctx context.Context, id string) (*directory.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`select`+projectColumns+` from projects p where p.id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List narrows by department when filter.DepartmentID is set and by
// membership when filter.EmployeeID is set.
func (s *projectStore) List(ctx context.Context, filter directory.ListFilter) ([]directory.Project, error) {
	q := `select` + projectColumns + ` from projects p`
	var where []string
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		q += ` join employee_projects ep on ep.project_id = p.id`
		where = append(where, `ep.employee_id = $`+strconv.Itoa(len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where = append(where, `p.department_id = $`+strconv.Itoa(len(args)))
	}
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, ` and `)
	}
	rows, err := s.db.QueryContext(ctx, q+` order by p.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *projectStore) Update(ctx context.Context, p *directory.Project) error {
	res, err := s.db.ExecContext(ctx,
		`update projects
		 set name = $2, description = $3, department_id = nullif($4, '')::uuid,
		     updated_at = now()
		 where id = $1`,
		p.ID, p.Name, p.Description, p.DepartmentID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *projectStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from projects where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Tasks --------------------------------------------------------------------

type taskStore struct{ db *sql.DB }

var _ directory.TaskStore = (*taskStore)(nil)

const taskColumns = `
	t.id, t.project_id, coalesce(t.assignee_id::text, ''), t.title, t.status,
	coalesce(t.due_date, to_timestamp(0)), t.created_at, t.updated_at`

func scanTask(s interface{ Scan(...any) error }) (directory.Task, error) {
	var t directory.Task
	err := s.Scan(&t.ID, &t.ProjectID, &t.AssigneeID, &t.Title, &t.Status,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *taskStore) Create(ctx context.Context, t *directory.Task) error {
	_, err := s.db.ExecContext(ctx,
		`insert into tasks(id, project_id, assignee_id, title, status, due_date)
		 values($1, $2, nullif($3, '')::uuid, $4, $5, $6)`,
		t.ID, t.ProjectID, t.AssigneeID, t.Title, t.Status, t.DueDate,
	)
	if err != nil && isUniqueViolation(err) {
		return directory.ErrAlreadyExists
	}
	return err
}

func (s *taskStore) Find(ctx context.Context, id string) (*directory.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`select`+taskColumns+` from tasks t where t.id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List narrows by the owning project's department when filter.DepartmentID
// is set and by assignee when filter.EmployeeID is set.
func (s *taskStore) List(ctx context.Context, filter directory.ListFilter) ([]directory.Task, error) {
	q := `select` + taskColumns + ` from tasks t`
	var where []string
	var args []any
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		q += ` join projects p on p.id = t.project_id`
		where = append(where, `p.department_id = $`+strconv.Itoa(len(args)))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where = append(where, `t.assignee_id = $`+strconv.Itoa(len(args)))
	}
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, ` and `)
	}
	rows, err := s.db.QueryContext(ctx, q+` order by t.created_at desc`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *taskStore) Update(ctx context.Context, t *directory.Task) error {
	res, err := s.db.ExecContext(ctx,
		`update tasks
		 set project_id = $2, assignee_id = nullif($3, '')::uuid, title = $4,
		     status = $5, due_date = $6, updated_at = now()
		 where id = $1`,
		t.ID, t.ProjectID, t.AssigneeID, t.Title, t.Status, t.DueDate,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *taskStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Memberships --------------------------------------------------------------

type membershipStore struct{ db *sql.DB }

var _ directory.EmployeeProjectStore = (*membershipStore)(nil)

func (s *membershipStore) Assign(ctx context.Context, employeeID, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into employee_projects(employee_id, project_id) values($1, $2)`,
		employeeID, projectID,
	)
	if err != nil && isUniqueViolation(err) {
		return directory.ErrAlreadyExists
	}
	return err
}

func (s *membershipStore) Remove(ctx context.Context, employeeID, projectID string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from employee_projects where employee_id = $1 and project_id = $2`,
		employeeID, projectID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *membershipStore) Exists(ctx context.Context, employeeID, projectID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`select 1 from employee_projects where employee_id = $1 and project_id = $2`,
		employeeID, projectID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *membershipStore) ListByEmployee(ctx context.Context, employeeID string) ([]directory.EmployeeProject, error) {
	rows, err := s.db.QueryContext(ctx,
		`select employee_id, project_id, assigned_at
		 from employee_projects where employee_id = $1 order by assigned_at`,
		employeeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.EmployeeProject
	for rows.Next() {
		var ep directory.EmployeeProject
		if err := rows.Scan(&ep.EmployeeID, &ep.ProjectID, &ep.AssignedAt); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// Helpers ------------------------------------------------------------------

func requireRow(res sql.Result) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// filterClause builds a WHERE clause from column to value pairs, skipping
// empty values. Columns are fixed strings; only values travel as args.
func filterClause(cols map[string]string) (string, []any) {
	var where []string
	var args []any
	for _, col := range []string{"department_id", "id"} {
		v, ok := cols[col]
		if !ok || v == "" {
			continue
		}
		args = append(args, v)
		where = append(where, col+" = $"+strconv.Itoa(len(args)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " where " + strings.Join(where, " and "), args
}
