package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
)

// Store exposes all persistence adapters over one connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() auth.UserStore                       { return &userStore{db: s.db} }
func (s *Store) Employees() directory.EmployeeStore          { return &employeeStore{db: s.db} }
func (s *Store) Departments() directory.DepartmentStore      { return &departmentStore{db: s.db} }
func (s *Store) Projects() directory.ProjectStore            { return &projectStore{db: s.db} }
func (s *Store) Tasks() directory.TaskStore                  { return &taskStore{db: s.db} }
func (s *Store) Memberships() directory.EmployeeProjectStore { return &membershipStore{db: s.db} }

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

var _ auth.UserStore = (*userStore)(nil)

const userColumns = `
	u.id, u.username, u.password_hash, u.role,
	coalesce(u.employee_id::text, ''),
	coalesce(e.department_id::text, ''),
	coalesce(u.last_login, to_timestamp(0)),
	u.created_at, u.updated_at`

func scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role,
		&u.EmployeeID, &u.DepartmentID, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, username, password_hash, role, employee_id)
		 values($1, $2, $3, $4, nullif($5, '')::uuid)`,
		u.ID, u.Username, u.PasswordHash, string(u.Role), u.EmployeeID,
	)
	if err != nil && isUniqueViolation(err) {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select`+userColumns+`
		 from users u left join employees e on e.id = u.employee_id
		 where u.id = $1`, id)
	return scanUser(row)
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select`+userColumns+`
		 from users u left join employees e on e.id = u.employee_id
		 where u.username = $1`, username)
	return scanUser(row)
}

func (s *userStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login = $2, updated_at = now() where id = $1`, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// pgx wraps server errors; SQLSTATE 23505 is unique_violation.
	type sqlState interface{ SQLState() string }
	var st sqlState
	return errors.As(err, &st) && st.SQLState() == "23505"
}
