package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"staffhub.org/internal/audit"
	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
	"staffhub.org/internal/policy"
)

type employeeRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Designation  string `json:"designation"`
	DepartmentID string `json:"departmentId"`
	ManagerID    string `json:"managerId"`
}

type employeePayload struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Designation  string `json:"designation"`
	DepartmentID string `json:"departmentId,omitempty"`
	ManagerID    string `json:"managerId,omitempty"`
}

func toEmployeePayload(e *directory.Employee) employeePayload {
	return employeePayload{
		ID:           e.ID,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Email:        e.Email,
		Designation:  e.Designation,
		DepartmentID: e.DepartmentID,
		ManagerID:    e.ManagerID,
	}
}

func (a *API) handleEmployeesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEmployees(w, r)
	case http.MethodPost:
		a.createEmployee(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEmployeeResource(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/employees/")
	if len(segments) == 2 && segments[1] == "projects" {
		if !validID(w, r, segments[0]) {
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listEmployeeProjects(w, r, segments[0])
		return
	}
	if len(segments) == 2 && segments[1] == "account" {
		if !validID(w, r, segments[0]) {
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.provisionEmployeeAccount(w, r, segments[0])
		return
	}
	if len(segments) != 1 {
		notFound(w, r)
		return
	}

	id, ok := resourceID(w, r, "/api/employees/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getEmployee(w, r, id)
	case http.MethodPut:
		a.updateEmployee(w, r, id)
	case http.MethodDelete:
		a.deleteEmployee(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// listEmployees returns the subset the caller's scope permits. The scope
// is pushed into the store as explicit filter arguments; role names never
// reach query text.
func (a *API) listEmployees(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	scope := policy.ScopeFor(principal, policy.ResourceEmployees)
	if scope.Empty() {
		writePage(w, r, []employeePayload{})
		return
	}
	employees, err := a.stores.Employees.List(r.Context(), scope.Filter())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]employeePayload, 0, len(employees))
	for i := range employees {
		items = append(items, toEmployeePayload(&employees[i]))
	}
	writePage(w, r, items)
}

// getEmployee authorizes point reads the same way updates are: admins and
// HR read anyone, department managers read members of their own
// department, employees read only their own record. Without this, a
// scoped list next to an unrestricted point read would leak records.
func (a *API) getEmployee(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsInOwnDepartment(r.Context(), principal, id):
	case a.policy.IsOwnRecord(principal, id):
	default:
		forbidden(w, r)
		return
	}
	emp, err := a.stores.Employees.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toEmployeePayload(emp))
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager) {
		forbidden(w, r)
		return
	}
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "firstName and email are required")
		return
	}
	if req.ManagerID != "" && !a.managerConsistent(r, req.ManagerID, req.DepartmentID) {
		writeError(w, r, http.StatusBadRequest, "manager must belong to the same department")
		return
	}
	emp := &directory.Employee{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
		Designation:  strings.TrimSpace(req.Designation),
		DepartmentID: req.DepartmentID,
		ManagerID:    req.ManagerID,
	}
	if err := a.stores.Employees.Create(r.Context(), emp); err != nil {
		if errors.Is(err, directory.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "employee already exists")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeePayload(emp))
}

// updateEmployee authorizes the write before touching the record: admins
// and HR edit anyone, department managers edit members of their own
// department, employees edit only their own record.
func (a *API) updateEmployee(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsInOwnDepartment(r.Context(), principal, id):
	case a.policy.IsOwnRecord(principal, id):
	default:
		forbidden(w, r)
		return
	}

	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	emp, err := a.stores.Employees.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	emp.FirstName = strings.TrimSpace(req.FirstName)
	emp.LastName = strings.TrimSpace(req.LastName)
	emp.Email = strings.TrimSpace(req.Email)
	emp.Designation = strings.TrimSpace(req.Designation)
	emp.DepartmentID = req.DepartmentID
	emp.ManagerID = req.ManagerID

	// Cross-entity consistency: a newly assigned manager must belong to
	// the same department as the employee ends up in.
	if emp.ManagerID != "" && !a.managerConsistent(r, emp.ManagerID, emp.DepartmentID) {
		writeError(w, r, http.StatusBadRequest, "manager must belong to the same department")
		return
	}

	if err := a.stores.Employees.Update(r.Context(), emp); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toEmployeePayload(emp))
}

func (a *API) deleteEmployee(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager) {
		forbidden(w, r)
		return
	}
	if err := a.stores.Employees.Delete(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type provisionRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type provisionResponse struct {
	User              userPayload `json:"user"`
	TemporaryPassword string      `json:"temporaryPassword"`
}

// provisionEmployeeAccount creates a login for an existing employee
// record. The account inherits the employee's department, and the
// generated temporary password is returned in the response exactly once.
func (a *API) provisionEmployeeAccount(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager) {
		forbidden(w, r)
		return
	}
	var req provisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := auth.RoleEmployee
	if strings.TrimSpace(req.Role) != "" {
		parsed, okRole := auth.ParseRole(req.Role)
		if !okRole || (parsed != auth.RoleEmployee && parsed != auth.RoleDepartmentManager) {
			writeError(w, r, http.StatusBadRequest, "role must be EMPLOYEE or DEPARTMENT_MANAGER")
			return
		}
		role = parsed
	}
	emp, err := a.stores.Employees.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	user, password, err := a.authSvc.Provision(r.Context(), req.Username, role, emp.ID, emp.DepartmentID)
	if err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "username already exists")
			return
		}
		writeError(w, r, http.StatusBadRequest, "account provisioning failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.provision", map[string]any{
		"username":    user.Username,
		"role":        string(user.Role),
		"employee_id": emp.ID,
	})
	writeJSON(w, http.StatusCreated, provisionResponse{
		User:              toUserPayload(user),
		TemporaryPassword: password,
	})
}

func (a *API) managerConsistent(r *http.Request, managerID, departmentID string) bool {
	if departmentID == "" {
		return false
	}
	mgr, err := a.stores.Employees.Find(r.Context(), managerID)
	if err != nil || mgr == nil {
		return false
	}
	return mgr.DepartmentID != "" && mgr.DepartmentID == departmentID
}

// resourceID extracts and validates the trailing UUID path segment.
func resourceID(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, r)
		return "", false
	}
	if !validID(w, r, id) {
		return "", false
	}
	return id, true
}

// pathSegments splits the remainder of the path after prefix into
// non-empty segments.
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func validID(w http.ResponseWriter, r *http.Request, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid resource id")
		return false
	}
	return true
}
