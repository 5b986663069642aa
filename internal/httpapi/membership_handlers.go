package httpapi

import (
	"errors"
	"net/http"

	"staffhub.org/internal/audit"
	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
)

type membershipRequest struct {
	EmployeeID string `json:"employeeId"`
}

type membershipPayload struct {
	EmployeeID string `json:"employeeId"`
	ProjectID  string `json:"projectId"`
}

// assignMember adds an employee to a project. Admins and HR may staff any
// project; a department manager only projects whose department they head.
func (a *API) assignMember(w http.ResponseWriter, r *http.Request, projectID string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsProjectInOwnDepartmentByProjectID(r.Context(), principal, projectID):
	default:
		forbidden(w, r)
		return
	}

	var req membershipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.EmployeeID == "" {
		writeError(w, r, http.StatusBadRequest, "employeeId is required")
		return
	}
	if _, err := a.stores.Employees.Find(r.Context(), req.EmployeeID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "employee does not exist")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	exists, err := a.stores.Memberships.Exists(r.Context(), req.EmployeeID, projectID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		writeError(w, r, http.StatusConflict, "employee is already assigned to this project")
		return
	}
	if err := a.stores.Memberships.Assign(r.Context(), req.EmployeeID, projectID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "project.member.assigned", map[string]any{
		"project_id":  projectID,
		"employee_id": req.EmployeeID,
	})
	writeJSON(w, http.StatusCreated, membershipPayload{EmployeeID: req.EmployeeID, ProjectID: projectID})
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request, projectID, employeeID string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsProjectInOwnDepartmentByProjectID(r.Context(), principal, projectID):
	default:
		forbidden(w, r)
		return
	}
	if err := a.stores.Memberships.Remove(r.Context(), employeeID, projectID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listEmployeeProjects returns the projects an employee is assigned to:
// visible to admins, HR, the department manager of the employee's
// department, and the employee themselves.
func (a *API) listEmployeeProjects(w http.ResponseWriter, r *http.Request, employeeID string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsInOwnDepartment(r.Context(), principal, employeeID):
	case a.policy.IsOwnRecord(principal, employeeID):
	default:
		forbidden(w, r)
		return
	}
	memberships, err := a.stores.Memberships.ListByEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]membershipPayload, 0, len(memberships))
	for _, m := range memberships {
		items = append(items, membershipPayload{EmployeeID: m.EmployeeID, ProjectID: m.ProjectID})
	}
	writeJSON(w, http.StatusOK, items)
}
