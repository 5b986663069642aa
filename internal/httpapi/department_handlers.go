package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
)

type departmentRequest struct {
	Name   string `json:"name"`
	HeadID string `json:"headId"`
}

type departmentPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	HeadID string `json:"headId,omitempty"`
}

func toDepartmentPayload(d *directory.Department) departmentPayload {
	return departmentPayload{ID: d.ID, Name: d.Name, HeadID: d.HeadID}
}

func (a *API) handleDepartmentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDepartments(w, r)
	case http.MethodPost:
		a.createDepartment(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDepartmentResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r, "/api/departments/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getDepartment(w, r, id)
	case http.MethodPut:
		a.updateDepartment(w, r, id)
	case http.MethodDelete:
		a.deleteDepartment(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// Departments are reference data: every authenticated role may list and
// read them.
func (a *API) listDepartments(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requirePrincipal(w, r); !ok {
		return
	}
	departments, err := a.stores.Departments.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]departmentPayload, 0, len(departments))
	for i := range departments {
		items = append(items, toDepartmentPayload(&departments[i]))
	}
	writePage(w, r, items)
}

func (a *API) getDepartment(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requirePrincipal(w, r); !ok {
		return
	}
	dept, err := a.stores.Departments.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentPayload(dept))
}

func (a *API) createDepartment(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager) {
		forbidden(w, r)
		return
	}
	var req departmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	dept := &directory.Department{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(req.Name),
		HeadID: req.HeadID,
	}
	if err := a.stores.Departments.Create(r.Context(), dept); err != nil {
		if errors.Is(err, directory.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "department already exists")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, toDepartmentPayload(dept))
}

// updateDepartment gates department-manager writes on headship: managing
// the department, not merely working in it.
func (a *API) updateDepartment(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsOwnDepartment(r.Context(), principal, id):
	default:
		forbidden(w, r)
		return
	}

	var req departmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dept, err := a.stores.Departments.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	dept.Name = strings.TrimSpace(req.Name)
	dept.HeadID = req.HeadID

	if err := a.stores.Departments.Update(r.Context(), dept); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentPayload(dept))
}

func (a *API) deleteDepartment(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager) {
		forbidden(w, r)
		return
	}
	if err := a.stores.Departments.Delete(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
