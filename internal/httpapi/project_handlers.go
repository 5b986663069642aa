package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
	"staffhub.org/internal/policy"
)

type projectRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DepartmentID string `json:"departmentId"`
}

type projectPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
}

func toProjectPayload(p *directory.Project) projectPayload {
	return projectPayload{ID: p.ID, Name: p.Name, Description: p.Description, DepartmentID: p.DepartmentID}
}

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProjects(w, r)
	case http.MethodPost:
		a.createProject(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/projects/")
	switch {
	case len(segments) == 2 && segments[1] == "members":
		if !validID(w, r, segments[0]) {
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.assignMember(w, r, segments[0])
		return
	case len(segments) == 3 && segments[1] == "members":
		if !validID(w, r, segments[0]) || !validID(w, r, segments[2]) {
			return
		}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.removeMember(w, r, segments[0], segments[2])
		return
	case len(segments) != 1:
		notFound(w, r)
		return
	}

	id, ok := resourceID(w, r, "/api/projects/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getProject(w, r, id)
	case http.MethodPut:
		a.updateProject(w, r, id)
	case http.MethodDelete:
		a.deleteProject(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	scope := policy.ScopeFor(principal, policy.ResourceProjects)
	if scope.Empty() {
		writePage(w, r, []projectPayload{})
		return
	}
	projects, err := a.stores.Projects.List(r.Context(), scope.Filter())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]projectPayload, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectPayload(&projects[i]))
	}
	writePage(w, r, items)
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.requirePrincipal(w, r); !ok {
		return
	}
	proj, err := a.stores.Projects.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toProjectPayload(proj))
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsOwnDepartment(r.Context(), principal, req.DepartmentID):
	default:
		forbidden(w, r)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	proj := &directory.Project{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		DepartmentID: req.DepartmentID,
	}
	if err := a.stores.Projects.Create(r.Context(), proj); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, toProjectPayload(proj))
}

// updateProject: department managers may edit only projects whose
// department they head.
func (a *API) updateProject(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsProjectInOwnDepartmentByProjectID(r.Context(), principal, id):
	default:
		forbidden(w, r)
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	proj, err := a.stores.Projects.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	proj.Name = strings.TrimSpace(req.Name)
	proj.Description = strings.TrimSpace(req.Description)
	if req.DepartmentID != "" {
		proj.DepartmentID = req.DepartmentID
	}

	if err := a.stores.Projects.Update(r.Context(), proj); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toProjectPayload(proj))
}

func (a *API) deleteProject(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsProjectInOwnDepartmentByProjectID(r.Context(), principal, id):
	default:
		forbidden(w, r)
		return
	}
	if err := a.stores.Projects.Delete(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
