package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
	"staffhub.org/internal/policy"
)

type taskRequest struct {
	ProjectID  string `json:"projectId"`
	AssigneeID string `json:"assigneeId"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	DueDate    string `json:"dueDate,omitempty"` // RFC 3339
}

type taskPayload struct {
	ID         string `json:"id"`
	ProjectID  string `json:"projectId"`
	AssigneeID string `json:"assigneeId,omitempty"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	DueDate    string `json:"dueDate,omitempty"`
}

func toTaskPayload(t *directory.Task) taskPayload {
	p := taskPayload{
		ID:         t.ID,
		ProjectID:  t.ProjectID,
		AssigneeID: t.AssigneeID,
		Title:      t.Title,
		Status:     t.Status,
	}
	if !t.DueDate.IsZero() {
		p.DueDate = t.DueDate.UTC().Format(time.RFC3339)
	}
	return p
}

func (a *API) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTasks(w, r)
	case http.MethodPost:
		a.createTask(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r, "/api/tasks/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getTask(w, r, id)
	case http.MethodPut:
		a.updateTask(w, r, id)
	case http.MethodDelete:
		a.deleteTask(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// listTasks: employees see only their own assignments, department managers
// their department's tasks, admins and HR everything.
func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	scope := policy.ScopeFor(principal, policy.ResourceTasks)
	if scope.Empty() {
		writePage(w, r, []taskPayload{})
		return
	}
	tasks, err := a.stores.Tasks.List(r.Context(), scope.Filter())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]taskPayload, 0, len(tasks))
	for i := range tasks {
		items = append(items, toTaskPayload(&tasks[i]))
	}
	writePage(w, r, items)
}

// getTask answers 404 rather than 403 when the task exists outside the
// caller's scope, so the response does not confirm the id is real.
func (a *API) getTask(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	task, err := a.stores.Tasks.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsTaskInOwnDepartment(r.Context(), principal, id):
	case a.policy.IsTaskAssignedToUser(r.Context(), principal, id):
	default:
		notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, toTaskPayload(task))
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsProjectInOwnDepartmentByProjectID(r.Context(), principal, req.ProjectID):
	// An employee may open a task for themselves on a project they are
	// assigned to.
	case principal.Role == auth.RoleEmployee &&
		req.AssigneeID == principal.EmployeeID &&
		a.policy.IsProjectAssignedToUser(r.Context(), principal, req.ProjectID):
	default:
		forbidden(w, r)
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.ProjectID == "" {
		writeError(w, r, http.StatusBadRequest, "title and projectId are required")
		return
	}
	task := &directory.Task{
		ID:         uuid.NewString(),
		ProjectID:  req.ProjectID,
		AssigneeID: req.AssigneeID,
		Title:      strings.TrimSpace(req.Title),
		Status:     req.Status,
	}
	if req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "dueDate must be RFC 3339")
			return
		}
		task.DueDate = due
	}
	if err := a.stores.Tasks.Create(r.Context(), task); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, toTaskPayload(task))
}

// updateTask: the assignee may update their own task; department managers
// need headship over the task's project department; admins and HR are
// unrestricted.
func (a *API) updateTask(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsTaskInOwnDepartment(r.Context(), principal, id):
	case a.policy.IsTaskAssignedToUser(r.Context(), principal, id):
	default:
		forbidden(w, r)
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	task, err := a.stores.Tasks.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Title != "" {
		task.Title = strings.TrimSpace(req.Title)
	}
	if req.Status != "" {
		task.Status = req.Status
	}
	if req.AssigneeID != "" {
		task.AssigneeID = req.AssigneeID
	}
	if req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "dueDate must be RFC 3339")
			return
		}
		task.DueDate = due
	}

	if err := a.stores.Tasks.Update(r.Context(), task); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toTaskPayload(task))
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case principal.HasRole(auth.RoleSystemAdmin, auth.RoleHRManager):
	case principal.Role == auth.RoleDepartmentManager && a.policy.IsTaskInOwnDepartment(r.Context(), principal, id):
	default:
		forbidden(w, r)
		return
	}
	if err := a.stores.Tasks.Delete(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			notFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
