package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
	"staffhub.org/internal/policy"
	"staffhub.org/internal/ratelimit"
)

// Fixture ids. Path routing validates UUIDs, so fakes use real ones.
const (
	deptEng   = "aaaaaaaa-0000-4000-8000-000000000001"
	deptSales = "aaaaaaaa-0000-4000-8000-000000000002"

	empHead   = "bbbbbbbb-0000-4000-8000-000000000001"
	empMember = "bbbbbbbb-0000-4000-8000-000000000002"
	empSales  = "bbbbbbbb-0000-4000-8000-000000000003"

	projEng   = "cccccccc-0000-4000-8000-000000000001"
	projSales = "cccccccc-0000-4000-8000-000000000002"

	taskEng   = "dddddddd-0000-4000-8000-000000000001"
	taskSales = "dddddddd-0000-4000-8000-000000000002"
)

// In-memory fakes ----------------------------------------------------------

type fakeUserStore struct {
	byID       map[string]*auth.User
	byUsername map[string]*auth.User
}

func (s *fakeUserStore) Create(_ context.Context, u *auth.User) error {
	if _, ok := s.byUsername[u.Username]; ok {
		return auth.ErrAlreadyExists
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byUsername[u.Username] = &cp
	return nil
}

func (s *fakeUserStore) Find(_ context.Context, id string) (*auth.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	u, ok := s.byUsername[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	if u, ok := s.byID[id]; ok {
		u.LastLogin = at
		return nil
	}
	return auth.ErrNotFound
}

type fakeEmployeeStore struct{ items map[string]directory.Employee }

func (s *fakeEmployeeStore) Create(_ context.Context, e *directory.Employee) error {
	if _, ok := s.items[e.ID]; ok {
		return directory.ErrAlreadyExists
	}
	s.items[e.ID] = *e
	return nil
}

func (s *fakeEmployeeStore) Find(_ context.Context, id string) (*directory.Employee, error) {
	e, ok := s.items[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &e, nil
}

func (s *fakeEmployeeStore) List(_ context.Context, filter directory.ListFilter) ([]directory.Employee, error) {
	var out []directory.Employee
	for _, e := range s.items {
		if filter.DepartmentID != "" && e.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.EmployeeID != "" && e.ID != filter.EmployeeID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeEmployeeStore) Update(_ context.Context, e *directory.Employee) error {
	if _, ok := s.items[e.ID]; !ok {
		return directory.ErrNotFound
	}
	s.items[e.ID] = *e
	return nil
}

func (s *fakeEmployeeStore) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return directory.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type fakeDepartmentStore struct{ items map[string]directory.Department }

func (s *fakeDepartmentStore) Create(_ context.Context, d *directory.Department) error {
	if _, ok := s.items[d.ID]; ok {
		return directory.ErrAlreadyExists
	}
	s.items[d.ID] = *d
	return nil
}

func (s *fakeDepartmentStore) Find(_ context.Context, id string) (*directory.Department, error) {
	d, ok := s.items[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &d, nil
}

func (s *fakeDepartmentStore) List(_ context.Context) ([]directory.Department, error) {
	var out []directory.Department
	for _, d := range s.items {
		out = append(out, d)
	}
	return out, nil
}

func (s *fakeDepartmentStore) Update(_ context.Context, d *directory.Department) error {
	if _, ok := s.items[d.ID]; !ok {
		return directory.ErrNotFound
	}
	s.items[d.ID] = *d
	return nil
}

func (s *fakeDepartmentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return directory.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type fakeMembershipStore struct{ items map[string]directory.EmployeeProject }

func membershipKey(employeeID, projectID string) string { return employeeID + "|" + projectID }

func (s *fakeMembershipStore) Assign(_ context.Context, employeeID, projectID string) error {
	key := membershipKey(employeeID, projectID)
	if _, ok := s.items[key]; ok {
		return directory.ErrAlreadyExists
	}
	s.items[key] = directory.EmployeeProject{EmployeeID: employeeID, ProjectID: projectID, AssignedAt: time.Now()}
	return nil
}

func (s *fakeMembershipStore) Remove(_ context.Context, employeeID, projectID string) error {
	key := membershipKey(employeeID, projectID)
	if _, ok := s.items[key]; !ok {
		return directory.ErrNotFound
	}
	delete(s.items, key)
	return nil
}

func (s *fakeMembershipStore) Exists(_ context.Context, employeeID, projectID string) (bool, error) {
	_, ok := s.items[membershipKey(employeeID, projectID)]
	return ok, nil
}

func (s *fakeMembershipStore) ListByEmployee(_ context.Context, employeeID string) ([]directory.EmployeeProject, error) {
	var out []directory.EmployeeProject
	for _, m := range s.items {
		if m.EmployeeID == employeeID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeProjectStore struct {
	items       map[string]directory.Project
	memberships *fakeMembershipStore
}

func (s *fakeProjectStore) Create(_ context.Context, p *directory.Project) error {
	if _, ok := s.items[p.ID]; ok {
		return directory.ErrAlreadyExists
	}
	s.items[p.ID] = *p
	return nil
}

func (s *fakeProjectStore) Find(_ context.Context, id string) (*directory.Project, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &p, nil
}

func (s *fakeProjectStore) List(ctx context.Context, filter directory.ListFilter) ([]directory.Project, error) {
	var out []directory.Project
	for _, p := range s.items {
		if filter.DepartmentID != "" && p.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.EmployeeID != "" {
			member, _ := s.memberships.Exists(ctx, filter.EmployeeID, p.ID)
			if !member {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeProjectStore) Update(_ context.Context, p *directory.Project) error {
	if _, ok := s.items[p.ID]; !ok {
		return directory.ErrNotFound
	}
	s.items[p.ID] = *p
	return nil
}

func (s *fakeProjectStore) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return directory.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type fakeTaskStore struct {
	items    map[string]directory.Task
	projects *fakeProjectStore
}

func (s *fakeTaskStore) Create(_ context.Context, t *directory.Task) error {
	if _, ok := s.items[t.ID]; ok {
		return directory.ErrAlreadyExists
	}
	s.items[t.ID] = *t
	return nil
}

func (s *fakeTaskStore) Find(_ context.Context, id string) (*directory.Task, error) {
	t, ok := s.items[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &t, nil
}

func (s *fakeTaskStore) List(ctx context.Context, filter directory.ListFilter) ([]directory.Task, error) {
	var out []directory.Task
	for _, t := range s.items {
		if filter.EmployeeID != "" && t.AssigneeID != filter.EmployeeID {
			continue
		}
		if filter.DepartmentID != "" {
			p, err := s.projects.Find(ctx, t.ProjectID)
			if err != nil || p.DepartmentID != filter.DepartmentID {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeTaskStore) Update(_ context.Context, t *directory.Task) error {
	if _, ok := s.items[t.ID]; !ok {
		return directory.ErrNotFound
	}
	s.items[t.ID] = *t
	return nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return directory.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Fixture ------------------------------------------------------------------

type fixture struct {
	api     *API
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens := newTokenService(t)
	users := &fakeUserStore{byID: map[string]*auth.User{}, byUsername: map[string]*auth.User{}}
	authSvc := auth.NewService(users, tokens)

	seed := func(username string, role auth.Role, employeeID, departmentID string) {
		hash, err := auth.HashPassword("pw-" + username)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		err = users.Create(context.Background(), &auth.User{
			ID:           "user-" + username,
			Username:     username,
			PasswordHash: hash,
			Role:         role,
			EmployeeID:   employeeID,
			DepartmentID: departmentID,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", username, err)
		}
	}
	seed("root", auth.RoleSystemAdmin, "", "")
	seed("hr", auth.RoleHRManager, "", "")
	seed("dm", auth.RoleDepartmentManager, empHead, deptEng)
	seed("emp", auth.RoleEmployee, empMember, deptEng)

	departments := &fakeDepartmentStore{items: map[string]directory.Department{
		deptEng:   {ID: deptEng, Name: "Engineering", HeadID: empHead},
		deptSales: {ID: deptSales, Name: "Sales"},
	}}
	employees := &fakeEmployeeStore{items: map[string]directory.Employee{
		empHead:   {ID: empHead, FirstName: "Hana", Email: "hana@example.com", DepartmentID: deptEng},
		empMember: {ID: empMember, FirstName: "Mia", Email: "mia@example.com", DepartmentID: deptEng, ManagerID: empHead},
		empSales:  {ID: empSales, FirstName: "Sam", Email: "sam@example.com", DepartmentID: deptSales},
	}}
	memberships := &fakeMembershipStore{items: map[string]directory.EmployeeProject{}}
	_ = memberships.Assign(context.Background(), empMember, projEng)
	projects := &fakeProjectStore{items: map[string]directory.Project{
		projEng:   {ID: projEng, Name: "Platform", DepartmentID: deptEng},
		projSales: {ID: projSales, Name: "CRM", DepartmentID: deptSales},
	}, memberships: memberships}
	tasks := &fakeTaskStore{items: map[string]directory.Task{
		taskEng:   {ID: taskEng, ProjectID: projEng, AssigneeID: empMember, Title: "Ship it", Status: "IN_PROGRESS"},
		taskSales: {ID: taskSales, ProjectID: projSales, AssigneeID: empSales, Title: "Close deal", Status: "TODO"},
	}, projects: projects}

	pol := policy.New(employees, departments, projects, tasks, memberships)

	limiter, err := ratelimit.New(map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassLogin:   {Requests: 100, Window: time.Hour},
		ratelimit.ClassGeneral: {Requests: 1000, Window: time.Hour},
	})
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}

	api := New(ReadyProbe{}, "test", authSvc, tokens, limiter, pol, Stores{
		Employees:   employees,
		Departments: departments,
		Projects:    projects,
		Tasks:       tasks,
		Memberships: memberships,
	})
	return &fixture{api: api, handler: api.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:5000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, username string) authResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: username, Password: "pw-" + username})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

// Tests --------------------------------------------------------------------

func TestLoginAndRefreshFlow(t *testing.T) {
	fx := newFixture(t)

	resp := fx.login(t, "dm")
	if resp.Token == "" || resp.RefreshToken == "" || resp.ExpiresIn != int64((24*time.Hour).Seconds()) {
		t.Fatalf("incomplete login response: %+v", resp)
	}
	if resp.User.Role != string(auth.RoleDepartmentManager) || resp.User.DepartmentID != deptEng {
		t.Fatalf("user payload wrong: %+v", resp.User)
	}

	if rec := fx.do(t, http.MethodGet, "/api/employees", resp.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("access token rejected: %d %s", rec.Code, rec.Body.String())
	}

	rec := fx.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: resp.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	var refreshed authResponse
	if err := json.NewDecoder(rec.Body).Decode(&refreshed); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if rec := fx.do(t, http.MethodGet, "/api/tasks", refreshed.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("refreshed token rejected: %d", rec.Code)
	}

	rec = fx.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: resp.Token})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access token accepted for refresh: %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Message != "invalid refresh token" {
		t.Fatalf("unexpected refresh error: %q", body.Message)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "dm", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Message != "invalid username or password" {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}

func TestRegisterIsAdminOnly(t *testing.T) {
	fx := newFixture(t)
	payload := registerRequest{Username: "newhr", Password: "secret1", Role: "HR_MANAGER"}

	if rec := fx.do(t, http.MethodPost, "/api/auth/register", "", payload); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous register: expected 401, got %d", rec.Code)
	}

	emp := fx.login(t, "emp")
	if rec := fx.do(t, http.MethodPost, "/api/auth/register", emp.Token, payload); rec.Code != http.StatusForbidden {
		t.Fatalf("employee register: expected 403, got %d", rec.Code)
	}

	admin := fx.login(t, "root")
	rec := fx.do(t, http.MethodPost, "/api/auth/register", admin.Token, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin register: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := fx.do(t, http.MethodPost, "/api/auth/register", admin.Token, payload); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	bad := registerRequest{Username: "grunt", Password: "secret1", Role: "EMPLOYEE"}
	if rec := fx.do(t, http.MethodPost, "/api/auth/register", admin.Token, bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("employee role via register: expected 400, got %d", rec.Code)
	}
}

func TestEmployeeListScoping(t *testing.T) {
	fx := newFixture(t)

	listNames := func(token string) map[string]bool {
		rec := fx.do(t, http.MethodGet, "/api/employees", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list employees: %d %s", rec.Code, rec.Body.String())
		}
		var page struct {
			Content []employeePayload `json:"content"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		got := make(map[string]bool, len(page.Content))
		for _, item := range page.Content {
			got[item.ID] = true
		}
		return got
	}

	admin := fx.login(t, "root")
	if got := listNames(admin.Token); len(got) != 3 {
		t.Fatalf("admin should see all employees, got %v", got)
	}

	dm := fx.login(t, "dm")
	got := listNames(dm.Token)
	if !got[empHead] || !got[empMember] || got[empSales] {
		t.Fatalf("manager scope leaked outside department: %v", got)
	}

	if rec := fx.do(t, http.MethodGet, "/api/employees", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", rec.Code)
	}
}

func TestEmployeeReadScoping(t *testing.T) {
	fx := newFixture(t)

	admin := fx.login(t, "root")
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empSales, admin.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin point read: %d %s", rec.Code, rec.Body.String())
	}

	dm := fx.login(t, "dm")
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empMember, dm.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("manager denied own department member: %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empSales, dm.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("manager read outside department: expected 403, got %d", rec.Code)
	}

	emp := fx.login(t, "emp")
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empMember, emp.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("employee denied own record: %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empSales, emp.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("employee read of foreign record: expected 403, got %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empHead, emp.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("employee read of colleague record: expected 403, got %d", rec.Code)
	}
}

func TestTaskScopingAndVisibility(t *testing.T) {
	fx := newFixture(t)

	emp := fx.login(t, "emp")
	rec := fx.do(t, http.MethodGet, "/api/tasks", emp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list tasks: %d", rec.Code)
	}
	var page struct {
		Content []taskPayload `json:"content"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].ID != taskEng {
		t.Fatalf("employee should see exactly their assignment: %+v", page.Content)
	}

	if rec := fx.do(t, http.MethodGet, "/api/tasks/"+taskEng, emp.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("own task denied: %d", rec.Code)
	}
	// Out-of-scope task reads as missing, not forbidden.
	if rec := fx.do(t, http.MethodGet, "/api/tasks/"+taskSales, emp.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign task: expected 404, got %d", rec.Code)
	}

	dm := fx.login(t, "dm")
	if rec := fx.do(t, http.MethodGet, "/api/tasks/"+taskEng, dm.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("department task denied to manager: %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/api/tasks/"+taskSales, dm.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign department task: expected 404, got %d", rec.Code)
	}
}

func TestEmployeeSelfTaskCreation(t *testing.T) {
	fx := newFixture(t)
	emp := fx.login(t, "emp")

	ownTask := taskRequest{ProjectID: projEng, AssigneeID: empMember, Title: "Write docs"}
	rec := fx.do(t, http.MethodPost, "/api/tasks", emp.Token, ownTask)
	if rec.Code != http.StatusCreated {
		t.Fatalf("self-assigned task on own project: expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	foreignProject := taskRequest{ProjectID: projSales, AssigneeID: empMember, Title: "Sneaky"}
	if rec := fx.do(t, http.MethodPost, "/api/tasks", emp.Token, foreignProject); rec.Code != http.StatusForbidden {
		t.Fatalf("task on unassigned project: expected 403, got %d", rec.Code)
	}

	forOther := taskRequest{ProjectID: projEng, AssigneeID: empHead, Title: "Delegating up"}
	if rec := fx.do(t, http.MethodPost, "/api/tasks", emp.Token, forOther); rec.Code != http.StatusForbidden {
		t.Fatalf("task assigned to someone else: expected 403, got %d", rec.Code)
	}
}

func TestProjectMembershipLifecycle(t *testing.T) {
	fx := newFixture(t)
	dm := fx.login(t, "dm")

	assign := membershipRequest{EmployeeID: empHead}
	rec := fx.do(t, http.MethodPost, "/api/projects/"+projEng+"/members", dm.Token, assign)
	if rec.Code != http.StatusCreated {
		t.Fatalf("assign member: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := fx.do(t, http.MethodPost, "/api/projects/"+projEng+"/members", dm.Token, assign); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate assignment: expected 409, got %d", rec.Code)
	}

	ghost := membershipRequest{EmployeeID: "eeeeeeee-0000-4000-8000-00000000dead"}
	if rec := fx.do(t, http.MethodPost, "/api/projects/"+projEng+"/members", dm.Token, ghost); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown employee: expected 400, got %d", rec.Code)
	}

	// The manager heads engineering, not sales.
	if rec := fx.do(t, http.MethodPost, "/api/projects/"+projSales+"/members", dm.Token, assign); rec.Code != http.StatusForbidden {
		t.Fatalf("staffing a foreign project: expected 403, got %d", rec.Code)
	}

	rec = fx.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%s/members/%s", projEng, empHead), dm.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove member: expected 204, got %d %s", rec.Code, rec.Body.String())
	}
	rec = fx.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%s/members/%s", projEng, empHead), dm.Token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove absent member: expected 404, got %d", rec.Code)
	}
}

func TestEmployeeProjectsListing(t *testing.T) {
	fx := newFixture(t)

	emp := fx.login(t, "emp")
	rec := fx.do(t, http.MethodGet, "/api/employees/"+empMember+"/projects", emp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own projects listing: %d %s", rec.Code, rec.Body.String())
	}
	var items []membershipPayload
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode memberships: %v", err)
	}
	if len(items) != 1 || items[0].ProjectID != projEng {
		t.Fatalf("unexpected memberships: %+v", items)
	}

	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empSales+"/projects", emp.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign memberships: expected 403, got %d", rec.Code)
	}

	dm := fx.login(t, "dm")
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empMember+"/projects", dm.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("manager denied department member's projects: %d", rec.Code)
	}
}

func TestDepartmentWriteRequiresHeadship(t *testing.T) {
	fx := newFixture(t)
	update := map[string]string{"name": "Engineering & Research"}

	dm := fx.login(t, "dm")
	if rec := fx.do(t, http.MethodPut, "/api/departments/"+deptEng, dm.Token, update); rec.Code != http.StatusOK {
		t.Fatalf("head denied own department update: %d %s", rec.Code, rec.Body.String())
	}
	if rec := fx.do(t, http.MethodPut, "/api/departments/"+deptSales, dm.Token, update); rec.Code != http.StatusForbidden {
		t.Fatalf("non-head department update: expected 403, got %d", rec.Code)
	}

	emp := fx.login(t, "emp")
	if rec := fx.do(t, http.MethodPut, "/api/departments/"+deptEng, emp.Token, update); rec.Code != http.StatusForbidden {
		t.Fatalf("member department update: expected 403, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	fx := newFixture(t)

	if rec := fx.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz without db: %d", rec.Code)
	}
	rec := fx.do(t, http.MethodGet, "/v1/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info: %d", rec.Code)
	}
	var info map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info["name"] != serviceName || info["version"] != "test" {
		t.Fatalf("unexpected info payload: %v", info)
	}
}

func TestEmployeeAccountProvisioning(t *testing.T) {
	fx := newFixture(t)

	hr := fx.login(t, "hr")
	rec := fx.do(t, http.MethodPost, "/api/employees/"+empSales+"/account", hr.Token, provisionRequest{Username: "sam"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("provision: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var resp provisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode provision response: %v", err)
	}
	if resp.TemporaryPassword == "" {
		t.Fatal("temporary password not returned")
	}
	if resp.User.Role != string(auth.RoleEmployee) || resp.User.EmployeeID != empSales || resp.User.DepartmentID != deptSales {
		t.Fatalf("account not linked to employee: %+v", resp.User)
	}

	login := fx.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "sam", Password: resp.TemporaryPassword})
	if login.Code != http.StatusOK {
		t.Fatalf("login with temporary password: %d %s", login.Code, login.Body.String())
	}
	var session authResponse
	if err := json.NewDecoder(login.Body).Decode(&session); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empSales, session.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("provisioned account denied own record: %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/api/employees/"+empMember, session.Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("provisioned account read foreign record: expected 403, got %d", rec.Code)
	}

	if rec := fx.do(t, http.MethodPost, "/api/employees/"+empMember+"/account", hr.Token, provisionRequest{Username: "sam"}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", rec.Code)
	}
	if rec := fx.do(t, http.MethodPost, "/api/employees/"+empHead+"/account", hr.Token, provisionRequest{Username: "hana", Role: "DEPARTMENT_MANAGER"}); rec.Code != http.StatusCreated {
		t.Fatalf("manager provisioning: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := fx.do(t, http.MethodPost, "/api/employees/"+empMember+"/account", hr.Token, provisionRequest{Username: "mia", Role: "SYSTEM_ADMIN"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("admin role via provisioning: expected 400, got %d", rec.Code)
	}

	ghost := "bbbbbbbb-0000-4000-8000-00000000dead"
	if rec := fx.do(t, http.MethodPost, "/api/employees/"+ghost+"/account", hr.Token, provisionRequest{Username: "nobody"}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown employee: expected 404, got %d", rec.Code)
	}

	emp := fx.login(t, "emp")
	if rec := fx.do(t, http.MethodPost, "/api/employees/"+empSales+"/account", emp.Token, provisionRequest{Username: "rogue"}); rec.Code != http.StatusForbidden {
		t.Fatalf("employee provisioning: expected 403, got %d", rec.Code)
	}
}

func TestListPagination(t *testing.T) {
	fx := newFixture(t)
	admin := fx.login(t, "root")

	fetch := func(path string) (items []employeePayload, totalElements, totalPages int) {
		rec := fx.do(t, http.MethodGet, path, admin.Token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list %s: %d %s", path, rec.Code, rec.Body.String())
		}
		var page struct {
			Content       []employeePayload `json:"content"`
			TotalElements int               `json:"totalElements"`
			TotalPages    int               `json:"totalPages"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
			t.Fatalf("decode page: %v", err)
		}
		return page.Content, page.TotalElements, page.TotalPages
	}

	items, total, pages := fetch("/api/employees")
	if len(items) != 3 || total != 3 || pages != 1 {
		t.Fatalf("default page: got %d items, total %d, pages %d", len(items), total, pages)
	}

	items, total, pages = fetch("/api/employees?page=0&size=2")
	if len(items) != 2 || total != 3 || pages != 2 {
		t.Fatalf("first page of two: got %d items, total %d, pages %d", len(items), total, pages)
	}
	items, _, _ = fetch("/api/employees?page=1&size=2")
	if len(items) != 1 {
		t.Fatalf("second page of two: got %d items", len(items))
	}
	items, total, _ = fetch("/api/employees?page=9&size=2")
	if len(items) != 0 || total != 3 {
		t.Fatalf("page past the end: got %d items, total %d", len(items), total)
	}

	// Unusable parameters fall back to defaults instead of erroring.
	items, _, _ = fetch("/api/employees?page=-1&size=bogus")
	if len(items) != 3 {
		t.Fatalf("bad parameters: got %d items", len(items))
	}
}

func TestUnknownIDRejectedBeforeLookup(t *testing.T) {
	fx := newFixture(t)
	admin := fx.login(t, "root")

	rec := fx.do(t, http.MethodGet, "/api/employees/not-a-uuid", admin.Token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Message != "invalid resource id" {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}
