package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/directory"
	"staffhub.org/internal/obs"
	"staffhub.org/internal/policy"
	"staffhub.org/internal/ratelimit"
)

// ReadyProbe checks readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Stores bundles the persistence collaborators the handlers use.
type Stores struct {
	Employees   directory.EmployeeStore
	Departments directory.DepartmentStore
	Projects    directory.ProjectStore
	Tasks       directory.TaskStore
	Memberships directory.EmployeeProjectStore
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	authSvc *auth.Service
	tokens  *auth.TokenService
	limiter *ratelimit.Limiter
	policy  *policy.Policy
	stores  Stores
}

// New wires routes and middleware dependencies.
func New(rp ReadyProbe, version string, authSvc *auth.Service, tokens *auth.TokenService, limiter *ratelimit.Limiter, pol *policy.Policy, stores Stores) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		authSvc:    authSvc,
		tokens:     tokens,
		limiter:    limiter,
		policy:     pol,
		stores:     stores,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/refresh", a.handleRefresh)
	a.mux.Handle("/api/auth/register", RequireRole(auth.RoleSystemAdmin)(http.HandlerFunc(a.handleRegister)))
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/api/employees", a.handleEmployeesCollection)
	a.mux.HandleFunc("/api/employees/", a.handleEmployeeResource)
	a.mux.HandleFunc("/api/departments", a.handleDepartmentsCollection)
	a.mux.HandleFunc("/api/departments/", a.handleDepartmentResource)
	a.mux.HandleFunc("/api/projects", a.handleProjectsCollection)
	a.mux.HandleFunc("/api/projects/", a.handleProjectResource)
	a.mux.HandleFunc("/api/tasks", a.handleTasksCollection)
	a.mux.HandleFunc("/api/tasks/", a.handleTaskResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux. Rate limiting
// runs before authentication so over-quota clients never reach token
// validation.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = Authenticate(h, a.tokens)
	h = RateLimit(h, a.limiter)
	h = MaxBodyBytes(h, 1<<20)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// requirePrincipal rejects unauthenticated requests with 401. Handlers for
// protected resources call it first; anonymous access ends here, not in
// the authentication middleware.
func (a *API) requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="staffhub"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}
