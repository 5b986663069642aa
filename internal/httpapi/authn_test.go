package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staffhub.org/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTokenService(t *testing.T, opts ...auth.TokenOption) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testSecret, opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func issueAccess(t *testing.T, tokens *auth.TokenService, role auth.Role) string {
	t.Helper()
	token, _, err := tokens.IssueAccessToken(&auth.User{
		ID:           "u-1",
		Username:     "jdoe",
		Role:         role,
		EmployeeID:   "e-1",
		DepartmentID: "d-1",
	})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return token
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestAuthenticatePassesAnonymousThrough(t *testing.T) {
	tokens := newTokenService(t)

	var sawPrincipal bool
	h := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawPrincipal = auth.PrincipalFromContext(r.Context())
	}), tokens)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous request rejected: %d", rec.Code)
	}
	if sawPrincipal {
		t.Fatal("principal present without Authorization header")
	}
}

func TestAuthenticateAttachesPrincipal(t *testing.T) {
	tokens := newTokenService(t)
	token := issueAccess(t, tokens, auth.RoleDepartmentManager)

	var got auth.Principal
	h := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.PrincipalFromContext(r.Context())
	}), tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected: %d %s", rec.Code, rec.Body.String())
	}
	if got.UserID != "u-1" || got.Role != auth.RoleDepartmentManager || got.DepartmentID != "d-1" {
		t.Fatalf("principal not populated from claims: %+v", got)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	now := time.Now()
	tokens := newTokenService(t, auth.WithClock(func() time.Time { return now }), auth.WithAccessTTL(time.Minute))
	token := issueAccess(t, tokens, auth.RoleEmployee)
	now = now.Add(2 * time.Minute)

	h := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with expired token")
	}), tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.Message != "token has expired" {
		t.Fatalf("expected expiry message, got %q", body.Message)
	}
	if body.Status != http.StatusUnauthorized || body.Error != "Unauthorized" {
		t.Fatalf("unexpected error envelope: %+v", body)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	tokens := newTokenService(t)
	h := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with bad credentials")
	}), tokens)

	for _, header := range []string{
		"Basic dXNlcjpwYXNz",
		"Bearer ",
		"Bearer not.a.token",
		"Bearer " + "eyJhbGciOiJIUzI1NiJ9.e30.bad-signature",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		// Garbage is invalid, never expired: the message tells clients
		// whether to refresh or re-login.
		if body := decodeErrorBody(t, rec); body.Message != "invalid token" {
			t.Fatalf("header %q: expected invalid token message, got %q", header, body.Message)
		}
	}
}

func TestAuthenticateRejectsRefreshTokenAsAccess(t *testing.T) {
	tokens := newTokenService(t)
	refresh, _, err := tokens.IssueRefreshToken(&auth.User{ID: "u-1", Username: "jdoe", Role: auth.RoleEmployee})
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	h := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with refresh token")
	}), tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Message != "invalid token" {
		t.Fatalf("expected invalid token message, got %q", body.Message)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := RequireRole(auth.RoleSystemAdmin, auth.RoleHRManager)(next)

	// No principal: 401 with a challenge.
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("missing WWW-Authenticate challenge")
	}

	// Wrong role: 403 with a generic message.
	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{Role: auth.RoleEmployee}))
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Message != "access denied" {
		t.Fatalf("403 message must stay generic, got %q", body.Message)
	}

	// Matching role passes.
	req = httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{Role: auth.RoleHRManager}))
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
