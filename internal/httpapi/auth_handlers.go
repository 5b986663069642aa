package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"staffhub.org/internal/audit"
	"staffhub.org/internal/auth"
	"staffhub.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userPayload struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	EmployeeID   string `json:"employeeId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
}

type authResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
	User         userPayload `json:"user"`
}

func toUserPayload(u *auth.User) userPayload {
	return userPayload{
		ID:           u.ID,
		Username:     u.Username,
		Role:         string(u.Role),
		EmployeeID:   u.EmployeeID,
		DepartmentID: u.DepartmentID,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, user, err := a.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.AuthFailure("bad_credentials")
			writeError(w, r, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"username": user.Username,
		"role":     string(user.Role),
	})
	writeJSON(w, http.StatusOK, authResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(a.tokens.AccessTTL().Seconds()),
		User:         toUserPayload(user),
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, user, err := a.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			obs.AuthFailure("refresh_expired")
			writeError(w, r, http.StatusUnauthorized, "refresh token has expired")
		case errors.Is(err, auth.ErrTokenWrongType), errors.Is(err, auth.ErrTokenInvalid):
			obs.AuthFailure("refresh_invalid")
			writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		default:
			writeError(w, r, http.StatusInternalServerError, "token refresh failed")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"username": user.Username,
	})
	writeJSON(w, http.StatusOK, authResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(a.tokens.AccessTTL().Seconds()),
		User:         toUserPayload(user),
	})
}

// handleRegister creates accounts. System admin only, and only admin or HR
// accounts can be created this way; employee and department-manager logins
// are provisioned per employee record under /api/employees/{id}/account.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, okRole := auth.ParseRole(req.Role)
	if !okRole || (role != auth.RoleSystemAdmin && role != auth.RoleHRManager) {
		writeError(w, r, http.StatusBadRequest, "role must be SYSTEM_ADMIN or HR_MANAGER")
		return
	}

	user, err := a.authSvc.Register(r.Context(), req.Username, req.Password, role)
	if err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "username already exists")
			return
		}
		writeError(w, r, http.StatusBadRequest, "registration failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"username": user.Username,
		"role":     string(user.Role),
	})
	writeJSON(w, http.StatusCreated, toUserPayload(user))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" {
		if token, err := extractBearerToken(header); err == nil {
			if username, err := a.authSvc.Logout(token); err == nil {
				_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
					"username": username,
				})
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}
