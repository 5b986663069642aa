package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service handles the credential flow: login, token refresh, account
// registration and logout. Token issuance itself lives in TokenService;
// this layer owns the user lookups around it.
type Service struct {
	users  UserStore
	tokens *TokenService
	now    func() time.Time
}

// TokenPair carries freshly minted access and refresh tokens.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the credential service.
func NewService(users UserStore, tokens *TokenService, opts ...ServiceOption) *Service {
	svc := &Service{users: users, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login verifies the credentials and issues a fresh token pair. All
// credential failures collapse into ErrInvalidCredentials so responses do
// not reveal whether the username exists.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, *User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.mint(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a new access+refresh pair.
// The user is reloaded so a role change since issuance is reflected in the
// new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, *User, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}
	user, err := s.users.Find(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, nil, ErrTokenInvalid
		}
		return TokenPair{}, nil, err
	}
	pair, err := s.mint(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// mint issues a matched access+refresh pair for the user.
func (s *Service) mint(user *User) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Register creates a new account with a hashed password. Role gating
// (system admin only) happens at the HTTP layer.
func (s *Service) Register(ctx context.Context, username, password string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("auth: username and password are required")
	}
	if !role.Valid() {
		return nil, errors.New("auth: unknown role")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Provision creates a credentialed account linked to an employee record.
// A random temporary password is generated and returned exactly once;
// only its hash is stored. The caller is expected to hand the credential
// to the employee out of band.
func (s *Service) Provision(ctx context.Context, username string, role Role, employeeID, departmentID string) (*User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, "", errors.New("auth: username is required")
	}
	if !role.Valid() {
		return nil, "", errors.New("auth: unknown role")
	}
	if strings.TrimSpace(employeeID) == "" {
		return nil, "", errors.New("auth: employee id is required")
	}
	password, err := temporaryPassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		EmployeeID:   employeeID,
		DepartmentID: departmentID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	return user, password, nil
}

func temporaryPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Logout resolves the token's subject for audit logging. Tokens are
// stateless, so there is nothing to invalidate server-side; the client is
// expected to discard the pair.
func (s *Service) Logout(token string) (string, error) {
	return s.tokens.ExtractUsername(token)
}
