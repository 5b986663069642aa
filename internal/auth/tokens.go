package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "staffhub"
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour

	// minSecretBytes is the hard floor for HMAC key material. Secrets
	// shorter than the hash block size weaken HS256 signatures, so
	// production configurations must provide at least this much.
	minSecretBytes = 32

	tokenTypeRefresh = "refresh"
)

// Claims is the decoded, verified payload of a signed token. Access tokens
// carry the role and identity claims; refresh tokens carry only the user id
// plus a type marker so the two can never be confused for one another.
type Claims struct {
	Role         Role   `json:"role,omitempty"`
	UserID       string `json:"userId"`
	EmployeeID   string `json:"employeeId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	TokenType    string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed, time-bound tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	permissive bool
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// Permissive disables the minimum secret length check. Development only;
// callers that enable it are expected to log the fact loudly.
func Permissive() TokenOption {
	return func(s *TokenService) { s.permissive = true }
}

// NewTokenService constructs a TokenService from the configured secret.
// If the secret base64-decodes to at least 64 bytes the decoded bytes are
// used as key material, otherwise the raw secret bytes are used directly.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	svc := &TokenService{
		key:        resolveKey(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if len(svc.key) == 0 {
		return nil, errors.New("auth: signing secret is not configured")
	}
	if len(svc.key) < minSecretBytes && !svc.permissive {
		return nil, ErrWeakSecret
	}
	return svc, nil
}

func resolveKey(secret string) []byte {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) >= 64 {
		return decoded
	}
	return []byte(secret)
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccessToken signs an access token for the given user. The token
// embeds role and user id, plus employee and department ids when the
// account is linked to an employee record.
func (s *TokenService) IssueAccessToken(user *User) (string, time.Time, error) {
	if user == nil || strings.TrimSpace(user.Username) == "" {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Role:         user.Role,
		UserID:       user.ID,
		EmployeeID:   user.EmployeeID,
		DepartmentID: user.DepartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefreshToken signs a refresh token carrying only the user id and a
// type marker. Refresh tokens are never accepted where access tokens are
// required, and vice versa.
func (s *TokenService) IssueRefreshToken(user *User) (string, time.Time, error) {
	if user == nil || strings.TrimSpace(user.Username) == "" {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.refreshTTL)
	claims := Claims{
		UserID:    user.ID,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies signature and expiry of an access token. A refresh
// token presented here fails with ErrTokenWrongType even though its
// signature is valid.
func (s *TokenService) Validate(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "" {
		return nil, ErrTokenWrongType
	}
	if !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ValidateRefresh verifies a refresh token. An access token presented here
// fails with ErrTokenWrongType.
func (s *TokenService) ValidateRefresh(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}

// parse verifies signature, expiry and issuer without caring about the
// token type. Signature comparison is constant-time inside the HMAC
// verifier.
func (s *TokenService) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExtractUsername returns the subject of a verified token of either type.
func (s *TokenService) ExtractUsername(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractExpiration returns the expiry of a verified token of either type.
func (s *TokenService) ExtractExpiration(token string) (time.Time, error) {
	claims, err := s.parse(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenInvalid
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired checks expiry locally without verifying the signature, so
// callers can short-circuit before attempting full validation. A token
// that cannot be parsed, or that carries no expiry claim, does not report
// as expired: full validation decides why it is rejected.
func (s *TokenService) IsExpired(token string) bool {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return s.now().After(claims.ExpiresAt.Time)
}
