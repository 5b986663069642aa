package auth

import "errors"

var (
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenInvalid       = errors.New("auth: invalid token")
	ErrTokenWrongType     = errors.New("auth: wrong token type")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrWeakSecret         = errors.New("auth: signing secret shorter than 32 bytes")
)
