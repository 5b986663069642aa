package auth

import (
	"context"
	"time"
)

// UserStore describes the persistence operations the auth subsystem needs.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
