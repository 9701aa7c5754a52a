package users

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by lookups when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned by Create when a user with the same
	// (username, email) pair already exists.
	ErrDuplicate = errors.New("user already exists")
)

// UserRepo persists user documents. Implementations must apply SetRefreshToken
// and RevokeSession as atomic single-document updates so a logout cannot race
// a concurrent refresh for the same user.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsernameEmail(ctx context.Context, username, email string) (*User, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*User, error)

	// SetRefreshToken stores token as the single currently-valid refresh
	// token for the user, replacing any previous one. The write is
	// conditional on the token version observed by the caller: it returns
	// ErrNotFound when the user no longer exists at expectedVersion, so a
	// rotation racing a revocation cannot resurrect the revoked session.
	SetRefreshToken(ctx context.Context, id string, token string, expectedVersion int) error

	// RevokeSession clears the stored refresh token and increments the
	// user's token version in one update.
	RevokeSession(ctx context.Context, id string) error
}
