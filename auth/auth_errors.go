package auth

import "errors"

var (
	ValidationErr         = errors.New("missing required fields")
	UserExistsErr         = errors.New("username or email already exists")
	UserNotFoundErr       = errors.New("user not found")
	InvalidCredentialsErr = errors.New("invalid credentials")
	UnauthorizedErr       = errors.New("unauthorized")

	// TokenReuseErr signals a refresh token that verified cryptographically
	// but does not match the user's stored token: a rotated-out or stolen
	// token was replayed. The session is force-revoked before this is
	// returned.
	TokenReuseErr = errors.New("refresh token reuse detected")
)
