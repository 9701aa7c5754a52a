package config

import "os"

const (
	accessSecretVar  = "JWT_SECRET"
	refreshSecretVar = "JWT_REFRESH_SECRET"
)

type Auth struct{}

var _ AuthConfig = Auth{}

// GetAccessSecret returns the access-token signing secret. No default exists
// on purpose: the token service refuses to start without it.
func (Auth) GetAccessSecret() string {
	return os.Getenv(accessSecretVar)
}

// GetRefreshSecret returns the refresh-token signing secret, which must be
// distinct from the access secret.
func (Auth) GetRefreshSecret() string {
	return os.Getenv(refreshSecretVar)
}
