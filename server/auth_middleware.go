package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-user-auth/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the authenticated user's public view
const ContextKeyIdentity ContextKey = "identity"

// RequireAuth is the access guard for protected routes. It verifies the
// Bearer access token and rejects any token minted before the user's last
// revocation (token version mismatch). The authenticated identity is injected
// into the request context; the password hash never leaves the auth layer.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Missing Authorization header."})
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid Authorization header format."})
				return
			}

			claims, err := s.tokens.VerifyAccess(parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid or expired token."})
				return
			}

			// CurrentUser distinguishes a revoked/unknown identity from a
			// store failure; only the former is a 401.
			user, err := s.auth.CurrentUser(r.Context(), claims)
			if err != nil {
				s.respondError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, user.PublicView())
			next(w, r.WithContext(ctx))
		}
	}
}

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(ctx context.Context) (users.PublicView, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(users.PublicView)
	return identity, ok
}
