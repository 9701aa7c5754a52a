package server

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/users"
)

const refreshTokenCookie = "refreshToken"

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	Message     string           `json:"message,omitempty"`
	User        users.PublicView `json:"user"`
	AccessToken string           `json:"accessToken"`
}

// RegisterRequest payload
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Email, validation.Required),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LogoutRequest payload
type LogoutRequest struct {
	Email string `json:"email"`
}

func (r LogoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
	)
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload RegisterRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body."})
			return
		}
		if err := payload.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "All fields are required."})
			return
		}

		session, err := s.auth.Register(r.Context(), payload.Username, payload.Password, payload.Email)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.setRefreshCookie(w, session.RefreshToken)
		writeJSON(w, http.StatusCreated, sessionResponse{
			Message:     "User registered successfully.",
			User:        session.User,
			AccessToken: session.AccessToken,
		})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload LoginRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body."})
			return
		}
		if err := payload.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Email and password are required."})
			return
		}

		session, err := s.auth.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.setRefreshCookie(w, session.RefreshToken)
		writeJSON(w, http.StatusOK, sessionResponse{
			Message:     "User logged in successfully.",
			User:        session.User,
			AccessToken: session.AccessToken,
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload LogoutRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body."})
			return
		}
		if err := payload.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Email is required."})
			return
		}

		if err := s.auth.Logout(r.Context(), payload.Email, refreshTokenFromCookie(r)); err != nil {
			s.respondError(w, err)
			return
		}

		s.clearRefreshCookie(w)
		writeJSON(w, http.StatusOK, messageResponse{Message: "User logged out successfully."})
	}
}

func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken := refreshTokenFromCookie(r)
		if refreshToken == "" {
			writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized."})
			return
		}

		session, err := s.auth.Refresh(r.Context(), refreshToken)
		if err != nil {
			if errors.Is(err, auth.TokenReuseErr) || errors.Is(err, auth.UnauthorizedErr) {
				s.clearRefreshCookie(w)
			}
			s.respondError(w, err)
			return
		}

		s.setRefreshCookie(w, session.RefreshToken)
		writeJSON(w, http.StatusOK, sessionResponse{
			User:        session.User,
			AccessToken: session.AccessToken,
		})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]users.PublicView{"user": identity})
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// respondError maps service errors onto the HTTP taxonomy. Everything not
// explicitly mapped becomes an opaque 500; internal detail never reaches the
// client.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ValidationErr):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "All fields are required."})
	case errors.Is(err, auth.UserExistsErr):
		writeJSON(w, http.StatusConflict, messageResponse{Message: "Username or email already exists."})
	case errors.Is(err, auth.UserNotFoundErr):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "User not found."})
	case errors.Is(err, auth.InvalidCredentialsErr):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid credentials."})
	case errors.Is(err, auth.UnauthorizedErr), errors.Is(err, auth.TokenReuseErr):
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Unauthorized."})
	default:
		log.Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Internal server error."})
	}
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(s.tokens.RefreshTokenExpiry().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func refreshTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
