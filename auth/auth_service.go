package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-user-auth/token"
	"github.com/jrsteele09/go-user-auth/users"
)

// Session is the result of a successful register, login, or refresh: the
// public user view plus a freshly issued token pair. The refresh token is
// only ever transported in an HTTP-only cookie by the server layer, never in
// a response body.
type Session struct {
	User         users.PublicView
	AccessToken  string
	RefreshToken string
}

// Service orchestrates registration, login, logout, and refresh-token
// rotation. All auth state lives on the user document; the only in-process
// state is the injected token service with its signing secrets.
type Service struct {
	userRepo users.UserRepo
	tokens   *token.Service
}

// NewService initializes the auth Service with required dependencies.
func NewService(userRepo users.UserRepo, tokens *token.Service) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[auth.NewService] user repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[auth.NewService] token service is required")
	}
	return &Service{userRepo: userRepo, tokens: tokens}, nil
}

// Register creates a user with token version 0 and logs them straight in by
// issuing an access/refresh pair. The (username, email) pair must be unused.
func (as *Service) Register(ctx context.Context, username, password, email string) (*Session, error) {
	if username == "" || password == "" || email == "" {
		return nil, ValidationErr
	}
	normalizedEmail := users.NormalizeEmail(email)

	if _, err := as.userRepo.GetByUsernameEmail(ctx, username, normalizedEmail); err == nil {
		return nil, UserExistsErr
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, errors.Wrap(err, "auth.Service.Register GetByUsernameEmail")
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "auth.Service.Register HashPassword")
	}

	user := &users.User{
		Username:     username,
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
		TokenVersion: 0,
	}
	if err := as.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			return nil, UserExistsErr
		}
		return nil, errors.Wrap(err, "auth.Service.Register Create")
	}

	return as.issueSession(ctx, user)
}

// Login verifies the credentials and issues a new token pair. Persisting the
// new refresh token overwrites the previous one, which implicitly revokes it.
func (as *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ValidationErr
	}

	user, err := as.userRepo.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, UserNotFoundErr
		}
		return nil, errors.Wrap(err, "auth.Service.Login GetByEmail")
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, InvalidCredentialsErr
	}

	return as.issueSession(ctx, user)
}

// Logout revokes the session owning refreshToken: the stored token is cleared
// and the token version bumped, invalidating every outstanding access token
// immediately. Revocation always targets the cookie's owner; the body email
// only selects the user whose existence is checked. Without a refresh token
// the call succeeds but revokes nothing.
func (as *Service) Logout(ctx context.Context, email, refreshToken string) error {
	if email == "" {
		return ValidationErr
	}

	if _, err := as.userRepo.GetByEmail(ctx, users.NormalizeEmail(email)); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return UserNotFoundErr
		}
		return errors.Wrap(err, "auth.Service.Logout GetByEmail")
	}

	if refreshToken == "" {
		return nil
	}

	owner, err := as.userRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// Already rotated out or never issued, nothing to revoke.
			return nil
		}
		return errors.Wrap(err, "auth.Service.Logout GetByRefreshToken")
	}

	if err := as.userRepo.RevokeSession(ctx, owner.ID); err != nil {
		return errors.Wrap(err, "auth.Service.Logout RevokeSession")
	}
	return nil
}

// Refresh rotates the token pair. The presented token must verify with the
// refresh secret AND exactly match the user's stored refresh token; a
// mismatch means a rotated-out token was replayed, so the whole session is
// force-revoked and TokenReuseErr returned.
func (as *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, UnauthorizedErr
	}

	claims, err := as.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, UnauthorizedErr
	}

	user, err := as.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, UnauthorizedErr
		}
		return nil, errors.Wrap(err, "auth.Service.Refresh GetByID")
	}

	if user.RefreshToken != refreshToken {
		if err := as.userRepo.RevokeSession(ctx, user.ID); err != nil {
			return nil, errors.Wrap(err, "auth.Service.Refresh RevokeSession")
		}
		return nil, TokenReuseErr
	}

	return as.issueSession(ctx, user)
}

// CurrentUser loads the user for verified access-token claims, rejecting
// claims minted before the last revocation. This is the Access Guard's
// revocation check: access tokens stay stateless except for the version
// comparison.
func (as *Service) CurrentUser(ctx context.Context, claims *token.Claims) (*users.User, error) {
	user, err := as.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, UnauthorizedErr
		}
		return nil, errors.Wrap(err, "auth.Service.CurrentUser GetByID")
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, UnauthorizedErr
	}
	return user, nil
}

func (as *Service) issueSession(ctx context.Context, user *users.User) (*Session, error) {
	accessToken, err := as.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "auth.Service.issueSession IssueAccessToken")
	}
	refreshToken, err := as.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "auth.Service.issueSession IssueRefreshToken")
	}

	// Conditional on the version we read: if a logout or reuse revocation
	// landed in between, the write matches nothing and the session issued
	// here is abandoned rather than persisted onto the revoked user.
	if err := as.userRepo.SetRefreshToken(ctx, user.ID, refreshToken, user.TokenVersion); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, UnauthorizedErr
		}
		return nil, errors.Wrap(err, "auth.Service.issueSession SetRefreshToken")
	}

	return &Session{
		User:         user.PublicView(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
