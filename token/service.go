package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-user-auth/users"
)

var (
	InvalidTokenErr = errors.New("invalid token")
	ExpiredTokenErr = errors.New("token expired")
)

const (
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// Claims is the verified payload of an access or refresh token.
type Claims struct {
	UserID       string
	TokenVersion int
	ExpiresAt    time.Time
}

// jwtClaims is the wire shape. TokenVersion is a pointer so a token minted
// without the claim fails verification instead of decoding as version 0.
type jwtClaims struct {
	TokenVersion *int `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// Service mints and verifies the access/refresh token pair. Access and refresh
// tokens are signed with independent secrets so a leak scoped to one kind
// cannot mint the other.
type Service struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ServiceOption func(*Service)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTokenExpiry = accessTokenExpiry
		s.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// New creates a token Service. Both secrets are required: running without
// either would issue unverifiable or forgeable tokens, so this is a fatal
// configuration error for the caller.
func New(accessSecret, refreshSecret string, options ...ServiceOption) (*Service, error) {
	if accessSecret == "" {
		return nil, errors.New("[token.New] access signing secret is not defined")
	}
	if refreshSecret == "" {
		return nil, errors.New("[token.New] refresh signing secret is not defined")
	}

	s := &Service{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  defaultAccessTokenExpiry,
		refreshTokenExpiry: defaultRefreshTokenExpiry,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s, nil
}

// IssueAccessToken signs a short-lived bearer token carrying the user's id and
// current token version. Access tokens are never persisted.
func (s *Service) IssueAccessToken(user *users.User) (string, error) {
	return s.sign(user, s.accessSecret, s.accessTokenExpiry)
}

// IssueRefreshToken signs a long-lived token with the refresh secret. The
// caller is expected to persist it as the user's single active refresh token.
func (s *Service) IssueRefreshToken(user *users.User) (string, error) {
	return s.sign(user, s.refreshSecret, s.refreshTokenExpiry)
}

func (s *Service) VerifyAccess(rawToken string) (*Claims, error) {
	return s.verify(rawToken, s.accessSecret)
}

func (s *Service) VerifyRefresh(rawToken string) (*Claims, error) {
	return s.verify(rawToken, s.refreshSecret)
}

func (s *Service) AccessTokenExpiry() time.Duration  { return s.accessTokenExpiry }
func (s *Service) RefreshTokenExpiry() time.Duration { return s.refreshTokenExpiry }

func (s *Service) sign(user *users.User, secret []byte, expiry time.Duration) (string, error) {
	now := s.nowFunc()
	version := user.TokenVersion
	claims := jwtClaims{
		TokenVersion: &version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(), // Unique token ID so rotation always yields a distinct token
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "token.Service.sign SignedString")
	}
	return signedToken, nil
}

func (s *Service) verify(rawToken string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(rawToken, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.nowFunc))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ExpiredTokenErr
		}
		return nil, InvalidTokenErr
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, InvalidTokenErr
	}
	if claims.Subject == "" || claims.TokenVersion == nil || claims.ExpiresAt == nil {
		return nil, InvalidTokenErr
	}

	return &Claims{
		UserID:       claims.Subject,
		TokenVersion: *claims.TokenVersion,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}
