package auth_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/token"
	"github.com/jrsteele09/go-user-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-user-auth/users/repofake"
)

const (
	accessSecret  = "1234"
	refreshSecret = "5678"

	testUsername = "alice"
	testEmail    = "alice@example.com"
	testPassword = "pw123"
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	tokens   *token.Service
	service  *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	ur := fakeuserrepo.NewFakeUserRepo()

	ts, err := token.New(accessSecret, refreshSecret)
	require.NoError(t, err)

	service, err := auth.NewService(ur, ts)
	require.NoError(t, err)

	return &testFixture{
		userRepo: ur,
		tokens:   ts,
		service:  service,
	}
}

func (f *testFixture) register(t *testing.T) *auth.Session {
	t.Helper()
	session, err := f.service.Register(context.Background(), testUsername, testPassword, testEmail)
	require.NoError(t, err)
	return session
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	session := f.register(t)
	require.Equal(t, testUsername, session.User.Username)
	require.Equal(t, testEmail, session.User.Email)
	require.NotEmpty(t, session.User.ID)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)

	stored, err := f.userRepo.GetByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.TokenVersion)
	require.Equal(t, session.RefreshToken, stored.RefreshToken)
	require.NotEqual(t, testPassword, stored.PasswordHash)
}

func TestRegisterViewNeverContainsPasswordHash(t *testing.T) {
	f := setupTestFixture(t)

	session := f.register(t)

	serialized, err := json.Marshal(session.User)
	require.NoError(t, err)
	require.NotContains(t, string(serialized), "password")
	require.NotContains(t, string(serialized), testPassword)
}

func TestRegisterMissingFields(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Register(context.Background(), "", testPassword, testEmail)
	require.ErrorIs(t, err, auth.ValidationErr)

	_, err = f.service.Register(context.Background(), testUsername, "", testEmail)
	require.ErrorIs(t, err, auth.ValidationErr)

	_, err = f.service.Register(context.Background(), testUsername, testPassword, "")
	require.ErrorIs(t, err, auth.ValidationErr)
}

func TestRegisterDuplicate(t *testing.T) {
	f := setupTestFixture(t)

	f.register(t)

	_, err := f.service.Register(context.Background(), testUsername, testPassword, testEmail)
	require.ErrorIs(t, err, auth.UserExistsErr)

	// A different (username, email) pair is fine.
	_, err = f.service.Register(context.Background(), testUsername, testPassword, "other@example.com")
	require.NoError(t, err)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.service.Register(context.Background(), testUsername, "pw123", " A@X.com ")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", session.User.Email)

	// Login compares case-insensitively through the same normalization.
	_, err = f.service.Login(context.Background(), "A@X.com", "pw123")
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	session, err := f.service.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	claims, err := f.tokens.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, session.User.ID, claims.UserID)
	require.Equal(t, 0, claims.TokenVersion)
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	_, err := f.service.Login(context.Background(), testEmail, "wrong-password")
	require.ErrorIs(t, err, auth.InvalidCredentialsErr)
}

func TestLoginUnknownUser(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), "nobody@example.com", testPassword)
	require.ErrorIs(t, err, auth.UserNotFoundErr)
}

func TestLoginRevokesPreviousRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	first := f.register(t)

	second, err := f.service.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The first refresh token rotates out: presenting it is reuse.
	_, err = f.service.Refresh(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, auth.TokenReuseErr)
}

func TestLogoutInvalidatesAccessTokens(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	claims, err := f.tokens.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	_, err = f.service.CurrentUser(context.Background(), claims)
	require.NoError(t, err)

	err = f.service.Logout(context.Background(), testEmail, session.RefreshToken)
	require.NoError(t, err)

	// The access token still verifies cryptographically but the version
	// bump rejects it.
	claims, err = f.tokens.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	_, err = f.service.CurrentUser(context.Background(), claims)
	require.ErrorIs(t, err, auth.UnauthorizedErr)

	stored, err := f.userRepo.GetByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TokenVersion)
	require.Empty(t, stored.RefreshToken)
}

func TestLogoutWithoutCookieRevokesNothing(t *testing.T) {
	f := setupTestFixture(t)
	session := f.register(t)

	err := f.service.Logout(context.Background(), testEmail, "")
	require.NoError(t, err)

	stored, err := f.userRepo.GetByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.TokenVersion)
	require.Equal(t, session.RefreshToken, stored.RefreshToken)
}

func TestLogoutUnknownEmail(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.Logout(context.Background(), "nobody@example.com", "")
	require.ErrorIs(t, err, auth.UserNotFoundErr)
}

func TestLogoutRevokesCookieOwner(t *testing.T) {
	f := setupTestFixture(t)
	alice := f.register(t)

	bob, err := f.service.Register(context.Background(), "bob", "pw456", "bob@example.com")
	require.NoError(t, err)

	// Bob's email in the body, Alice's cookie: revocation targets Alice.
	err = f.service.Logout(context.Background(), "bob@example.com", alice.RefreshToken)
	require.NoError(t, err)

	aliceStored, err := f.userRepo.GetByID(context.Background(), alice.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1, aliceStored.TokenVersion)

	bobStored, err := f.userRepo.GetByID(context.Background(), bob.User.ID)
	require.NoError(t, err)
	require.Equal(t, 0, bobStored.TokenVersion)
}

func TestRefreshRotation(t *testing.T) {
	f := setupTestFixture(t)
	first := f.register(t)

	second, err := f.service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	third, err := f.service.Refresh(context.Background(), second.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, second.RefreshToken, third.RefreshToken)

	stored, err := f.userRepo.GetByID(context.Background(), first.User.ID)
	require.NoError(t, err)
	require.Equal(t, third.RefreshToken, stored.RefreshToken)
}

func TestRefreshReuseDetection(t *testing.T) {
	f := setupTestFixture(t)
	first := f.register(t)

	second, err := f.service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	// Replaying the rotated-out token forces a full revocation.
	_, err = f.service.Refresh(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, auth.TokenReuseErr)

	stored, err := f.userRepo.GetByID(context.Background(), first.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TokenVersion)
	require.Empty(t, stored.RefreshToken)

	// Access tokens derived from the old version die with it.
	claims, err := f.tokens.VerifyAccess(second.AccessToken)
	require.NoError(t, err)
	_, err = f.service.CurrentUser(context.Background(), claims)
	require.ErrorIs(t, err, auth.UnauthorizedErr)

	// So does the legitimately rotated refresh token.
	_, err = f.service.Refresh(context.Background(), second.RefreshToken)
	require.ErrorIs(t, err, auth.TokenReuseErr)
}

// racingUserRepo revokes the session between Refresh's stored-token match
// check and its rotation write, simulating a logout landing mid-refresh.
type racingUserRepo struct {
	*fakeuserrepo.FakeUserRepo
	revokeOnNextSet bool
}

func (r *racingUserRepo) SetRefreshToken(ctx context.Context, id string, token string, expectedVersion int) error {
	if r.revokeOnNextSet {
		r.revokeOnNextSet = false
		if err := r.FakeUserRepo.RevokeSession(ctx, id); err != nil {
			return err
		}
	}
	return r.FakeUserRepo.SetRefreshToken(ctx, id, token, expectedVersion)
}

func TestRefreshLosesRaceAgainstLogout(t *testing.T) {
	repo := &racingUserRepo{FakeUserRepo: fakeuserrepo.NewFakeUserRepo()}

	ts, err := token.New(accessSecret, refreshSecret)
	require.NoError(t, err)
	service, err := auth.NewService(repo, ts)
	require.NoError(t, err)

	session, err := service.Register(context.Background(), testUsername, testPassword, testEmail)
	require.NoError(t, err)

	// The revocation wins the race: rotation must not re-arm the session.
	repo.revokeOnNextSet = true
	_, err = service.Refresh(context.Background(), session.RefreshToken)
	require.ErrorIs(t, err, auth.UnauthorizedErr)

	stored, err := repo.GetByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TokenVersion)
	require.Empty(t, stored.RefreshToken)

	// Nothing issued during the raced refresh survives: the user has no
	// stored refresh token, so any replay is rejected.
	_, err = service.Refresh(context.Background(), session.RefreshToken)
	require.ErrorIs(t, err, auth.TokenReuseErr)
}

func TestRefreshMissingToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Refresh(context.Background(), "")
	require.ErrorIs(t, err, auth.UnauthorizedErr)
}

func TestRefreshGarbageToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Refresh(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, auth.UnauthorizedErr)
}

func TestRefreshForDeletedUser(t *testing.T) {
	f := setupTestFixture(t)

	ts, err := token.New(accessSecret, refreshSecret)
	require.NoError(t, err)
	orphan, err := ts.IssueRefreshToken(&users.User{ID: "ghost", TokenVersion: 0})
	require.NoError(t, err)

	_, err = f.service.Refresh(context.Background(), orphan)
	require.ErrorIs(t, err, auth.UnauthorizedErr)
}
