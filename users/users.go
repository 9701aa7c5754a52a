package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is the persisted user document. The auth state fields (TokenVersion,
// RefreshToken) drive server-side revocation: incrementing TokenVersion
// invalidates every previously issued token for the user, and RefreshToken
// holds the single refresh token currently accepted for rotation.
type User struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty"`
	Username     string    `json:"username,omitempty" bson:"username"`
	Email        string    `json:"email,omitempty" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"` // never serialize
	TokenVersion int       `json:"-" bson:"tokenVersion"`
	RefreshToken string    `json:"-" bson:"refreshToken,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty" bson:"dateJoined"`
}

// PublicView is the response shape for a user: identity fields only,
// no credential or revocation state.
type PublicView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *User) PublicView() PublicView {
	return PublicView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// NormalizeEmail lowercases and trims an email address. Emails are stored and
// compared in this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
