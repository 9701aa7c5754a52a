package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-user-auth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	for _, existing := range ur.users {
		if existing.Username == user.Username && existing.Email == user.Email {
			return users.ErrDuplicate
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now()
	}

	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *ur.users[id]
	return &copied, nil
}

func (ur *FakeUserRepo) GetByUsernameEmail(_ context.Context, username, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	for _, user := range ur.users {
		if user.Username == username && user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (ur *FakeUserRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if refreshToken == "" {
		return nil, users.ErrNotFound
	}
	for _, user := range ur.users {
		if user.RefreshToken == refreshToken {
			copied := *user
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (ur *FakeUserRepo) SetRefreshToken(_ context.Context, id string, token string, expectedVersion int) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok || user.TokenVersion != expectedVersion {
		return users.ErrNotFound
	}
	user.RefreshToken = token
	return nil
}

func (ur *FakeUserRepo) RevokeSession(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	user.RefreshToken = ""
	user.TokenVersion++
	return nil
}
