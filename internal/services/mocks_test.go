package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/noteswriter/noteswriter-backend/internal/models"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	args := m.Called(ctx, model, prompt)
	return args.String(0), args.Error(1)
}

// fakeUserStore is a map-backed UserStore. createErr and lookupErr force failures.
type fakeUserStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	createErr error
	lookupErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.Email]; ok {
		return errors.New(`duplicate key value violates unique constraint "idx_nw_users_email"`)
	}
	copied := *user
	copied.ID = uint(len(f.users) + 1)
	f.users[user.Email] = &copied
	return nil
}

func (f *fakeUserStore) PasswordHashByEmail(ctx context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	u, ok := f.users[email]
	if !ok {
		return "", ErrUserNotFound
	}
	return u.Password, nil
}

// brokenStore fails every call.
type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (string, error) { return "", b.err }
func (b brokenStore) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, b.err
}
func (b brokenStore) TTL(context.Context, string) (time.Duration, error) { return 0, b.err }
func (b brokenStore) Delete(context.Context, ...string) error { return b.err }
func (b brokenStore) Incr(context.Context, string) (int64, error) { return 0, b.err }
func (b brokenStore) Expire(context.Context, string, time.Duration) error {
	return b.err
}
