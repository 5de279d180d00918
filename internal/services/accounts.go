package services

import (
	"context"
	"crypto/subtle"
	"errors"
)

var ErrCredentialsRequired = errors.New("email and password are required")

// AccountService answers signin by comparing the stored digest with the one the client sent.
type AccountService struct {
	users UserStore
}

func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users}
}

// SignIn reports whether passwordHash matches the account. An unknown email is a plain false.
func (s *AccountService) SignIn(ctx context.Context, email, passwordHash string) (bool, error) {
	if email == "" || passwordHash == "" {
		return false, ErrCredentialsRequired
	}

	stored, err := s.users.PasswordHashByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(passwordHash)) == 1, nil
}
