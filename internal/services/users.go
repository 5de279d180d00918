package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noteswriter/noteswriter-backend/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore owns registered accounts. Failures (duplicate email, lost connection) are returned as-is.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	PasswordHashByEmail(ctx context.Context, email string) (string, error)
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// PasswordHashByEmail returns ErrUserNotFound when no account has this email.
func (s *GormUserStore) PasswordHashByEmail(ctx context.Context, email string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Select("password").
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return user.Password, nil
}
