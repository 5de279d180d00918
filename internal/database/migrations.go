package database

import (
	"github.com/noteswriter/noteswriter-backend/internal/models"
	"gorm.io/gorm"
)

// RunMigrations creates nw_users or brings an existing table up to the model,
// including the unique email index duplicate signups rely on.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}
