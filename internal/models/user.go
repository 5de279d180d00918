package models

import (
	"gorm.io/gorm"
)

// User is a registered NotesWriter account. Password holds the digest the client
// computed; it is stored and compared as-is and never serialised back out.
type User struct {
	gorm.Model        // This embeds ID, CreatedAt, UpdatedAt, and DeletedAt
	Email      string `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Password   string `gorm:"column:password;not null" json:"-"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "nw_users"
}
