// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents an author account.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:100;not null" json:"username"`
	// UsernameKey is the lowercased username; its unique index makes
	// username uniqueness case-insensitive at the storage level.
	UsernameKey string    `gorm:"size:100;not null;uniqueIndex:idx_users_username_key" json:"-"`
	Password    string    `gorm:"not null" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeSave keeps UsernameKey in sync with Username.
func (u *User) BeforeSave(_ *gorm.DB) error {
	u.Username = strings.TrimSpace(u.Username)
	u.UsernameKey = NormalizeKey(u.Username)
	return nil
}

// NormalizeKey returns the case-insensitive lookup key for a unique text field.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
