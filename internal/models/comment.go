package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultCommentName is used when a comment is posted without a name.
const DefaultCommentName = "Anonymous"

// Comment represents a reader comment on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	Name      string    `gorm:"size:100;not null;default:'Anonymous'" json:"name"`
	Body      string    `gorm:"size:1000;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeSave trims text fields and applies the default name.
func (c *Comment) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Body = strings.TrimSpace(c.Body)
	if c.Name == "" {
		c.Name = DefaultCommentName
	}
	return nil
}
