package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post represents a blog post.
type Post struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"size:100;not null" json:"title"`
	// TitleKey is the lowercased title backing the case-insensitive unique index.
	TitleKey  string `gorm:"size:100;not null;uniqueIndex:idx_posts_title_key" json:"-"`
	Body      string `gorm:"type:text;not null" json:"body"`
	Published bool   `gorm:"not null;default:false" json:"published"`
	// CommentIDs lists the post's comments in creation order. It is maintained
	// by the comment service, never derived at read time.
	CommentIDs IDList    `gorm:"type:text;not null;default:'[]'" json:"commentIds"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BeforeSave keeps TitleKey in sync with Title.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Body = strings.TrimSpace(p.Body)
	p.TitleKey = NormalizeKey(p.Title)
	if p.CommentIDs == nil {
		p.CommentIDs = IDList{}
	}
	return nil
}
