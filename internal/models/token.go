package models

import "time"

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Token is a persisted refresh token. Access tokens are never stored.
type Token struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Token       string    `gorm:"size:512;not null;uniqueIndex:idx_tokens_token" json:"token"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	Type        TokenType `gorm:"size:16;not null" json:"type"`
	ExpiresAt   time.Time `gorm:"not null;index:idx_tokens_expires_at" json:"expiresAt"`
	Blacklisted bool      `gorm:"not null;default:false" json:"blacklisted"`
	CreatedAt   time.Time `json:"createdAt"`
}
