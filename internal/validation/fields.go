// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field length bounds, counted in characters after trimming.
const (
	UsernameMinLen    = 3
	UsernameMaxLen    = 100
	PasswordMinLen    = 3
	PasswordMaxLen    = 100
	PostTitleMinLen   = 3
	PostTitleMaxLen   = 100
	PostBodyMinLen    = 3
	PostBodyMaxLen    = 10000
	CommentNameMinLen = 3
	CommentNameMaxLen = 100
	CommentBodyMinLen = 3
	CommentBodyMaxLen = 1000
)

func checkLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n == 0 {
		return fmt.Errorf("%s is required", field)
	}
	if n < minLen || n > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}

// ValidateUsername checks the username length.
func ValidateUsername(username string) error {
	return checkLength("username", username, UsernameMinLen, UsernameMaxLen)
}

// ValidatePassword checks the password length. Passwords are not trimmed
// before hashing, but whitespace-only passwords are rejected.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password is required")
	}
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLen || n > PasswordMaxLen {
		return fmt.Errorf("password must be between %d and %d characters", PasswordMinLen, PasswordMaxLen)
	}
	return nil
}

func ValidatePostTitle(title string) error {
	return checkLength("title", title, PostTitleMinLen, PostTitleMaxLen)
}

func ValidatePostBody(body string) error {
	return checkLength("body", body, PostBodyMinLen, PostBodyMaxLen)
}

// ValidateCommentName accepts an empty name; the store substitutes the default.
func ValidateCommentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return checkLength("name", name, CommentNameMinLen, CommentNameMaxLen)
}

func ValidateCommentBody(body string) error {
	return checkLength("body", body, CommentBodyMinLen, CommentBodyMaxLen)
}

// ValidateIDs checks a bulk id list.
func ValidateIDs(ids []uint) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids must contain at least one id")
	}
	for _, id := range ids {
		if id == 0 {
			return fmt.Errorf("ids must be positive integers")
		}
	}
	return nil
}
