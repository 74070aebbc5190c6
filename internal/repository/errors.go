// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrTokenNotFound is returned when no stored refresh token matches.
var ErrTokenNotFound = errors.New("token not found")

const pgUniqueViolation = "23505"

// isUniqueConstraintError reports whether err is a unique index violation on
// any supported driver.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// translateWriteError maps a write failure to the application error taxonomy.
func translateWriteError(err error, duplicateMsg string) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return models.NewDuplicateError(duplicateMsg)
	}
	return models.NewInternalError(err)
}

// translateReadError maps a lookup failure; a missing row becomes NotFound.
func translateReadError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// clampPage normalizes a limit/offset pair.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
