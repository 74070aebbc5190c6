package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestAdmin(t *testing.T) (*admin, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	return &admin{
		out:    &bytes.Buffer{},
		cfg:    &config.Config{BcryptCost: bcrypt.MinCost},
		users:  repository.NewUserRepository(db),
		tokens: repository.NewTokenRepository(db),
	}, db
}

func seedUserWithTokens(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Username: "alice", Password: "old"}
	require.NoError(t, db.Create(&user).Error)
	now := time.Now()
	require.NoError(t, db.Create(&[]models.Token{
		{Token: "live", UserID: user.ID, Type: models.TokenTypeRefresh, ExpiresAt: now.Add(time.Hour)},
		{Token: "stale", UserID: user.ID, Type: models.TokenTypeRefresh, ExpiresAt: now.Add(-time.Hour)},
	}).Error)
	return user
}

func countTokens(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Token{}).Count(&n).Error)
	return n
}

func TestAdmin_ResetPasswordRevokesSessions(t *testing.T) {
	a, db := newTestAdmin(t)
	user := seedUserWithTokens(t, db)

	require.NoError(t, a.run(context.Background(), "reset-password", []string{"1", "fresh-secret"}))

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("fresh-secret")))
	assert.Zero(t, countTokens(t, db))
}

func TestAdmin_ResetPasswordRejectsShortPassword(t *testing.T) {
	a, db := newTestAdmin(t)
	seedUserWithTokens(t, db)

	assert.Error(t, a.run(context.Background(), "reset-password", []string{"1", "ab"}))
	assert.Equal(t, int64(2), countTokens(t, db))
}

func TestAdmin_PurgeAndRevoke(t *testing.T) {
	a, db := newTestAdmin(t)
	seedUserWithTokens(t, db)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "purge-tokens", nil))
	assert.Equal(t, int64(1), countTokens(t, db))

	require.NoError(t, a.run(ctx, "revoke-token", []string{"live"}))
	var tok models.Token
	require.NoError(t, db.Where("token = ?", "live").First(&tok).Error)
	assert.True(t, tok.Blacklisted)

	assert.ErrorIs(t, a.run(ctx, "revoke-token", []string{"missing"}), repository.ErrTokenNotFound)
}

func TestAdmin_RejectsBadArguments(t *testing.T) {
	a, _ := newTestAdmin(t)
	ctx := context.Background()

	assert.Error(t, a.run(ctx, "sessions", []string{"abc"}))
	assert.Error(t, a.run(ctx, "sessions", []string{"0"}))
	assert.Error(t, a.run(ctx, "list-users", []string{"-1"}))
	assert.Error(t, a.run(ctx, "nope", nil))
}

func TestAdmin_SessionsHideTokenValues(t *testing.T) {
	a, db := newTestAdmin(t)
	out := &bytes.Buffer{}
	a.out = out
	user := models.User{Username: "bob", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	secret := "eyJhbGciOiJIUzI1NiJ9.payload.signature"
	require.NoError(t, db.Create(&models.Token{
		Token: secret, UserID: user.ID, Type: models.TokenTypeRefresh, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, a.run(context.Background(), "sessions", []string{"1"}))
	assert.Contains(t, out.String(), "eyJhbGciOi...")
	assert.Contains(t, out.String(), "active")
	assert.NotContains(t, out.String(), secret)
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "...", tokenPrefix("short"))
	assert.Equal(t, "abcdefghij...", tokenPrefix("abcdefghijklmnop"))
}
