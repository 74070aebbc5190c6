// Package bootstrap wires the process-level dependencies shared by the
// server and the admin binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IlyaEru/blog-api/internal/cache"
	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/middleware"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/seed"
	"github.com/IlyaEru/blog-api/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with demo content.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis, ensures the bootstrap account and
// optionally seeds demo content.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := Prepare(cfg, db, opts); err != nil {
		return nil, nil, err
	}
	return db, r, nil
}

// Prepare runs the post-connect steps of InitRuntime against db.
func Prepare(cfg *config.Config, db *gorm.DB, opts Options) error {
	if err := ensureBootstrapUser(cfg, db); err != nil {
		return fmt.Errorf("failed to bootstrap user: %w", err)
	}

	if opts.SeedDemo {
		if err := seedDemoIfEmpty(db); err != nil {
			return fmt.Errorf("failed to seed demo content: %w", err)
		}
	}
	return nil
}

// ensureBootstrapUser creates the configured account when it is missing.
// An existing account keeps its password.
func ensureBootstrapUser(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	username := strings.TrimSpace(cfg.BootstrapUsername)
	if username == "" {
		return nil
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(cfg.BootstrapPassword); err != nil {
		return err
	}

	var existing models.User
	err := db.Where("username_key = ?", models.NormalizeKey(username)).First(&existing).Error
	switch {
	case err == nil:
		middleware.Logger.Info("bootstrap user already present", slog.Uint64("user_id", uint64(existing.ID)))
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), cost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	user := models.User{Username: username, Password: string(hashed)}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	middleware.Logger.Info("bootstrap user created",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return nil
}

func seedDemoIfEmpty(db *gorm.DB) error {
	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return err
	}
	if posts > 0 {
		middleware.Logger.Info("demo seed skipped, posts already exist", slog.Int64("posts", posts))
		return nil
	}

	opts := seed.DefaultOptions()
	opts.ShouldClean = false
	_, err := seed.Seed(db, opts)
	return err
}
