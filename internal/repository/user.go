package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IlyaEru/blog-api/internal/cache"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"

	"gorm.io/gorm"
)

const usernameTakenMsg = "Username is already taken"

var userLog = observability.NewRepoLogger("users")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByUsername matches case-insensitively and returns (nil, nil) when absent.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	IsUsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, changes UserChanges) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// UserChanges lists the columns to update; nil fields are left untouched.
type UserChanges struct {
	Username     *string
	PasswordHash *string
}

type userRepository struct {
	db    *gorm.DB
	hooks *commitHooks
	log   *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: userLog}
}

// GetByID is cached. Cached users never carry the password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		return translateReadError(r.db.WithContext(ctx).First(&user, id).Error, "User", id)
	})
	if err != nil {
		return nil, err
	}
	r.log.LogRead(ctx, slog.Uint64("id", uint64(id)))
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username_key = ?", models.NormalizeKey(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) IsUsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("username_key = ?", models.NormalizeKey(username))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateWriteError(err, usernameTakenMsg)
	}
	r.log.LogCreate(ctx, slog.Uint64("id", uint64(user.ID)))
	return nil
}

func (r *userRepository) Update(ctx context.Context, id uint, changes UserChanges) (*models.User, error) {
	updates := map[string]any{}
	if changes.Username != nil {
		updates["username"] = *changes.Username
		updates["username_key"] = models.NormalizeKey(*changes.Username)
	}
	if changes.PasswordHash != nil {
		updates["password"] = *changes.PasswordHash
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translateWriteError(res.Error, usernameTakenMsg)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("User", id)
		}
		r.hooks.run(func() { cache.InvalidateUser(ctx, id) })
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateReadError(err, "User", id)
	}
	r.log.LogUpdate(ctx, slog.Uint64("id", uint64(id)))
	return &user, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.hooks.run(func() { cache.InvalidateUser(ctx, id) })
	r.log.LogDelete(ctx, slog.Uint64("id", uint64(id)))
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
