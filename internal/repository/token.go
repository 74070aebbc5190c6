package repository

import (
	"context"
	"errors"
	"time"

	"github.com/IlyaEru/blog-api/internal/models"

	"gorm.io/gorm"
)

// TokenRepository stores refresh tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *models.Token) error
	// FindValid returns the non-blacklisted token matching every field.
	FindValid(ctx context.Context, token string, userID uint, typ models.TokenType) (*models.Token, error)
	// FindByToken matches by exact token string and blacklist flag.
	FindByToken(ctx context.Context, token string, typ models.TokenType, blacklisted bool) (*models.Token, error)
	// DeleteByID returns ErrTokenNotFound when the row is already gone.
	DeleteByID(ctx context.Context, id uint) error
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	SetBlacklisted(ctx context.Context, token string, blacklisted bool) error
	ListByUser(ctx context.Context, userID uint) ([]models.Token, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a GORM-backed TokenRepository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.Token) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return translateWriteError(err, "Token already exists")
	}
	return nil
}

func (r *tokenRepository) FindValid(ctx context.Context, token string, userID uint, typ models.TokenType) (*models.Token, error) {
	var t models.Token
	err := r.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND type = ? AND blacklisted = ?", token, userID, typ, false).
		First(&t).Error
	return tokenOrNotFound(&t, err)
}

func (r *tokenRepository) FindByToken(ctx context.Context, token string, typ models.TokenType, blacklisted bool) (*models.Token, error) {
	var t models.Token
	err := r.db.WithContext(ctx).
		Where("token = ? AND type = ? AND blacklisted = ?", token, typ, blacklisted).
		First(&t).Error
	return tokenOrNotFound(&t, err)
}

func tokenOrNotFound(t *models.Token, err error) (*models.Token, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, models.NewInternalError(err)
	}
	return t, nil
}

func (r *tokenRepository) DeleteByID(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Token{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *tokenRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Token{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&models.Token{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *tokenRepository) SetBlacklisted(ctx context.Context, token string, blacklisted bool) error {
	res := r.db.WithContext(ctx).Model(&models.Token{}).Where("token = ?", token).Update("blacklisted", blacklisted)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *tokenRepository) ListByUser(ctx context.Context, userID uint) ([]models.Token, error) {
	var tokens []models.Token
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&tokens).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}
