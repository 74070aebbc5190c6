package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testTokenConfig = TokenConfig{
	AccessSecret:  "access-secret-for-tests-0123456789",
	RefreshSecret: "refresh-secret-for-tests-987654321",
	AccessTTL:     30 * time.Minute,
	RefreshTTL:    30 * 24 * time.Hour,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// services wires every service over one sqlite database.
type services struct {
	db       *gorm.DB
	users    *UserService
	tokens   *TokenService
	auth     *AuthService
	posts    *PostService
	comments *CommentService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := newTestDB(t)
	tx := repository.NewTxManager(db)
	users := NewUserService(repository.NewUserRepository(db), tx, bcrypt.MinCost)
	tokens := NewTokenService(repository.NewTokenRepository(db), testTokenConfig)
	commentRepo := repository.NewCommentRepository(db)
	return &services{
		db:       db,
		users:    users,
		tokens:   tokens,
		auth:     NewAuthService(users, tokens, tx, nil),
		posts:    NewPostService(repository.NewPostRepository(db), commentRepo, tx),
		comments: NewCommentService(commentRepo, tx),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// tokenRepoStub is a stub for repository.TokenRepository.
type tokenRepoStub struct {
	createFn         func(context.Context, *models.Token) error
	findValidFn      func(context.Context, string, uint, models.TokenType) (*models.Token, error)
	findByTokenFn    func(context.Context, string, models.TokenType, bool) (*models.Token, error)
	deleteByIDFn     func(context.Context, uint) error
	deleteByUserIDFn func(context.Context, uint) (int64, error)
}

func (s *tokenRepoStub) Create(ctx context.Context, token *models.Token) error {
	return s.createFn(ctx, token)
}
func (s *tokenRepoStub) FindValid(ctx context.Context, token string, userID uint, typ models.TokenType) (*models.Token, error) {
	return s.findValidFn(ctx, token, userID, typ)
}
func (s *tokenRepoStub) FindByToken(ctx context.Context, token string, typ models.TokenType, blacklisted bool) (*models.Token, error) {
	return s.findByTokenFn(ctx, token, typ, blacklisted)
}
func (s *tokenRepoStub) DeleteByID(ctx context.Context, id uint) error {
	return s.deleteByIDFn(ctx, id)
}
func (s *tokenRepoStub) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	return s.deleteByUserIDFn(ctx, userID)
}
func (s *tokenRepoStub) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
func (s *tokenRepoStub) SetBlacklisted(_ context.Context, _ string, _ bool) error {
	return nil
}
func (s *tokenRepoStub) ListByUser(_ context.Context, _ uint) ([]models.Token, error) {
	return nil, nil
}

func noopTokenRepo() *tokenRepoStub {
	return &tokenRepoStub{
		createFn: func(_ context.Context, _ *models.Token) error { return nil },
		findValidFn: func(_ context.Context, _ string, _ uint, _ models.TokenType) (*models.Token, error) {
			return nil, repository.ErrTokenNotFound
		},
		findByTokenFn: func(_ context.Context, _ string, _ models.TokenType, _ bool) (*models.Token, error) {
			return nil, repository.ErrTokenNotFound
		},
		deleteByIDFn:     func(_ context.Context, _ uint) error { return nil },
		deleteByUserIDFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getByUsernameFn   func(context.Context, string) (*models.User, error)
	isUsernameTakenFn func(context.Context, string, uint) (bool, error)
	createFn          func(context.Context, *models.User) error
	updateFn          func(context.Context, uint, repository.UserChanges) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) IsUsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return s.isUsernameTakenFn(ctx, username, excludeID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, id uint, changes repository.UserChanges) (*models.User, error) {
	return s.updateFn(ctx, id, changes)
}
func (s *userRepoStub) Delete(_ context.Context, _ uint) error {
	return nil
}
func (s *userRepoStub) List(_ context.Context, _, _ int) ([]models.User, error) {
	return nil, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:         func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		isUsernameTakenFn: func(_ context.Context, _ string, _ uint) (bool, error) { return false, nil },
		createFn:          func(_ context.Context, _ *models.User) error { return nil },
		updateFn: func(_ context.Context, id uint, _ repository.UserChanges) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
}

var errInjected = errors.New("injected failure")

// failingTx runs fn inside a real transaction and then forces a rollback.
type failingTx struct {
	inner repository.TxManager
}

func (f *failingTx) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return f.inner.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := fn(r); err != nil {
			return err
		}
		return errInjected
	})
}
