package service

import (
	"context"
	"strings"

	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"
	"github.com/IlyaEru/blog-api/internal/repository"
	"github.com/IlyaEru/blog-api/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo   repository.UserRepository
	tx         repository.TxManager
	bcryptCost int
}

type CreateUserInput struct {
	Username string
	Password string
}

// UpdateUserInput leaves nil fields unchanged. The password is re-hashed only
// when a new one is supplied.
type UpdateUserInput struct {
	UserID   uint
	Username *string
	Password *string
}

func NewUserService(userRepo repository.UserRepository, tx repository.TxManager, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{userRepo: userRepo, tx: tx, bcryptCost: bcryptCost}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetUserByUsername returns (nil, nil) when no user matches.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *UserService) IsUsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return s.userRepo.IsUsernameTaken(ctx, username, excludeID)
}

// IsPasswordMatch compares password against the stored hash.
func (s *UserService) IsPasswordMatch(user *models.User, password string) bool {
	if user == nil || user.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (s *UserService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	// Advisory; the unique index on username_key is authoritative.
	taken, err := s.userRepo.IsUsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewDuplicateError("Username is already taken")
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: strings.TrimSpace(in.Username), Password: hashed}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.RecordContentOperation("user", "create", 1)
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	changes := repository.UserChanges{}

	if in.Username != nil {
		if err := validation.ValidateUsername(*in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.userRepo.IsUsernameTaken(ctx, *in.Username, in.UserID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.NewDuplicateError("Username is already taken")
		}
		username := strings.TrimSpace(*in.Username)
		changes.Username = &username
	}

	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = &hashed
	}

	user, err := s.userRepo.Update(ctx, in.UserID, changes)
	if err != nil {
		return nil, err
	}
	observability.RecordContentOperation("user", "update", 1)
	return user, nil
}

// DeleteUser removes the user together with its stored refresh tokens.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	err := s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if _, err := r.Tokens().DeleteByUserID(ctx, id); err != nil {
			return err
		}
		return r.Users().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	observability.RecordContentOperation("user", "delete", 1)
	return nil
}
