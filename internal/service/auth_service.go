package service

import (
	"context"
	"errors"

	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"
	"github.com/IlyaEru/blog-api/internal/repository"
)

// Auth failure messages. Login failures never reveal whether the username
// exists; refresh failures never reveal why the token was rejected.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgInvalidRefresh     = "Invalid refresh token"
	msgNoToken            = "No token found"
	msgRegistrationClosed = "Registration is disabled"
)

func invalidCredentials() *models.AppError {
	return models.NewValidationError(msgInvalidCredentials)
}

type AuthService struct {
	users  *UserService
	tokens *TokenService
	tx     repository.TxManager
	// registrationOpen gates Register; nil means always open.
	registrationOpen func() bool
}

func NewAuthService(users *UserService, tokens *TokenService, tx repository.TxManager, registrationOpen func() bool) *AuthService {
	return &AuthService{users: users, tokens: tokens, tx: tx, registrationOpen: registrationOpen}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (user *models.User, err error) {
	defer func() { observability.RecordAuthEvent("register", err) }()

	if s.registrationOpen != nil && !s.registrationOpen() {
		return nil, models.NewForbiddenError(msgRegistrationClosed)
	}
	return s.users.CreateUser(ctx, CreateUserInput{Username: username, Password: password})
}

func (s *AuthService) Login(ctx context.Context, username, password string) (user *models.User, tokens *AuthTokens, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() {
		observability.RecordAuthEvent("login", err)
		observability.EndSpan(span, err)
	}()

	if username == "" || password == "" {
		return nil, nil, models.NewValidationError("username and password are required")
	}

	user, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !s.users.IsPasswordMatch(user, password) {
		return nil, nil, invalidCredentials()
	}

	tokens, err = s.tokens.GenerateAuthTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Logout deletes a stored, non-blacklisted refresh token. Blacklisted and
// absent tokens both yield NotFound.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { observability.RecordAuthEvent("logout", err) }()

	if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return models.NewNotFoundMessage(msgNoToken)
		}
		return err
	}
	return nil
}

// RefreshAuth rotates a refresh token: the presented token is consumed and a
// new pair is issued in the same transaction. Of two concurrent refreshes of
// one token, only the one whose delete removes the row succeeds.
func (s *AuthService) RefreshAuth(ctx context.Context, refreshToken string) (user *models.User, tokens *AuthTokens, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "RefreshAuth")
	defer func() {
		observability.RecordAuthEvent("refresh", err)
		observability.EndSpan(span, err)
	}()

	record, err := s.tokens.VerifyToken(ctx, refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return nil, nil, refreshError(err)
	}

	user, err = s.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, nil, models.NewUnauthorizedError(msgInvalidRefresh)
		}
		return nil, nil, err
	}

	err = s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Tokens().DeleteByID(ctx, record.ID); err != nil {
			return err
		}
		issued, err := s.tokens.issue(ctx, r.Tokens(), user.ID)
		if err != nil {
			return err
		}
		tokens = issued
		return nil
	})
	if err != nil {
		return nil, nil, refreshError(err)
	}
	return user, tokens, nil
}

func refreshError(err error) error {
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, repository.ErrTokenNotFound) {
		return models.NewUnauthorizedError(msgInvalidRefresh)
	}
	return err
}
