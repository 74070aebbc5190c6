// Package service implements the business rules behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"
	"github.com/IlyaEru/blog-api/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrInvalidToken is returned for any token that fails signature, expiry,
// type or store checks. Callers must not distinguish between the causes.
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig carries signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenConfigFromConfig derives TokenConfig from the application config.
func TokenConfigFromConfig(cfg *config.Config) TokenConfig {
	return TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     time.Duration(cfg.JWTAccessExpiresInMinutes) * time.Minute,
		RefreshTTL:    time.Duration(cfg.JWTRefreshExpiresInDays) * 24 * time.Hour,
	}
}

// AuthToken is one issued token with its expiry.
type AuthToken struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// AuthTokens is the access/refresh pair returned by login and refresh.
type AuthTokens struct {
	Access  AuthToken `json:"access"`
	Refresh AuthToken `json:"refresh"`
}

type TokenService struct {
	tokens repository.TokenRepository
	cfg    TokenConfig
	now    func() time.Time
}

func NewTokenService(tokens repository.TokenRepository, cfg TokenConfig) *TokenService {
	return &TokenService{tokens: tokens, cfg: cfg, now: time.Now}
}

func (s *TokenService) secretFor(typ models.TokenType) ([]byte, error) {
	switch typ {
	case models.TokenTypeAccess:
		return []byte(s.cfg.AccessSecret), nil
	case models.TokenTypeRefresh:
		return []byte(s.cfg.RefreshSecret), nil
	default:
		return nil, fmt.Errorf("unknown token type %q", typ)
	}
}

// GenerateToken signs a token for userID. Each token carries a random jti so
// two tokens minted in the same second never collide in the store.
func (s *TokenService) GenerateToken(userID uint, typ models.TokenType, expiresAt time.Time) (string, error) {
	secret, err := s.secretFor(typ)
	if err != nil {
		return "", err
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("%s token secret not configured", typ)
	}

	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"type": string(typ),
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
		"jti":  uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SaveToken persists a refresh token.
func (s *TokenService) SaveToken(ctx context.Context, userID uint, token string, typ models.TokenType, expiresAt time.Time, blacklisted bool) (*models.Token, error) {
	return saveToken(ctx, s.tokens, userID, token, typ, expiresAt, blacklisted)
}

func saveToken(ctx context.Context, repo repository.TokenRepository, userID uint, token string, typ models.TokenType, expiresAt time.Time, blacklisted bool) (*models.Token, error) {
	if typ != models.TokenTypeRefresh {
		return nil, models.NewValidationError("Only refresh tokens are stored")
	}
	record := &models.Token{
		Token:       token,
		UserID:      userID,
		Type:        typ,
		ExpiresAt:   expiresAt,
		Blacklisted: blacklisted,
	}
	if err := repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// parse checks signature, expiry and the type claim, returning the subject.
func (s *TokenService) parse(token string, typ models.TokenType) (uint, error) {
	secret, err := s.secretFor(typ)
	if err != nil {
		return 0, ErrInvalidToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	if t, _ := claims["type"].(string); t != string(typ) {
		return 0, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}

// ParseAccessToken validates an access token without touching the store.
func (s *TokenService) ParseAccessToken(token string) (uint, error) {
	return s.parse(token, models.TokenTypeAccess)
}

// VerifyToken validates token and loads its non-blacklisted stored record.
// Only refresh tokens are ever stored, so access tokens always fail here.
func (s *TokenService) VerifyToken(ctx context.Context, token string, typ models.TokenType) (*models.Token, error) {
	userID, err := s.parse(token, typ)
	if err != nil {
		return nil, err
	}
	record, err := s.tokens.FindValid(ctx, token, userID, typ)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return record, nil
}

// GenerateAuthTokens issues an access/refresh pair and stores the refresh
// token. Earlier refresh tokens of the user stay valid.
func (s *TokenService) GenerateAuthTokens(ctx context.Context, userID uint) (*AuthTokens, error) {
	return s.issue(ctx, s.tokens, userID)
}

func (s *TokenService) issue(ctx context.Context, repo repository.TokenRepository, userID uint) (tokens *AuthTokens, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "TokenService", "GenerateAuthTokens",
		attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	now := s.now()
	accessExpires := now.Add(s.cfg.AccessTTL)
	access, err := s.GenerateToken(userID, models.TokenTypeAccess, accessExpires)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	refreshExpires := now.Add(s.cfg.RefreshTTL)
	refresh, err := s.GenerateToken(userID, models.TokenTypeRefresh, refreshExpires)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if _, err = saveToken(ctx, repo, userID, refresh, models.TokenTypeRefresh, refreshExpires, false); err != nil {
		return nil, err
	}

	return &AuthTokens{
		Access:  AuthToken{Token: access, Expires: accessExpires},
		Refresh: AuthToken{Token: refresh, Expires: refreshExpires},
	}, nil
}

// RevokeRefreshToken deletes the stored non-blacklisted refresh token matching
// token exactly. It returns repository.ErrTokenNotFound when there is none.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, token string) error {
	record, err := s.tokens.FindByToken(ctx, token, models.TokenTypeRefresh, false)
	if err != nil {
		return err
	}
	return s.tokens.DeleteByID(ctx, record.ID)
}
