package server

import (
	"strings"

	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) parseRefreshToken(c *fiber.Ctx) (string, error) {
	var req refreshTokenRequest
	if err := s.parseBody(c, &req); err != nil {
		return "", err
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("refreshToken is required"))
		return "", errResponseWritten
	}
	return token, nil
}

// Register handles POST /api/v1/auth/register
// @Summary Register
// @Description Create a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 201 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// Login handles POST /api/v1/auth/login
// @Summary Login
// @Description Exchange credentials for an access/refresh token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} object{user=models.User,tokens=service.AuthTokens}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	user, tokens, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "tokens": tokens})
}

// Logout handles POST /api/v1/auth/logout
// @Summary Logout
// @Description Revoke a refresh token
// @Tags auth
// @Accept json
// @Param request body object{refreshToken=string} true "Refresh token"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	token, err := s.parseRefreshToken(c)
	if err != nil {
		return nil
	}

	if err := s.authService.Logout(c.UserContext(), token); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RefreshTokens handles POST /api/v1/auth/refresh-tokens
// @Summary Refresh tokens
// @Description Consume a refresh token and issue a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{refreshToken=string} true "Refresh token"
// @Success 200 {object} object{user=models.User,tokens=service.AuthTokens}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh-tokens [post]
func (s *Server) RefreshTokens(c *fiber.Ctx) error {
	token, err := s.parseRefreshToken(c)
	if err != nil {
		return nil
	}

	user, tokens, err := s.authService.RefreshAuth(c.UserContext(), token)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "tokens": tokens})
}
