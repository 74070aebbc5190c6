// Package middleware provides the Fiber middleware chain: authentication,
// request logging, rate limiting, tracing and metrics.
package middleware

import (
	"context"
	"strings"

	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AccessTokenParser validates a signed access token and returns its subject.
type AccessTokenParser interface {
	ParseAccessToken(token string) (uint, error)
}

// AuthRequired gates a route behind a bearer access token. It is stateless:
// only signature, expiry and token type are checked.
func AuthRequired(parser AccessTokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c)
		}

		userID, err := parser.ParseAccessToken(token)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals("userID", userID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		return c.Next()
	}
}

// UserIDFromLocals returns the authenticated user id set by AuthRequired.
func UserIDFromLocals(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: "Unauthorized",
		Code:  models.CodeUnauthorized,
	})
}
