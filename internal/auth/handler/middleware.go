package handler

import (
	"strings"

	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/service"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/pkg/constant"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth verifies the bearer access token and attaches the subject id
// to the request context. The Authorization header takes precedence; the
// access-token cookie is the fallback. The ledger is never consulted here:
// access tokens are stateless by design.
func RequireAuth(tokens service.TokenGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractAccessToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "no token provided",
			})
		}

		claims, err := tokens.Verify(token, service.AccessToken)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(constant.UserIDKey, claims.Subject)
		if claims.IssuedAt != nil {
			c.Locals(constant.TokenIssuedAtKey, claims.IssuedAt.Time)
		}

		return c.Next()
	}
}

func extractAccessToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, constant.BearerPrefix) {
		return strings.TrimPrefix(authHeader, constant.BearerPrefix)
	}

	return c.Cookies(constant.AccessTokenCookie)
}
