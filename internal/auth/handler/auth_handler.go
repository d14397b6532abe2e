package handler

import (
	"errors"
	"time"

	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/dto"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/service"
	autherror "github.com/AnthoniusHendriyanto/jwt-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/pkg/constant"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	userService  *service.UserService
	cookieSecure bool
	validate     *validator.Validate
}

func NewAuthHandler(userService *service.UserService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		cookieSecure: cookieSecure,
		validate:     validator.New(),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": autherror.ErrMissingFields.Error(),
		})
	}

	user, err := h.userService.Register(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrEmailAlreadyInUse) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": autherror.ErrMissingFields.Error(),
		})
	}

	// Capture metadata for the attempt log.
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	result, err := h.userService.Login(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return internalError(c)
	}

	// The raw refresh token travels only in the httpOnly cookie, never in
	// a response body.
	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accessToken": result.AccessToken,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	input := dto.RefreshInput{
		RefreshToken: c.Cookies(constant.RefreshTokenCookie),
		IPAddress:    c.IP(),
		UserAgent:    string(c.Request().Header.UserAgent()),
	}

	// Body field is a weaker fallback kept for non-browser clients.
	if input.RefreshToken == "" {
		var body dto.RefreshInput
		if err := c.BodyParser(&body); err == nil {
			input.RefreshToken = body.RefreshToken
		}
	}

	if input.RefreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing refresh token",
		})
	}

	result, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrTokenExpired),
			errors.Is(err, autherror.ErrRefreshTokenExpired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "refresh token expired, please log in again",
			})
		case errors.Is(err, autherror.ErrTokenInvalid),
			errors.Is(err, autherror.ErrRefreshTokenNotFound),
			errors.Is(err, autherror.ErrRefreshTokenRevoked):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid refresh token",
			})
		}
		return internalError(c)
	}

	if result.RefreshToken != "" {
		h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accessToken": result.AccessToken,
	})
}

// Logout revokes the presented refresh token and clears the cookie. It
// reports success even when no matching token existed.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	rawToken := c.Cookies(constant.RefreshTokenCookie)
	if rawToken == "" {
		var body dto.RefreshInput
		if err := c.BodyParser(&body); err == nil {
			rawToken = body.RefreshToken
		}
	}

	if err := h.userService.Logout(c.Context(), rawToken); err != nil {
		return internalError(c)
	}

	h.clearRefreshCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals(constant.UserIDKey).(string)
	issuedAt, _ := c.Locals(constant.TokenIssuedAtKey).(time.Time)

	out, err := h.userService.WhoAmI(c.Context(), userID, issuedAt)
	if err != nil {
		if errors.Is(err, autherror.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return internalError(c)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	userID, _ := c.Locals(constant.UserIDKey).(string)

	user, err := h.userService.Profile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, autherror.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return internalError(c)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

func (h *AuthHandler) Protected(c *fiber.Ctx) error {
	userID, _ := c.Locals(constant.UserIDKey).(string)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "this is protected data",
		"userId":  userID,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) ListLogs(c *fiber.Ctx) error {
	userID, _ := c.Locals(constant.UserIDKey).(string)

	logs, err := h.userService.ListLoginAttempts(c.Context(), userID)
	if err != nil {
		return internalError(c)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"logs": logs,
	})
}

func (h *AuthHandler) ClearLogs(c *fiber.Ctx) error {
	userID, _ := c.Locals(constant.UserIDKey).(string)

	if err := h.userService.ClearLoginAttempts(c.Context(), userID); err != nil {
		return internalError(c)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": true,
	})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string, expiresAtUnix int64) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    token,
		Expires:  time.Unix(expiresAtUnix, 0),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

// internalError hides store and library failures behind a generic body.
func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "server error",
	})
}
