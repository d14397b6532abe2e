package handler

import (
	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/service"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, tokens service.TokenGenerator) {
	auth := app.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
	auth.Get("/me", RequireAuth(tokens), h.Me)
	auth.Get("/logs", RequireAuth(tokens), h.ListLogs)
	auth.Delete("/logs", RequireAuth(tokens), h.ClearLogs)

	api := app.Group("/api", RequireAuth(tokens))
	api.Get("/profile", h.Profile)
	api.Get("/protected", h.Protected)
}
