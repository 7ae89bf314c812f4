package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/proxygate/proxygate/internal/auth/service"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, admin *AdminHandler, stats *StatsHandler, gate *service.AuthGate, rateLimitPerMinute int) {
	requireAuth := RequireAuth(gate)

	api := app.Group("/api")

	// Credential endpoints are rate limited per client IP.
	limited := api.Group("", limiter.New(limiter.Config{
		Max:        rateLimitPerMinute,
		Expiration: time.Minute,
	}))
	limited.Post("/register", h.Register)
	limited.Post("/login", h.Login)

	api.Post("/refresh", h.Refresh)
	api.Post("/logout", requireAuth, h.Logout)
	api.Get("/sessions", requireAuth, h.ListSessions)
	api.Delete("/sessions/:id", requireAuth, h.RevokeSession)

	api.Get("/stats", requireAuth, stats.GetStats)

	api.Get("/profile", requireAuth, h.GetProfile)
	api.Put("/profile", requireAuth, h.UpdateProfile)
	api.Post("/change-password", requireAuth, h.ChangePassword)

	adminGroup := api.Group("/admin", requireAuth, RequireAdmin())
	adminGroup.Get("/users", admin.ListUsers)
	adminGroup.Get("/users/:id", admin.GetUser)
	adminGroup.Put("/users/:id", admin.UpdateUser)
	adminGroup.Delete("/users/:id", admin.DeleteUser)
	adminGroup.Get("/stats", admin.AllStats)
}
