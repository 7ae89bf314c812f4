// Package health exposes liveness and metrics endpoints.
package health

import (
	"context"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proxygate/proxygate/internal/cache"
)

type Handler struct {
	pool  *pgxpool.Pool
	cache *cache.Cache
}

func NewHandler(pool *pgxpool.Pool, c *cache.Cache) *Handler {
	return &Handler{pool: pool, cache: c}
}

func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (h *Handler) Health(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "healthy",
		"database": "connected",
		"redis":    "connected",
	}
	code := fiber.StatusOK

	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		status["database"] = "error: " + err.Error()
		status["status"] = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	if err := h.cache.Ping(ctx); err != nil {
		status["redis"] = "error: " + err.Error()
		status["status"] = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(status)
}
