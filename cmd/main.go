package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"github.com/proxygate/proxygate/config"
	"github.com/proxygate/proxygate/db"
	"github.com/proxygate/proxygate/internal/auth/handler"
	repo "github.com/proxygate/proxygate/internal/auth/repository/postgres"
	"github.com/proxygate/proxygate/internal/auth/service"
	"github.com/proxygate/proxygate/internal/cache"
	"github.com/proxygate/proxygate/internal/health"
	"github.com/proxygate/proxygate/internal/proxy"
	"github.com/proxygate/proxygate/internal/usage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer dbPool.Close()

	if err := db.EnsureSchema(ctx, dbPool); err != nil {
		logrus.WithError(err).Fatal("failed to ensure database schema")
	}

	fastCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure Redis")
	}
	defer fastCache.Close()

	repository := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	userService := service.NewUserService(repository, repository, tokenService, fastCache, cfg.PasswordMinLength)
	authGate := service.NewAuthGate(repository, tokenService, fastCache)
	accountant := usage.NewAccountant(fastCache)
	relay := proxy.NewRelay(cfg.ConnectTimeout, cfg.ReadTimeout, cfg.OutboundUserAgent, accountant)

	authHandler := handler.NewAuthHandler(userService)
	adminHandler := handler.NewAdminHandler(userService, accountant)
	statsHandler := handler.NewStatsHandler(accountant)
	proxyHandler := proxy.NewHandler(relay, authGate, cfg.MaxRequestBytes())
	healthHandler := health.NewHandler(dbPool, fastCache)

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxRequestBytes()),
	})
	app.Use(cors.New())

	handler.RegisterRoutes(app, authHandler, adminHandler, statsHandler, authGate, cfg.RateLimitPerMinute)
	proxy.RegisterRoutes(app, proxyHandler)
	health.RegisterRoutes(app, healthHandler)

	logrus.WithField("port", cfg.Port).Info("starting proxy gateway")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
