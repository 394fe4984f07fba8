package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/contentapp/backend/internal/config"
	"github.com/contentapp/backend/internal/db"
	"github.com/contentapp/backend/internal/handler"
	"github.com/contentapp/backend/internal/protect"
	"github.com/contentapp/backend/internal/service"
)

// @title ContentApp Admin Backend API
// @version 1.0
// @description Session issuance and revocation service for the admin SPA.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres init failed", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		log.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	protector, err := protect.New([]byte(cfg.Session.ProtectionKey), cfg.Session.Purpose)
	if err != nil {
		log.Error("data protection init failed", "error", err)
		os.Exit(1)
	}

	authService, err := service.NewAuthService(database, database, protector, log, cfg.Auth)
	if err != nil {
		log.Error("auth service init failed", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminUsername); err != nil {
			log.Error("admin seed failed", "error", err)
			os.Exit(1)
		}
	}

	retention, err := config.ParseDuration(cfg.Session.Retention, "SESSION_RETENTION")
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	sweepInterval, err := config.ParseDuration(cfg.Session.SweepInterval, "SESSION_SWEEP_INTERVAL")
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	reaper := service.NewSessionReaper(database, log, retention, sweepInterval)
	go reaper.Run(ctx)

	router := gin.Default()

	if origins := splitOrigins(cfg.Server.AllowedOrigins); len(origins) > 0 {
		router.Use(handler.CORSMiddleware(origins, true))
	}

	authHandler := handler.NewAuthHandler(authService)

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/openapi.json", handler.OpenAPIDoc)

	admin := router.Group("/api/admin")
	{
		admin.POST("/login", authHandler.Login)
		admin.POST("/register", authHandler.Register)
		admin.POST("/logout", authHandler.Logout)
		admin.GET("/config", authHandler.Config)

		protected := admin.Group("")
		protected.Use(handler.AuthMiddleware(authService))
		protected.GET("/me", authHandler.Me)
	}

	log.Info("listening", "addr", cfg.Server.Addr)
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func splitOrigins(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}
