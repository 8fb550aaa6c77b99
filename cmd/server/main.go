package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canvasboard/backend/internal/authz"
	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/internal/handlers"
	"github.com/canvasboard/backend/internal/metrics"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/storage"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func fatal(action string, err error) {
	logger.Error(action, err, nil)
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	utils.ConfigureJWT(cfg.Session.Secret)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Open(startupCtx, cfg.Database)
	cancel()
	if err != nil {
		fatal("database_connection_failed", err)
	}

	var objects storage.ObjectStore
	if cfg.MinIO.Enabled {
		minioClient, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			fatal("minio_initialization_failed", err)
		}
		if err := minioClient.EnsureBucket(context.Background()); err != nil {
			fatal("minio_bucket_failed", err)
		}
		objects = minioClient
	} else {
		logger.Warn("minio_disabled", map[string]interface{}{
			"detail": "asset endpoints will return 503",
		})
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		fatal("authz_initialization_failed", err)
	}

	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	accessService := services.NewAccessService(db, enforcer)
	sessionService := services.NewSessionService(db, cfg.Session.TTL)
	auditService := services.NewAuditService(db, cfg.Audit.QueueSize)
	googleService := services.NewGoogleOAuthService(cfg.Google)

	var authLimiter *middleware.RateLimiter
	var authLimit fiber.Handler
	if cfg.RateLimit.Enabled {
		authLimiter = middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimit.Burst, cfg.RateLimit.Window))
		authLimit = authLimiter.Handler()
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: utils.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(collector.Middleware())

	app.Get("/metrics", metrics.Handler(registry))

	handlers.RegisterRoutes(app, handlers.Routes{
		Health:         handlers.NewHealthHandler(db),
		Auth:           handlers.NewAuthHandler(db, sessionService, auditService, googleService, cfg),
		Boards:         handlers.NewBoardsHandler(db, accessService, objects, auditService, collector, cfg.Server.FrontendURL),
		Assets:         handlers.NewAssetsHandler(objects, auditService, collector),
		AuthMiddleware: middleware.NewAuthMiddleware(db, sessionService, cfg.Session.CookieName),
		BoardAccess:    middleware.NewBoardAccess(accessService),
		AuthLimiter:    authLimit,
	})

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":        cfg.Server.Port,
		"address":     listenAddr,
		"environment": cfg.Server.Environment,
		"driver":      cfg.Database.Driver,
		"storage":     objects != nil,
		"google":      googleService.Enabled(),
		"version":     handlers.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("server_shutting_down", map[string]interface{}{"signal": sig.String()})
		if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", err, nil)
		}
	}

	auditService.Close()
	if authLimiter != nil {
		authLimiter.Stop()
	}
	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err := db.Close(closeCtx); err != nil {
		logger.Error("database_close_failed", err, nil)
	}
	logger.Info("server_stopped", nil)
}
