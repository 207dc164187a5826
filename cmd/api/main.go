package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/TCoder4k/engmasterai-backend/internal/api/http"
	"github.com/TCoder4k/engmasterai-backend/internal/api/http/handlers"
	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/config"
	"github.com/TCoder4k/engmasterai-backend/internal/events"
	"github.com/TCoder4k/engmasterai-backend/internal/media"
	"github.com/TCoder4k/engmasterai-backend/internal/observability"
	"github.com/TCoder4k/engmasterai-backend/internal/persistence"
	"github.com/TCoder4k/engmasterai-backend/internal/repository"
	"github.com/TCoder4k/engmasterai-backend/internal/service"
	"github.com/TCoder4k/engmasterai-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tokenMgr, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	revoked := auth.NewRevocationList(cfg.Auth.SweepInterval())
	defer revoked.Close()

	var uploader media.Uploader
	if cfg.Media.CloudName != "" {
		client, err := media.NewCloudinaryClient(cfg.Media)
		if err != nil {
			logger.Fatal("failed to init media client", zap.Error(err))
		}
		uploader = client
	} else {
		logger.Warn("CLOUDINARY_CLOUD_NAME not provided; avatar uploads disabled")
	}

	dispatcher := events.NewInMemoryDispatcher()
	auditWorker := worker.NewAuditWorker(redis, logger, tokenMgr.TTL())
	auditWorker.Register(dispatcher)

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	authService := service.NewAuthService(userRepo, tokenMgr, revoked, dispatcher, cfg.Auth.BcryptCost)
	userService := service.NewUserService(userRepo, uploader, logger, cfg.Auth.BcryptCost)
	authMiddleware := auth.NewMiddleware(tokenMgr, revoked)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
