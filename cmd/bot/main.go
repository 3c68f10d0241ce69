package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/access"
	httptransport "github.com/spec-kit/intake-service/internal/api/http"
	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/chat"
	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/engine"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/media"
	"github.com/spec-kit/intake-service/internal/observability"
	"github.com/spec-kit/intake-service/internal/persistence"
	"github.com/spec-kit/intake-service/internal/recorder"
	"github.com/spec-kit/intake-service/internal/repository"
	"github.com/spec-kit/intake-service/internal/service"
	"github.com/spec-kit/intake-service/internal/sheets"
	"github.com/spec-kit/intake-service/internal/worker"
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

	pool := pg.PoolHandle()
	rosterRepo := repository.NewRosterRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notify.WebhookURL)
	worker.StartNotificationWorker(notifications)

	rosterService := service.NewRosterService(service.RosterDependencies{
		RosterRepo:     rosterRepo,
		SubmissionRepo: submissionRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	chatClient := chat.NewClient(cfg.Bot, logger)
	relay := media.NewRelay(chatClient, cfg.Storage, cfg.Speech, logger)
	mirror := sheets.NewClient(cfg.Sheets, logger)

	finalizer := recorder.New(recorder.Dependencies{
		RecordSink: submissionRepo,
		MirrorSink: mirror,
		Uploader:   relay,
		Roster:     rosterRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	eng := engine.New(engine.Dependencies{
		Gate:        access.NewGate(cfg.Bot.AdminID, rosterRepo),
		Roster:      rosterRepo,
		RosterMgr:   rosterService,
		Finalizer:   finalizer,
		Transcriber: relay,
		MaxPhotos:   cfg.Bot.MaxPhotos,
		Logger:      logger,
		Metrics:     observability.NewMetrics(),
	})

	tokens := auth.NewTokenManager(cfg.AdminAPI.JWTSecret, cfg.AdminAPI.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:        handlers.NewWebhookHandler(eng, chatClient, chatClient, relay, redis.Client, cfg.Bot.WebhookSecret, logger),
		Roster:         handlers.NewRosterHandler(rosterService, tokens, cfg.AdminAPI.PasswordHash, logger),
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
