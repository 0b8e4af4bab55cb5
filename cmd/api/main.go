package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/internal/config"
	"github.com/skillarena/arena-api/internal/database"
	"github.com/skillarena/arena-api/internal/handler"
	"github.com/skillarena/arena-api/internal/middleware"
	"github.com/skillarena/arena-api/internal/repository"
	"github.com/skillarena/arena-api/internal/router"
	"github.com/skillarena/arena-api/internal/service"
	"github.com/skillarena/arena-api/pkg/ai"
	"github.com/skillarena/arena-api/pkg/blob"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis and NATS are optional; the services they back degrade to
	// pass-through behaviour when the clients are nil.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, records cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	store, err := newBlobStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialise attachment storage: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	scoringRepo := repository.NewScoringRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	registry := ai.NewRegistry(logger)
	registerStrategies(cfg, registry, store, logger)

	tracker := service.NewEvaluationTracker()
	worker := service.NewBackgroundWorker(cfg.WorkerQueueSize, logger)
	cache := service.NewRecordsCache(redisClient, cfg.RecordsCacheTTL, logger)
	feed := service.NewScoreFeed(redisClient, cfg.ScoreFeedChannel, natsConn, cfg.ScoreFeedSubject, logger)

	activityService := service.NewActivityService(activityRepo, logger)
	accessService := service.NewAccessService(eventRepo, logger)
	userService := service.NewUserService(userRepo, cfg.JWTSecret, cfg.TokenTTL, activityService, logger)
	eventService := service.NewEventService(eventRepo, userRepo, accessService, activityService, logger)
	moduleService := service.NewModuleService(moduleRepo, eventRepo, scoringRepo, attachmentRepo, accessService, worker, activityService, logger)
	attachmentService := service.NewAttachmentService(moduleRepo, attachmentRepo, accessService, store, activityService, logger)
	scoringService := service.NewScoringService(moduleRepo, eventRepo, scoringRepo, accessService, cache, feed, activityService, logger)
	evaluationService := service.NewEvaluationService(
		moduleRepo, eventRepo, scoringRepo, attachmentRepo,
		accessService, registry, tracker, worker, cache, feed,
		activityService, cfg.EvaluationTimeout, logger,
	)

	authHandler := handler.NewAuthHandler(userService, validate, logger)
	userHandler := handler.NewUserHandler(userService, validate, logger)
	eventHandler := handler.NewEventHandler(eventService, validate, logger)
	moduleHandler := handler.NewModuleHandler(moduleService, evaluationService, validate, logger)
	scoringHandler := handler.NewScoringHandler(scoringService, validate, logger)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    64 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		EventHandler:      eventHandler,
		ModuleHandler:     moduleHandler,
		ScoringHandler:    scoringHandler,
		AttachmentHandler: attachmentHandler,
		ActivityHandler:   activityHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		LoginRateLimit:    middleware.RateLimit("login", 10, time.Minute),
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Run(workerCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorker)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func newBlobStore(cfg config.Config, logger zerolog.Logger) (blob.Store, error) {
	if cfg.StorageBackend == "cloudinary" {
		return blob.NewCloudinaryStore(blob.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	}

	return blob.NewLocalStore(cfg.UploadDir, logger)
}

// registerStrategies binds the built-in vision strategy to the modules named
// in configuration. Modules without a strategy stay manual-scoring only.
func registerStrategies(cfg config.Config, registry *ai.Registry, store blob.Store, logger zerolog.Logger) {
	if len(cfg.PrototypeModules) == 0 {
		return
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("openai api key not configured, evaluation strategies disabled")
		return
	}

	vision, err := ai.NewOpenAIVision(ai.VisionConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.AIModel,
		RequestTimeout: cfg.AIRequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build vision client, evaluation strategies disabled")
		return
	}

	strategy := ai.NewPrototypeStrategy(vision, store, logger)
	for _, moduleID := range cfg.PrototypeModules {
		registry.Register(moduleID, strategy)
		logger.Info().Uint("module_id", moduleID).Msg("registered evaluation strategy")
	}
}

func waitForShutdown(app *fiber.App, stopWorker context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	stopWorker()

	log.Println("server stopped")
}
