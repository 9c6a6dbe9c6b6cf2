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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/config"
	"github.com/codeshare-labs/codeshare-api/internal/database"
	"github.com/codeshare-labs/codeshare-api/internal/handler"
	"github.com/codeshare-labs/codeshare-api/internal/middleware"
	"github.com/codeshare-labs/codeshare-api/internal/models"
	"github.com/codeshare-labs/codeshare-api/internal/repository"
	"github.com/codeshare-labs/codeshare-api/internal/router"
	"github.com/codeshare-labs/codeshare-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := connectDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Question{}, &models.Submission{}, &models.HistoryLink{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	hub := service.NewHub(logger)
	presence := service.NewPresenceTracker(logger)
	realtimeService := service.NewRealtimeService(hub, presence, submissionRepo, questionRepo, logger)
	questionService := service.NewQuestionService(questionRepo, realtimeService, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, questionRepo, realtimeService, redisClient, service.SubmissionConfig{
		DuplicateWindow: cfg.DuplicateWindow,
		ListCacheTTL:    cfg.ListCacheTTL,
	}, validate, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	questionHandler := handler.NewQuestionHandler(questionService, logger)
	realtimeHandler := handler.NewRealtimeHandler(realtimeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:      &logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		QuestionHandler:   questionHandler,
		RealtimeHandler:   realtimeHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Msg("server started")

	waitForShutdown(app)
}

func connectDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return database.ConnectPostgres(cfg.DatabaseURL)
	}
	return database.ConnectSQLite(cfg.DatabasePath)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
