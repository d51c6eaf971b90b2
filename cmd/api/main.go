package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/router"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "gema-grading-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, report cache and redis grade events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradeRecordRepo := repository.NewGradeRecordRepository(db)
	attemptRepo := repository.NewQuizAttemptRepository(db)
	settingRepo := repository.NewGradingSettingRepository(db)
	suggestionRepo := repository.NewEssaySuggestionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	settingsService := service.NewGradingSettingsService(settingRepo, cfg.DefaultMaxDiff, validate, activityService, logger)
	engine := service.NewReconciliationEngine(gradeRecordRepo, attemptRepo, settingsService, cfg.ConflictRetries, logger)
	reportService := service.NewGradingReportService(gradeRecordRepo, attemptRepo, redisClient, cfg.ReportCacheTTL, logger)
	forwarder := service.NewGradeForwarder(redisClient, natsConn, cfg.GradingEventChannel, logger)
	gradingService := service.NewGradingService(engine, attemptRepo, reportService, forwarder, activityService, validate, logger)

	deps := router.Dependencies{
		GradingHandler:  handler.NewGradingHandler(gradingService, reportService, logger),
		SettingsHandler: handler.NewSettingsHandler(settingsService, logger),
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
		HealthProbes: map[string]handler.HealthProbe{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	}
	if redisClient != nil {
		deps.HealthProbes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	if cfg.AIEnabled() {
		grader, err := ai.NewOpenAIEssayGrader(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure essay grader")
		}
		suggestionService := service.NewEssaySuggestionService(suggestionRepo, attemptRepo, grader, validate, activityService, logger)
		deps.EssaySuggestionHandler = handler.NewEssaySuggestionHandler(suggestionService, cfg.SuggestionRateLimit, cfg.SuggestionRateWindow, logger)
	} else {
		logger.Info().Msg("essay suggestions disabled, no ai provider configured")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
