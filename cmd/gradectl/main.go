package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/cli"
	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/service"
)

func main() {
	if err := cli.RootCmd(connect).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	connectOnce sync.Once
	services    cli.Services
	connectErr  error
)

// connect wires the services against the configured stores. Redis and NATS are
// optional so the console still works against a bare database.
func connect() (cli.Services, error) {
	connectOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			connectErr = err
			return
		}

		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()

		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			connectErr = err
			return
		}
		if err := database.Migrate(db); err != nil {
			connectErr = err
			return
		}

		var redisClient *redis.Client
		if cfg.RedisURL != "" {
			if redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL); err != nil {
				logger.Warn().Err(err).Msg("redis unavailable, report cache will not be invalidated")
				redisClient = nil
			}
		}
		var natsConn *nats.Conn
		if cfg.NATSURL != "" {
			if natsConn, err = database.ConnectNATS(cfg.NATSURL, "gradectl"); err != nil {
				logger.Warn().Err(err).Msg("nats unavailable")
				natsConn = nil
			}
		}

		validate := validator.New(validator.WithRequiredStructEnabled())
		records := repository.NewGradeRecordRepository(db)
		attempts := repository.NewQuizAttemptRepository(db)
		activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
		settings := service.NewGradingSettingsService(repository.NewGradingSettingRepository(db), cfg.DefaultMaxDiff, validate, activity, logger)
		engine := service.NewReconciliationEngine(records, attempts, settings, cfg.ConflictRetries, logger)
		reports := service.NewGradingReportService(records, attempts, redisClient, cfg.ReportCacheTTL, logger)
		forwarder := service.NewGradeForwarder(redisClient, natsConn, cfg.GradingEventChannel, logger)

		services = cli.Services{
			Grading:  service.NewGradingService(engine, attempts, reports, forwarder, activity, validate, logger),
			Reports:  reports,
			Settings: settings,
		}
	})
	return services, connectErr
}
