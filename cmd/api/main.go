package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	_ "github.com/comitanigiacomo/kanso-analytics/docs"
	"github.com/comitanigiacomo/kanso-analytics/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-analytics/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-analytics/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-analytics/internal/config"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/services"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/workers"
)

type repositories struct {
	users        domain.UserRepository
	habits       domain.HabitRepository
	tasks        domain.TaskRepository
	goals        domain.GoalRepository
	metrics      domain.DailyMetricsRepository
	achievements domain.AchievementRepository
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		users:        repository.NewPostgresUserRepository(db),
		habits:       repository.NewPostgresHabitRepository(db),
		tasks:        repository.NewPostgresTaskRepository(db),
		goals:        repository.NewPostgresGoalRepository(db),
		metrics:      repository.NewPostgresDailyMetricsRepository(db),
		achievements: repository.NewPostgresAchievementRepository(db, slog.Default()),
	}
}

func memoryRepositories() repositories {
	return repositories{
		users:        repository.NewInMemoryUserRepository(),
		habits:       repository.NewInMemoryHabitRepository(),
		tasks:        repository.NewInMemoryTaskRepository(),
		goals:        repository.NewInMemoryGoalRepository(),
		metrics:      repository.NewInMemoryDailyMetricsRepository(),
		achievements: repository.NewInMemoryAchievementRepository(),
	}
}

type app struct {
	router *gin.Engine
	worker *workers.AchievementWorker
}

// buildApp wires services and handlers on top of already opened stores.
// db and rdb may be nil.
func buildApp(ctx context.Context, cfg *config.Config, repos repositories, db *sqlx.DB, rdb *redis.Client, logger *slog.Logger, startTime time.Time) (*app, error) {
	aggregator := services.NewMetricsAggregator(services.AggregatorRepos{
		Habits:       repos.habits,
		Tasks:        repos.tasks,
		Goals:        repos.goals,
		Metrics:      repos.metrics,
		Achievements: repos.achievements,
		Users:        repos.users,
	}, services.AggregatorConfig{
		Scoring:               cfg.Scoring,
		ConsistencyWindowDays: cfg.Analytics.ConsistencyWindowDays,
		HistoryDays:           cfg.Analytics.HistoryDays,
	}, nil, logger)

	worker := workers.NewAchievementWorker(aggregator, cfg.Worker.QueueSize, cfg.Worker.MaxAttempts, cfg.Worker.Backoff, logger)
	if rdb != nil {
		worker.SetOverflow(cache.NewPendingQueue(rdb, cache.AchievementQueueKey))
	}
	aggregator.SetQueue(worker)

	achievementService := services.NewAchievementService(repos.achievements, aggregator)
	if err := achievementService.SeedCatalog(ctx); err != nil {
		return nil, fmt.Errorf("seed achievement catalog: %w", err)
	}

	tokenService := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, repos.users)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:         adapterHTTP.NewAuthHandler(services.NewAuthService(repos.users), tokenService),
		HabitHandler:        adapterHTTP.NewHabitHandler(services.NewHabitService(repos.habits, aggregator)),
		TaskHandler:         adapterHTTP.NewTaskHandler(services.NewTaskService(repos.tasks, repos.metrics, aggregator)),
		GoalHandler:         adapterHTTP.NewGoalHandler(services.NewGoalService(repos.goals, aggregator)),
		ProductivityHandler: adapterHTTP.NewProductivityHandler(services.NewProductivityService(repos.metrics, aggregator)),
		AchievementHandler:  adapterHTTP.NewAchievementHandler(achievementService),
		Tokens:              tokenService,
		DB:                  db,
		Redis:               rdb,
		RateLimit:           cfg.Server.RateLimit,
		StartTime:           startTime,
	})

	return &app{router: router, worker: worker}, nil
}

// @title                       Kanso Analytics API
// @version                     1.0
// @description                 Habit, task and focus tracking with streaks, productivity scores and achievements.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	startTime := time.Now()

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	config.SetupLogger(cfg.App.LogLevel)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db    *sqlx.DB
		repos repositories
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		repos = memoryRepositories()
	default:
		logger.Info("connecting to database", "host", cfg.DB.Host, "name", cfg.DB.Name)
		db, err = openPostgres(ctx, cfg.DB)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("database connected and migrated")
		repos = postgresRepositories(db)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
			repos.habits = repository.NewCachedHabitRepository(repos.habits, rdb, logger)
			logger.Info("redis connected", "host", cfg.Redis.Host)
		}
	}

	app, err := buildApp(ctx, cfg, repos, db, rdb, logger, startTime)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	workerDone := app.worker.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("kanso analytics running", "addr", "http://localhost:"+cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("stop signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("achievement worker did not stop in time")
	}

	logger.Info("server stopped gracefully")
}
