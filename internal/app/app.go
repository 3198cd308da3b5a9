// Package app assembles the scheduler's repositories and services from
// configuration. Both the HTTP server and the operator CLI build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/repository"
	"github.com/noah-isme/academy-scheduler/internal/scheduling"
	"github.com/noah-isme/academy-scheduler/internal/service"
	"github.com/noah-isme/academy-scheduler/pkg/cache"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	"github.com/noah-isme/academy-scheduler/pkg/database"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
	"github.com/noah-isme/academy-scheduler/pkg/lock"
)

const (
	generationQueueName = "lesson-generation"
	keyPrefix           = "academy-scheduler:"
)

// Container holds the wired dependencies.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics   *service.MetricsService
	Generator *service.LessonGeneratorService
	Lessons   *service.LessonService
	Runs      *service.GenerationRunService
	Queue     *jobs.Queue

	// AvailabilityCache backs skipped-day diagnostics. It is nil unless Redis
	// is enabled and the cache TTL is positive.
	AvailabilityCache *service.CachedAvailability
}

// New connects to Postgres and, when enabled, Redis, then wires the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return Assemble(cfg, logger, db, redisClient), nil
}

// Assemble wires services over already opened connections. redisClient may be nil.
func Assemble(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: redisClient}
	c.build()
	return c
}

func (c *Container) build() {
	cfg := c.Config.Scheduler
	validate := validator.New()

	modules := repository.NewModuleAssignmentRepository(c.DB)
	availability := repository.NewAvailabilityRepository(c.DB)
	lessons := repository.NewLessonRepository(c.DB)

	var locker lock.Locker = lock.NewLocalLocker()
	if c.Redis != nil {
		locker = lock.NewRedisLocker(c.Redis, keyPrefix, cfg.LockTTL)
	}

	c.Metrics = service.NewMetricsService()

	windows := scheduling.NewWindowCalculator(scheduling.NewZoneOffsetResolver(cfg.Timezone, c.Logger))

	c.Generator = service.NewLessonGeneratorService(
		modules, availability, lessons, windows, locker, c.DB, c.Metrics, validate, c.Logger,
		service.LessonGeneratorConfig{
			MaxDays:          cfg.MaxDays,
			PoolSize:         cfg.PoolSize,
			DailyBudgetHours: cfg.DailyBudgetHours,
			Seed:             cfg.Seed,
			Diagnostics:      cfg.Diagnostics,
		},
	)
	// Placement always re-reads availability from Postgres; only diagnostics go through the cache.
	if c.Redis != nil && cfg.AvailabilityCacheTTL > 0 {
		store := repository.NewCacheRepository(c.Redis, keyPrefix)
		c.AvailabilityCache = service.NewCachedAvailability(availability, store, cfg.AvailabilityCacheTTL, c.Metrics, c.Logger)
		c.Generator.UseDiagnosticsAvailability(c.AvailabilityCache)
	}
	c.Lessons = service.NewLessonService(modules, availability, lessons, c.Metrics, validate, c.Logger,
		service.LessonServiceConfig{MaxLessonHours: cfg.MaxLessonHours})

	runs := service.NewGenerationRunStore(cfg.RunTTL)
	worker := service.NewGenerationWorker(runs, c.Generator, cfg.WorkerRetries, c.Logger)
	c.Queue = jobs.NewQueue(generationQueueName, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     c.Logger,
	})
	c.Runs = service.NewGenerationRunService(runs, c.Queue, c.Generator, c.Logger)
}

// Close releases the connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}

// RedisPinger adapts a Redis client to the readiness probe.
type RedisPinger struct {
	Client *redis.Client
}

// PingContext pings Redis.
func (p RedisPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
