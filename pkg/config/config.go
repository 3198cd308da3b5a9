package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// SchedulerConfig governs the automatic lesson generator and the manual lesson validator.
type SchedulerConfig struct {
	Enabled           bool
	Timezone          string
	MaxDays           int
	PoolSize          int
	DailyBudgetHours  float64
	MaxLessonHours    float64
	Seed              int64
	Diagnostics       bool
	LockTTL           time.Duration
	RunTTL            time.Duration
	WorkerConcurrency int
	WorkerRetries     int

	// AvailabilityCacheTTL applies when Redis is enabled; zero disables the cache.
	AvailabilityCacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Scheduler = SchedulerConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULER"),
		Timezone:          v.GetString("SCHEDULER_TIMEZONE"),
		MaxDays:           positiveInt(v.GetInt("SCHEDULER_MAX_DAYS"), 600),
		PoolSize:          positiveInt(v.GetInt("SCHEDULER_POOL_SIZE"), 5),
		DailyBudgetHours:  positiveFloat(v.GetFloat64("SCHEDULER_DAILY_BUDGET_HOURS"), 6),
		MaxLessonHours:    positiveFloat(v.GetFloat64("SCHEDULER_MAX_LESSON_HOURS"), 3),
		Seed:              v.GetInt64("SCHEDULER_SEED"),
		Diagnostics:       v.GetBool("SCHEDULER_DIAGNOSTICS"),
		LockTTL:           parseDuration(v.GetString("SCHEDULER_LOCK_TTL"), 15*time.Minute),
		RunTTL:            parseDuration(v.GetString("SCHEDULER_RUN_TTL"), time.Hour),
		WorkerConcurrency: positiveInt(v.GetInt("SCHEDULER_WORKER_CONCURRENCY"), 1),
		WorkerRetries:     positiveInt(v.GetInt("SCHEDULER_WORKER_RETRIES"), 2),

		AvailabilityCacheTTL: parseDuration(v.GetString("SCHEDULER_AVAILABILITY_CACHE_TTL"), 5*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_TIMEZONE", "Europe/Lisbon")
	v.SetDefault("SCHEDULER_MAX_DAYS", 600)
	v.SetDefault("SCHEDULER_POOL_SIZE", 5)
	v.SetDefault("SCHEDULER_DAILY_BUDGET_HOURS", 6)
	v.SetDefault("SCHEDULER_MAX_LESSON_HOURS", 3)
	v.SetDefault("SCHEDULER_SEED", 0)
	v.SetDefault("SCHEDULER_DIAGNOSTICS", true)
	v.SetDefault("SCHEDULER_LOCK_TTL", "15m")
	v.SetDefault("SCHEDULER_RUN_TTL", "1h")
	v.SetDefault("SCHEDULER_WORKER_CONCURRENCY", 1)
	v.SetDefault("SCHEDULER_WORKER_RETRIES", 2)
	v.SetDefault("SCHEDULER_AVAILABILITY_CACHE_TTL", "5m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveFloat(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
