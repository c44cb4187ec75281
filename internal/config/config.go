package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/analytics"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Server    ServerConfig            `mapstructure:"server"`
	Storage   StorageConfig           `mapstructure:"storage"`
	DB        DatabaseConfig          `mapstructure:"db"`
	Redis     RedisConfig             `mapstructure:"redis"`
	JWT       JWTConfig               `mapstructure:"jwt"`
	Analytics AnalyticsConfig         `mapstructure:"analytics"`
	Scoring   analytics.ScoringConfig `mapstructure:"scoring"`
	Worker    WorkerConfig            `mapstructure:"worker"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	RateLimit       int           `mapstructure:"rate_limit"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User, d.Password, net.JoinHostPort(d.Host, d.Port), d.Name, d.SSLMode)
}

// RedisConfig is optional; an empty host disables caching and rate limiting.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AnalyticsConfig struct {
	ConsistencyWindowDays int `mapstructure:"consistency_window_days"`
	HistoryDays           int `mapstructure:"history_days"`
}

type WorkerConfig struct {
	QueueSize   int           `mapstructure:"queue_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// Load layers defaults, an optional YAML file and the environment, in that order.
// A local .env file is read first so its values count as environment.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("app.log_level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
		slog.Debug("no config file found, using defaults and environment")
	} else {
		slog.Info("config file loaded", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kanso-analytics")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "kanso")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "kanso-analytics")
	v.SetDefault("jwt.ttl", 24*time.Hour)

	v.SetDefault("analytics.consistency_window_days", 30)
	v.SetDefault("analytics.history_days", 60)

	scoring := analytics.DefaultScoringConfig()
	v.SetDefault("scoring.weights.tasks", scoring.Weights.Tasks)
	v.SetDefault("scoring.weights.habits", scoring.Weights.Habits)
	v.SetDefault("scoring.weights.focus", scoring.Weights.Focus)
	v.SetDefault("scoring.weights.rating", scoring.Weights.Rating)
	v.SetDefault("scoring.weights.goals", scoring.Weights.Goals)
	v.SetDefault("scoring.focus_target_minutes", scoring.FocusTargetMinutes)

	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.backoff", 2*time.Second)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("config: server port is required")
	}
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("config: jwt ttl must be positive")
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("config: scoring: %w", err)
	}
	return nil
}

func SetupLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
