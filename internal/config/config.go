// Package config loads service settings from the environment and an optional
// YAML file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
)

// ConfigPathEnv names the variable holding an optional YAML config file
const ConfigPathEnv = "CONFIG_PATH"

// Config is the complete service configuration
type Config struct {
	HTTP     HTTP     `yaml:"http"`
	DB       DB       `yaml:"db"`
	Log      Log      `yaml:"log"`
	Treasury Treasury `yaml:"treasury"`
	Kafka    Kafka    `yaml:"kafka"`
}

// HTTP configures the API server
type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DB configures the badger store and its value log GC job
type DB struct {
	Path           string  `yaml:"path" env:"DB_PATH" env-default:"./data"`
	GCSchedule     string  `yaml:"gc_schedule" env:"DB_GC_SCHEDULE" env-default:"@every 10m"`
	GCDiscardRatio float64 `yaml:"gc_discard_ratio" env:"DB_GC_DISCARD_RATIO" env-default:"0.5"`
}

// Log configures the structured logger
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Treasury configures the exchange rate API client
type Treasury struct {
	BaseURL    string        `yaml:"base_url" env:"TREASURY_BASE_URL" env-default:"https://api.fiscaldata.treasury.gov/services/api/fiscal_service"`
	Timeout    time.Duration `yaml:"timeout" env:"TREASURY_TIMEOUT" env-default:"10s"`
	MaxRetries int           `yaml:"max_retries" env:"TREASURY_MAX_RETRIES" env-default:"3"`
	RateLimit  float64       `yaml:"rate_limit" env:"TREASURY_RATE_LIMIT" env-default:"5"`
	RateBurst  int           `yaml:"rate_burst" env:"TREASURY_RATE_BURST" env-default:"5"`
}

// Kafka configures event publishing. No brokers disables publishing.
type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"transaction-events"`
}

// Enabled reports whether any broker is configured
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// Load reads the file named by CONFIG_PATH when set, then applies environment
// variables and defaults, then validates the result
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to find config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main: any error is fatal
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks values the type system cannot
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("HTTP timeouts must be positive"))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if _, err := cron.ParseStandard(c.DB.GCSchedule); err != nil {
		errs = append(errs, fmt.Errorf("DB_GC_SCHEDULE is invalid: %w", err))
	}
	if c.DB.GCDiscardRatio <= 0 || c.DB.GCDiscardRatio >= 1 {
		errs = append(errs, errors.New("DB_GC_DISCARD_RATIO must be between 0 and 1"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL is invalid: %w", err))
	}
	if c.Treasury.BaseURL == "" {
		errs = append(errs, errors.New("TREASURY_BASE_URL must not be empty"))
	}
	if c.Treasury.Timeout <= 0 {
		errs = append(errs, errors.New("TREASURY_TIMEOUT must be positive"))
	}
	if c.Treasury.MaxRetries < 1 {
		errs = append(errs, errors.New("TREASURY_MAX_RETRIES must be at least 1"))
	}
	if c.Treasury.RateLimit <= 0 || c.Treasury.RateBurst < 1 {
		errs = append(errs, errors.New("TREASURY_RATE_LIMIT and TREASURY_RATE_BURST must be positive"))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC must be set when KAFKA_BROKERS is"))
	}

	return errors.Join(errs...)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
