// Package config loads examprep settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Cache      CacheConfig      `yaml:"cache"`
	Queue      QueueConfig      `yaml:"queue"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Engine     EngineConfig     `yaml:"engine"`
}

// DatabaseConfig holds SQLite settings. An empty Path uses the XDG data dir.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Mode  string `yaml:"mode"` // dev, prod
	Level string `yaml:"level"`
}

// CacheConfig selects the gap cache. An empty RedisAddr uses an in-process cache.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// QueueConfig holds RabbitMQ settings for async ingestion.
type QueueConfig struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Workers  int    `yaml:"workers"`
	Prefetch int    `yaml:"prefetch"`
}

// ResilienceConfig tunes retries and the circuit breaker around the store.
type ResilienceConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	TripAfter    int           `yaml:"trip_after"`
	OpenFor      time.Duration `yaml:"open_for"`
}

// EngineConfig holds tunables for recommendation and insights.
type EngineConfig struct {
	ExcludeRecentDays int           `yaml:"exclude_recent_days"`
	InsightWindow     time.Duration `yaml:"insight_window"`
	InsightRetention  int           `yaml:"insight_retention"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Mode:  "dev",
			Level: "warn",
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Queue: QueueConfig{
			Name:     "examprep.answers",
			Workers:  4,
			Prefetch: 8,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			TripAfter:    5,
			OpenFor:      30 * time.Second,
		},
		Engine: EngineConfig{
			ExcludeRecentDays: 7,
			InsightWindow:     7 * 24 * time.Hour,
			InsightRetention:  100,
		},
	}
}

// DefaultPath resolves the config file in priority order:
// 1. EXAMPREP_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/examprep/config.yaml
// 3. ~/.config/examprep/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("EXAMPREP_CONFIG"); p != "" {
		return p, nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "examprep", "config.yaml"), nil
}

// Load reads path over the defaults and then applies environment overrides,
// including any from ./.env. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// A .env file in the working directory fills in variables the
	// environment does not already set.
	_ = godotenv.Load()

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Path = getEnv("EXAMPREP_DB", c.Database.Path)
	c.Log.Mode = getEnv("EXAMPREP_LOG_MODE", c.Log.Mode)
	c.Log.Level = getEnv("EXAMPREP_LOG_LEVEL", c.Log.Level)
	c.Cache.RedisAddr = getEnv("EXAMPREP_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("EXAMPREP_REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Queue.URL = getEnv("EXAMPREP_AMQP_URL", c.Queue.URL)
	c.Queue.Workers = getEnvInt("EXAMPREP_WORKERS", c.Queue.Workers)
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.ExcludeRecentDays < 0 || c.Engine.ExcludeRecentDays > 30 {
		return fmt.Errorf("engine.exclude_recent_days must be within [0,30], got %d", c.Engine.ExcludeRecentDays)
	}
	if c.Engine.InsightWindow <= 0 {
		return fmt.Errorf("engine.insight_window must be positive")
	}
	if c.Engine.InsightRetention < 1 {
		return fmt.Errorf("engine.insight_retention must be at least 1")
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
