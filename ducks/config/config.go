// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/on-the-ground/reducks_go/ducks/log"
	"go.uber.org/zap"
)

type Config struct {
	LogLevel     string `env:"REDUCKS_LOG_LEVEL" envDefault:"info"`
	LogBuffer    int    `env:"REDUCKS_LOG_BUFFER" envDefault:"64"`
	SourceBuffer int    `env:"REDUCKS_SOURCE_BUFFER" envDefault:"128"`

	PersistWorkers int `env:"REDUCKS_PERSIST_WORKERS" envDefault:"2"`
	PersistBuffer  int `env:"REDUCKS_PERSIST_BUFFER" envDefault:"16"`

	Storage            string        `env:"REDUCKS_STORAGE" envDefault:"memory"`
	SQLitePath         string        `env:"REDUCKS_SQLITE_PATH" envDefault:"reducks.db"`
	RedisURL           string        `env:"REDUCKS_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisRetries       int           `env:"REDUCKS_REDIS_RETRIES" envDefault:"3"`
	RedisRetryInterval time.Duration `env:"REDUCKS_REDIS_RETRY_INTERVAL" envDefault:"500ms"`
}

// Default returns the configuration of an empty environment.
func Default() Config {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		panic(fmt.Errorf("invalid config defaults: %w", err))
	}
	return cfg
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses cfg from the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Logger builds the zap logger for LogLevel.
func (c Config) Logger() (*zap.Logger, error) {
	return log.NewZapLogger(c.LogLevel)
}
