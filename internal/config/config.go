// Package config loads process configuration from the environment.
//
// A .env file in the working directory is read first, if there is one.
// godotenv never overrides a variable that is already set, so the real
// environment always wins over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned when DATABASE_URL is unset or empty.
var ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is required")

// Config holds everything the serve and migrate commands need.
type Config struct {
	// DatabaseURL is the filesystem path of the SQLite file.
	DatabaseURL string
	Addr        string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Workers is the blocking-work pool size. Defaults to DBMaxOpenConns.
	Workers int

	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the shape of
// os.LookupEnv. Tests pass a map-backed lookup instead of mutating the
// process environment.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		DatabaseURL: get("DATABASE_URL", ""),
		Addr:        get("ADDR", "localhost:8080"),
		LogFormat:   strings.ToLower(get("LOG_FORMAT", "text")),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}

	var err error
	if cfg.DBMaxOpenConns, err = positiveInt("DB_MAX_OPEN_CONNS", get("DB_MAX_OPEN_CONNS", "4")); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxIdleConns, err = positiveInt("DB_MAX_IDLE_CONNS", get("DB_MAX_IDLE_CONNS", strconv.Itoa(cfg.DBMaxOpenConns))); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = positiveInt("WORKERS", get("WORKERS", strconv.Itoa(cfg.DBMaxOpenConns))); err != nil {
		return Config{}, err
	}

	lifetime := get("DB_CONN_MAX_LIFETIME", "30m")
	if cfg.DBConnMaxLifetime, err = time.ParseDuration(lifetime); err != nil || cfg.DBConnMaxLifetime <= 0 {
		return Config{}, fmt.Errorf("config: DB_CONN_MAX_LIFETIME %q is not a positive duration", lifetime)
	}

	if cfg.LogLevel, err = ParseLevel(get("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("config: LOG_FORMAT %q must be text or json", cfg.LogFormat)
	}

	return cfg, nil
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
	}
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value) // Atoi = ASCII to Integer
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s %q is not a positive integer", key, value)
	}
	return n, nil
}
