package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the
// Vereinsverwaltung service.
type Config struct {
	HTTPPort   int
	SQLiteDSN  string
	SessionTTL time.Duration
	LogLevel   string
	Env        string
	SentryDSN  string
}

// Load parses configuration values from a .env file when present and the
// current process environment. Defaults cover every optional field; invalid
// values are collected and reported together.
func Load() (Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:   8080,
		SQLiteDSN:  "file:verein.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		SessionTTL: 24 * time.Hour,
		LogLevel:   "info",
		Env:        "dev",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("VEREIN_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "VEREIN_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("VEREIN_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("VEREIN_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "VEREIN_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if level := strings.TrimSpace(os.Getenv("VEREIN_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}
	if env := strings.TrimSpace(os.Getenv("VEREIN_ENV")); env != "" {
		cfg.Env = env
	}
	cfg.SentryDSN = strings.TrimSpace(os.Getenv("VEREIN_SENTRY_DSN"))

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("ungültige Umgebungsvariablen: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
