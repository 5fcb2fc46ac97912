/*
Package config loads runtime settings from the environment.

A .env file in the working directory is loaded first when present, then real
environment variables win. Every setting has a default, so the server starts
with zero configuration for local development. The one deliberate exception:
RESET_PASSWORD has no default, and the factory-reset endpoint stays disabled
until it is set.
*/
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Port the HTTP API listens on.
	Port string

	// DBPath is the sqlite database file. ":memory:" runs without
	// persistence.
	DBPath string

	// ResetPassword arms the factory-reset operation. Empty disables it.
	ResetPassword string

	// AllowedOrigins is the CORS allowlist for the browser client.
	AllowedOrigins []string

	LogLevel  string
	LogFormat string // "console" or "json"
}

// Load reads .env (if present) then the environment. Missing .env is not an
// error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "billing.db"),
		ResetPassword:  getEnv("RESET_PASSWORD", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
