package config

import (
	"log"
	"os"
)

// Config holds runtime configuration read from environment variables.
type Config struct {
	Env           string // "dev", "test" or "prod"
	Port          string // HTTP port to bind
	DatabaseURL   string // Postgres connection string
	SessionSecret string // HMAC secret for the session cookie
	LogFormat     string // "text" or "json"
	AdminEmail    string // optional bootstrap admin account
	AdminPassword string
	AdminName     string
}

// Load reads configuration from the environment. Required variables cause a
// fatal log when missing.
func Load() Config {
	return Config{
		Env:           envOr("APP_ENV", "dev"),
		Port:          envOr("APP_PORT", "8080"),
		DatabaseURL:   must("DATABASE_URL"),
		SessionSecret: must("SESSION_SECRET"),
		LogFormat:     envOr("LOG_FORMAT", "text"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     envOr("ADMIN_NAME", "管理者"),
	}
}

// IsProd reports whether the application runs in production mode. Session
// cookies are only marked Secure in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
