package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type HTTPConfig struct {
	Addr string
	// AllowedOrigins is the CORS allowlist for the web client. Empty means
	// allow any origin, for local development.
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
}

type MediaConfig struct {
	BaseURL  string
	RedisURL string
	CacheTTL time.Duration
}

// AppConfig carries everything cmd/edu needs to wire the process.
// All values come from the environment; no config files.
type AppConfig struct {
	ServiceName string
	LogLevel    string
	HTTP        HTTPConfig
	DatabaseURL string
	NATSURL     string
	Auth        AuthConfig
	Media       MediaConfig
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HTTP: HTTPConfig{
			Addr:           strings.TrimSpace(os.Getenv("HTTP_ADDR")),
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
		},
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		Auth: AuthConfig{
			JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
			AccessTokenTTL: envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		},
		Media: MediaConfig{
			BaseURL:  strings.TrimSpace(os.Getenv("MEDIA_BASE_URL")),
			RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
			CacheTTL: envDuration("MEDIA_CACHE_TTL", 30*time.Minute),
		},
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "edu"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Auth.JWTSecret == "" {
		return AppConfig{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
