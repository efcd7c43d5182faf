package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Cookie  CookieConfig
	Guard   GuardConfig
}

type ServerConfig struct {
	Port           string `validate:"required"`
	Env            string `validate:"oneof=development staging production"`
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	SentryDSN      string
	// Coarse per-IP limit over the whole gateway mount; the loop guard
	// applies the finer per-path budgets on top of this.
	RequestsPerMinute int `validate:"gte=1"`
}

type BackendConfig struct {
	BaseURL    string `validate:"required,url"`
	APIPrefix  string `validate:"required,startswith=/"`
	ChatPrefix string `validate:"required,startswith=/"`
	Timeout    time.Duration
}

type CookieConfig struct {
	Name     string `validate:"required"`
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string `validate:"oneof=strict lax none"`
	MaxAge   time.Duration
}

type GuardConfig struct {
	VerifyBudget  int `validate:"gte=1"`
	DefaultBudget int `validate:"gte=1"`
	ResetWindow   time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnv("PORT", "8080"),
			Env:               env,
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:    parseAllowedOrigins(env),
			TrustedProxies:    parseList(getEnv("TRUSTED_PROXIES", "")),
			SentryDSN:         getEnv("SENTRY_DSN", ""),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Backend: BackendConfig{
			BaseURL:    getEnv("BACKEND_URL", "http://localhost:8000"),
			APIPrefix:  getEnv("BACKEND_API_PREFIX", "/api"),
			ChatPrefix: getEnv("BACKEND_CHAT_PREFIX", "/chat"),
			Timeout:    getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Cookie: CookieConfig{
			Name:     getEnv("COOKIE_NAME", "auth_token"),
			Domain:   getEnv("COOKIE_DOMAIN", ""),
			Secure:   getEnvAsBool("COOKIE_SECURE", env == "production"),
			SameSite: getEnv("COOKIE_SAMESITE", "lax"),
			MaxAge:   getEnvAsDuration("COOKIE_MAX_AGE", 30*time.Minute),
		},
		Guard: GuardConfig{
			VerifyBudget:  getEnvAsInt("GUARD_VERIFY_BUDGET", 20),
			DefaultBudget: getEnvAsInt("GUARD_DEFAULT_BUDGET", 5),
			ResetWindow:   getEnvAsDuration("GUARD_RESET_WINDOW", 10*time.Minute),
			SweepInterval: getEnvAsDuration("GUARD_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	if cfg.Guard.ResetWindow <= 0 || cfg.Guard.SweepInterval <= 0 {
		return nil, fmt.Errorf("guard windows must be positive")
	}

	if err := validate.Struct(cfg); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return nil, fmt.Errorf("invalid configuration: %s failed %q", ve[0].Namespace(), ve[0].Tag())
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Browsers reject SameSite=None cookies without the Secure attribute
	if env == "production" && cfg.Cookie.SameSite == "none" && !cfg.Cookie.Secure {
		return nil, fmt.Errorf("SameSite=none requires COOKIE_SECURE=true")
	}

	return cfg, nil
}

var validate = validator.New()

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
