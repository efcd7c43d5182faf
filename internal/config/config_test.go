package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 120, cfg.Server.RequestsPerMinute)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "/api", cfg.Backend.APIPrefix)
	assert.Equal(t, "/chat", cfg.Backend.ChatPrefix)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)

	assert.Equal(t, "auth_token", cfg.Cookie.Name)
	assert.Equal(t, "lax", cfg.Cookie.SameSite)
	assert.Equal(t, 30*time.Minute, cfg.Cookie.MaxAge)
	assert.False(t, cfg.Cookie.Secure)

	assert.Equal(t, 20, cfg.Guard.VerifyBudget)
	assert.Equal(t, 5, cfg.Guard.DefaultBudget)
	assert.Equal(t, 10*time.Minute, cfg.Guard.ResetWindow)
	assert.Equal(t, 5*time.Minute, cfg.Guard.SweepInterval)

	// Development allows localhost origins out of the box
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:3000")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:9000")
	t.Setenv("GUARD_VERIFY_BUDGET", "50")
	t.Setenv("GUARD_RESET_WINDOW", "2m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("COOKIE_SAMESITE", "strict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 50, cfg.Guard.VerifyBudget)
	assert.Equal(t, 2*time.Minute, cfg.Guard.ResetWindow)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, "strict", cfg.Cookie.SameSite)
}

func TestLoadRejectsInvalidBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "not-a-url")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidSameSite(t *testing.T) {
	t.Setenv("COOKIE_SAMESITE", "sideways")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInsecureSameSiteNoneInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("COOKIE_SAMESITE", "none")
	t.Setenv("COOKIE_SECURE", "false")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProductionOriginsFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://www.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.example.com", "https://www.example.com"}, cfg.Server.AllowedOrigins)
}
