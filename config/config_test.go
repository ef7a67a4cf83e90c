package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("OTP_TTL", "")

	cfg := Load()
	require.Equal(t, "development", cfg.Env)
	require.False(t, cfg.IsProduction())
	require.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	require.Equal(t, 3*time.Minute, cfg.OTPTTL)
	require.Equal(t, "postgres", cfg.Store)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("APP_BASE_URL", "https://care.example.com/")
	t.Setenv("OTP_TTL", "not-a-duration")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "legacy-secret")

	cfg := Load()
	require.True(t, cfg.IsProduction())
	require.Equal(t, "https://care.example.com/reset-password", cfg.ResetPasswordURL())
	require.Equal(t, 3*time.Minute, cfg.OTPTTL)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins())
	require.Equal(t, "legacy-secret", cfg.SessionSecret)
}

func TestValidateSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	t.Setenv("APP_ENV", "production")
	require.ErrorIs(t, Load().Validate(), ErrMissingSessionSecret)

	t.Setenv("APP_ENV", "development")
	cfg := Load()
	require.Equal(t, DevSessionSecret, cfg.SessionSecret)
	require.NoError(t, cfg.Validate())

	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "s3cr3t-from-vault")
	require.NoError(t, Load().Validate())
}
