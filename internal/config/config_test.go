package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-browser-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, []string{"openid"}, c.GetScope())
	require.Equal(t, config.ClientKindForm, c.GetClientKind())
	require.True(t, c.GetUsePKCE())
	require.True(t, c.GetStripCSRFField())
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
	require.Equal(t, 24*time.Hour, c.GetSessionMaxAge())
	require.Empty(t, c.GetAllowedOrigins())
}

func TestConfig_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("OAUTH2_SCOPE", "openid  profile offline_access")
	t.Setenv("OAUTH2_CLIENT", "LIBRARY")
	t.Setenv("OAUTH2_PKCE", "false")
	t.Setenv("OAUTH2_HTTP_TIMEOUT", "5s")
	t.Setenv("CSRF_STRIP_FIELD", "0")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c := config.New()

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, []string{"openid", "profile", "offline_access"}, c.GetScope())
	require.Equal(t, config.ClientKindLibrary, c.GetClientKind())
	require.False(t, c.GetUsePKCE())
	require.Equal(t, 5*time.Second, c.GetHTTPTimeout())
	require.False(t, c.GetStripCSRFField())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example"))
}

func TestConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("OAUTH2_CLIENT", "grpc")
	t.Setenv("OAUTH2_PKCE", "maybe")
	t.Setenv("SESSION_MAX_AGE", "-1h")

	c := config.New()

	require.Equal(t, config.ClientKindForm, c.GetClientKind())
	require.True(t, c.GetUsePKCE())
	require.Equal(t, 24*time.Hour, c.GetSessionMaxAge())
}

func TestConfig_SessionStore(t *testing.T) {
	c := config.New()
	require.Equal(t, config.SessionStoreMemory, c.GetSessionStore())
	require.Equal(t, "localhost:6379", c.GetRedisAddr())
	require.Zero(t, c.GetRedisDB())

	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "3")
	require.Equal(t, config.SessionStoreRedis, c.GetSessionStore())
	require.Equal(t, "cache:6380", c.GetRedisAddr())
	require.Equal(t, 3, c.GetRedisDB())

	t.Setenv("REDIS_DB", "x")
	require.Zero(t, c.GetRedisDB())
}
