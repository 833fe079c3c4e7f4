package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "config-test-secret-at-least-32-chars"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QUICKTASK_AUTH_JWT_SECRET", validSecret)
	t.Setenv("QUICKTASK_DATABASE_BACKEND", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "memory", cfg.Database.Backend)
	assert.Equal(t, 30, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, 2, cfg.Queue.WorkerCount)
	assert.Equal(t, 3, cfg.Queue.DeliveryAttempts)
	assert.Equal(t, 5, cfg.Queue.EnqueueTimeoutSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUICKTASK_SERVER_PORT", "9090")
	t.Setenv("QUICKTASK_SERVER_LOG_LEVEL", "debug")
	t.Setenv("QUICKTASK_AUTH_TOKEN_LIFETIME_MINUTES", "60")
	t.Setenv("QUICKTASK_QUEUE_BACKEND", "redis")
	t.Setenv("QUICKTASK_QUEUE_REDIS_ADDR", "localhost:6379")
	t.Setenv("QUICKTASK_QUEUE_WORKER_COUNT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, "redis", cfg.Queue.Backend)
	assert.Equal(t, "localhost:6379", cfg.Queue.RedisAddr)
	assert.Equal(t, 4, cfg.Queue.WorkerCount)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("QUICKTASK_DATABASE_BACKEND", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("short jwt secret", func(t *testing.T) {
		t.Setenv("QUICKTASK_DATABASE_BACKEND", "memory")
		t.Setenv("QUICKTASK_AUTH_JWT_SECRET", "too-short")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown database backend", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("QUICKTASK_DATABASE_BACKEND", "sqlite")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres backend requires url", func(t *testing.T) {
		t.Setenv("QUICKTASK_AUTH_JWT_SECRET", validSecret)
		t.Setenv("QUICKTASK_DATABASE_BACKEND", "postgres")
		t.Setenv("QUICKTASK_DATABASE_URL", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("redis backend requires addr", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("QUICKTASK_QUEUE_BACKEND", "redis")
		t.Setenv("QUICKTASK_QUEUE_REDIS_ADDR", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("QUICKTASK_SERVER_LOG_LEVEL", "verbose")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("secret of exactly 32 characters is accepted", func(t *testing.T) {
		t.Setenv("QUICKTASK_DATABASE_BACKEND", "memory")
		t.Setenv("QUICKTASK_AUTH_JWT_SECRET", strings.Repeat("s", 32))

		_, err := Load()
		assert.NoError(t, err)
	})
}
