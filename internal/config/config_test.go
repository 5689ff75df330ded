package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("GameDuration converts seconds to duration", func(t *testing.T) {
		cfg := &Config{GameDurationSeconds: 300}
		assert.Equal(t, 300*time.Second, cfg.GameDuration())
	})

	t.Run("PresenceTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{PresenceTTLSeconds: 120}
		assert.Equal(t, 120*time.Second, cfg.PresenceTTL())
	})

	t.Run("SecondPopWait converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SecondPopWaitSeconds: 2}
		assert.Equal(t, 2*time.Second, cfg.SecondPopWait())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                  os.Getenv("PORT"),
		"DATABASE_URL":          os.Getenv("DATABASE_URL"),
		"REDIS_URL":             os.Getenv("REDIS_URL"),
		"AUTH_TOKEN_SECRET":     os.Getenv("AUTH_TOKEN_SECRET"),
		"GAME_DURATION_SECONDS": os.Getenv("GAME_DURATION_SECONDS"),
		"PRESENCE_TTL_SECONDS":  os.Getenv("PRESENCE_TTL_SECONDS"),
		"LOG_LEVEL":             os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("AUTH_TOKEN_SECRET", "test-secret")
		os.Unsetenv("PORT")
		os.Unsetenv("GAME_DURATION_SECONDS")
		os.Unsetenv("PRESENCE_TTL_SECONDS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 300, cfg.GameDurationSeconds)
		assert.Equal(t, 120, cfg.PresenceTTLSeconds)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("AUTH_TOKEN_SECRET", "test-secret")
		os.Setenv("PORT", "3000")
		os.Setenv("GAME_DURATION_SECONDS", "120")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 120, cfg.GameDurationSeconds)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("AUTH_TOKEN_SECRET", "test-secret")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
