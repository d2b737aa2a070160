package config

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("LOG_PRETTY", "")

	cfg, dotenv := Load()

	assert.False(t, dotenv)
	assert.Equal(t, "8001", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
	assert.Equal(t, time.Hour, cfg.Backend.AccessURLTTL)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Convert)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("TIMEOUT_DOWNLOAD", "90s")
	t.Setenv("ACCESS_URL_TTL", "not-a-duration")
	t.Setenv("WORKER_QUEUE_SIZE", "lots")
	t.Setenv("DB_HOST", "db")

	cfg, _ := Load()

	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Download)
	assert.Equal(t, time.Hour, cfg.Backend.AccessURLTTL)
	assert.Equal(t, 100, cfg.Worker.QueueSize)
	assert.Contains(t, cfg.GetDatabaseDSN(), "host=db ")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{InternalAPISecret: "s"},
			Worker: WorkerConfig{Concurrency: 1, QueueSize: 1},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantKey string
		wantMsg string
	}{
		{"missing secret", func(c *Config) { c.Server.InternalAPISecret = "" }, "INTERNAL_API_SECRET", "invalid configuration INTERNAL_API_SECRET: must be set"},
		{"no workers", func(c *Config) { c.Worker.Concurrency = 0 }, "WORKER_CONCURRENCY", `invalid configuration WORKER_CONCURRENCY="0": must be at least 1`},
		{"no queue", func(c *Config) { c.Worker.QueueSize = 0 }, "WORKER_QUEUE_SIZE", `invalid configuration WORKER_QUEUE_SIZE="0": must be at least 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := c.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewLogger(LogConfig{Level: "debug"}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger(LogConfig{Level: "chatty"}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger(LogConfig{}).GetLevel())
}
