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

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "5000", cfg.HTTP.Port)
	assert.Equal(t, "http://localhost:5000", cfg.HTTP.BaseURL)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Tracking.ContinuousViewWindow)
	assert.Equal(t, 10*time.Second, cfg.Tracking.PingGapLimit)
	assert.Equal(t, 30*time.Second, cfg.Tracking.SessionStaleAfter)
	assert.Equal(t, 30*time.Second, cfg.Tracking.ReaperInterval)
	assert.Equal(t, 20, cfg.Tracking.RecentLimit)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "pixel-events", cfg.Kafka.Topic)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("BASE_URL", "https://pixels.example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("TRACKING_REAPER_INTERVAL", "15s")
	t.Setenv("DASHBOARD_RECENT_LIMIT", "50")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "https://pixels.example.com", cfg.HTTP.BaseURL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Tracking.ReaperInterval)
	assert.Equal(t, 50, cfg.Tracking.RecentLimit)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 600, cfg.HTTP.RateLimitPerMinute)
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("TRACKING_PING_GAP_LIMIT", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACKING_PING_GAP_LIMIT")
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "analytics", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=analytics sslmode=disable", c.PostgresDSN())
}
