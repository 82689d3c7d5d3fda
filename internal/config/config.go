package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	Tracking    TrackingConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
}

type HTTPConfig struct {
	Port               string
	AnalyticsPort      string
	BaseURL            string
	AllowedOrigins     []string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
}

type TrackingConfig struct {
	ContinuousViewWindow time.Duration
	PingGapLimit         time.Duration
	SessionStaleAfter    time.Duration
	ReaperInterval       time.Duration
	RecentLimit          int
}

type PostgresConfig struct {
	Host            string
	Port            string
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	Topic            string
	ProducerRetries  int
	ProducerTimeout  time.Duration
	RequiredAcks     int
	CompressionType  string
	MaxMessageBytes  int
	IdempotentWrites bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	port := getEnv("HTTP_PORT", "5000")
	cfg.HTTP = HTTPConfig{
		Port:               port,
		AnalyticsPort:      getEnv("ANALYTICS_HTTP_PORT", "5001"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:"+port),
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		ShutdownTimeout:    getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	cfg.Tracking = TrackingConfig{
		ContinuousViewWindow: getEnvAsDuration("TRACKING_CONTINUOUS_VIEW_WINDOW", 30*time.Second),
		PingGapLimit:         getEnvAsDuration("TRACKING_PING_GAP_LIMIT", 10*time.Second),
		SessionStaleAfter:    getEnvAsDuration("TRACKING_SESSION_STALE_AFTER", 30*time.Second),
		ReaperInterval:       getEnvAsDuration("TRACKING_REAPER_INTERVAL", 30*time.Second),
		RecentLimit:          getEnvAsInt("DASHBOARD_RECENT_LIMIT", 20),
	}

	cfg.Postgres = PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            getEnv("POSTGRES_PORT", "5432"),
		Database:        getEnv("POSTGRES_DB", "analytics"),
		Username:        getEnv("POSTGRES_USER", "admin"),
		Password:        getEnv("POSTGRES_PASSWORD", "password"),
		MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
	}

	cfg.Kafka = KafkaConfig{
		Enabled:          getEnvAsBool("KAFKA_ENABLED", false),
		Brokers:          splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		Topic:            getEnv("KAFKA_TOPIC_EVENTS", "pixel-events"),
		ProducerRetries:  getEnvAsInt("KAFKA_PRODUCER_RETRIES", 3),
		ProducerTimeout:  getEnvAsDuration("KAFKA_PRODUCER_TIMEOUT", 10*time.Second),
		RequiredAcks:     getEnvAsInt("KAFKA_REQUIRED_ACKS", -1),
		CompressionType:  getEnv("KAFKA_COMPRESSION", "snappy"),
		IdempotentWrites: getEnvAsBool("KAFKA_IDEMPOTENT", true),
		MaxMessageBytes:  getEnvAsInt("KAFKA_MAX_MESSAGE_BYTES", 1000000),
	}

	if err := cfg.Tracking.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (t TrackingConfig) validate() error {
	durations := map[string]time.Duration{
		"TRACKING_CONTINUOUS_VIEW_WINDOW": t.ContinuousViewWindow,
		"TRACKING_PING_GAP_LIMIT":         t.PingGapLimit,
		"TRACKING_SESSION_STALE_AFTER":    t.SessionStaleAfter,
		"TRACKING_REAPER_INTERVAL":        t.ReaperInterval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if t.RecentLimit <= 0 {
		return fmt.Errorf("DASHBOARD_RECENT_LIMIT must be positive, got %d", t.RecentLimit)
	}
	return nil
}

func (c *PostgresConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
