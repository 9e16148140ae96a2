package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the kanpai server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OpenAI   OpenAIConfig
	Line     LineConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
}

type LineConfig struct {
	ChannelAccessToken string
	AppOrigin          string
}

type JobsConfig struct {
	// BatchSize caps how many non-terminal jobs one reconcile pass polls.
	BatchSize int
	// Timeout is the safety window after which a job is force-failed.
	Timeout time.Duration
	// CronSchedule drives the in-process reconcile trigger.
	CronSchedule string
	// TriggerTokenHash is the bcrypt hash guarding the HTTP trigger endpoint.
	TriggerTokenHash string
}

// The Responses API documents a 128k output cap; env overrides are clamped
// to that ceiling.
const maxOutputTokensCeiling = 128_000

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("KANPAI_PORT", 8080),
			Env:  envString("KANPAI_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          os.Getenv("OPENAI_API_KEY"),
			BaseURL:         envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:           envString("OPENAI_TEXT_MODEL", "gpt-5-mini"),
			MaxOutputTokens: envInt("OPENAI_TEXT_MAX_OUTPUT_TOKENS", maxOutputTokensCeiling),
			Timeout:         envDuration("OPENAI_HTTP_TIMEOUT", 60*time.Second),
		},
		Line: LineConfig{
			ChannelAccessToken: os.Getenv("LINE_MESSAGING_CHANNEL_ACCESS_TOKEN"),
			AppOrigin:          envString("APP_ORIGIN", "http://localhost:3000"),
		},
		Jobs: JobsConfig{
			BatchSize:        envInt("GIFT_JOB_MAX_BATCH", 3),
			Timeout:          envDuration("GIFT_JOB_TIMEOUT", 15*time.Minute),
			CronSchedule:     envString("GIFT_JOB_CRON", "@every 1m"),
			TriggerTokenHash: os.Getenv("GIFT_JOB_TRIGGER_TOKEN_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Jobs.BatchSize <= 0 {
		return fmt.Errorf("GIFT_JOB_MAX_BATCH must be positive, got %d", c.Jobs.BatchSize)
	}
	if c.Jobs.Timeout <= 0 {
		return fmt.Errorf("GIFT_JOB_TIMEOUT must be positive, got %s", c.Jobs.Timeout)
	}

	if c.OpenAI.MaxOutputTokens <= 0 || c.OpenAI.MaxOutputTokens > maxOutputTokensCeiling {
		c.OpenAI.MaxOutputTokens = maxOutputTokensCeiling
	}

	if c.Server.Env == "production" && c.Jobs.TriggerTokenHash == "" {
		return fmt.Errorf("GIFT_JOB_TRIGGER_TOKEN_HASH is required in production")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
