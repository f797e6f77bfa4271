// Package config loads and validates configuration at startup.
//
// Values come from an optional YAML file (path in COACH_CONFIG), then
// environment variables override anything the file sets. Fail-fast: if a
// required value is missing the process exits.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"jobmate/coach-service/internal/llm"
)

// generationSlack covers the store round trips around one generation.
const generationSlack = 30 * time.Second

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingRedisURL    = errors.New("REDIS_URL is required")
	ErrMissingOpenAIKey   = errors.New("OPENAI_API_KEY is required")
	ErrInvalidSchedule    = errors.New("insights.refresh_schedule is not a valid cron spec")
	ErrInvalidTTL         = errors.New("insights.ttl_hours must be at least 1")
	ErrInvalidLockTTL     = errors.New("insights.lock_ttl_sec must be 0 (derived) or cover the generation retry budget")
	ErrInvalidTimeout     = errors.New("timeouts must be at least 1 second")
	ErrInvalidMaxRetries  = errors.New("openai.max_retries must be non-negative")
	ErrInvalidLoggingMode = errors.New("logging.mode must be one of: dev, prod")
	ErrInvalidPoolSize    = errors.New("database.max_conns and redis.pool_size must be non-negative")
)

// Config holds all runtime configuration for the coach service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Insights   InsightsConfig   `yaml:"insights"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	GRPCPort string `yaml:"grpc_port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"` // 0 keeps the pgxpool default
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"` // 0 keeps the go-redis default
}

// OpenAIConfig configures the text-generation client.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// InsightsConfig controls lazy materialization and the refresh job.
type InsightsConfig struct {
	RefreshSchedule  string `yaml:"refresh_schedule"` // cron spec, default weekly on Sunday midnight
	RefreshOnStart   bool   `yaml:"refresh_on_start"` // refresh rows past next_update at boot
	TTLHours         int    `yaml:"ttl_hours"`        // lastUpdated → nextUpdate distance
	LockTTLSec       int    `yaml:"lock_ttl_sec"`     // 0 derives it from the generation budget
	StrictValidation bool   `yaml:"strict_validation"`
}

type OnboardingConfig struct {
	TimeoutSec int `yaml:"timeout_sec"`
}

type LoggingConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns a Config populated with defaults for every optional value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8083", GRPCPort: "9083"},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com",
			Model:      "gpt-4.1-mini",
			MaxRetries: 3,
			TimeoutSec: 60,
		},
		Insights: InsightsConfig{
			RefreshSchedule: "0 0 * * 0",
			RefreshOnStart:  true,
			TTLHours:        7 * 24,
		},
		Onboarding: OnboardingConfig{TimeoutSec: 10},
		Logging:    LoggingConfig{Mode: "dev"},
	}
}

// Load reads the optional YAML file and environment variables and returns a
// validated Config.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("COACH_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "COACH_PORT")
	setString(&c.Server.GRPCPort, "COACH_GRPC_PORT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.Insights.RefreshSchedule, "INSIGHT_REFRESH_SCHEDULE")
	setString(&c.Logging.Mode, "LOG_MODE")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.OpenAI.MaxRetries, "OPENAI_MAX_RETRIES"},
		{&c.OpenAI.TimeoutSec, "OPENAI_TIMEOUT_SEC"},
		{&c.Insights.TTLHours, "INSIGHT_TTL_HOURS"},
		{&c.Insights.LockTTLSec, "INSIGHT_LOCK_TTL_SEC"},
		{&c.Onboarding.TimeoutSec, "ONBOARDING_TIMEOUT_SEC"},
		{&c.Database.MaxConns, "DATABASE_MAX_CONNS"},
		{&c.Redis.PoolSize, "REDIS_POOL_SIZE"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}

	bools := []struct {
		dst *bool
		key string
	}{
		{&c.Insights.RefreshOnStart, "INSIGHT_REFRESH_ON_START"},
		{&c.Insights.StrictValidation, "INSIGHT_STRICT_VALIDATION"},
	}
	for _, b := range bools {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Redis.URL == "" {
		return ErrMissingRedisURL
	}
	if c.OpenAI.APIKey == "" {
		return ErrMissingOpenAIKey
	}
	if _, err := cron.ParseStandard(c.Insights.RefreshSchedule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if c.Insights.TTLHours < 1 {
		return ErrInvalidTTL
	}
	if c.Insights.LockTTLSec < 0 ||
		(c.Insights.LockTTLSec > 0 && time.Duration(c.Insights.LockTTLSec)*time.Second < c.GenerationBudget()) {
		return ErrInvalidLockTTL
	}
	if c.OpenAI.TimeoutSec < 1 || c.Onboarding.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	if c.OpenAI.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.Database.MaxConns < 0 || c.Redis.PoolSize < 0 {
		return ErrInvalidPoolSize
	}
	switch strings.ToLower(c.Logging.Mode) {
	case "dev", "development", "prod", "production":
	default:
		return ErrInvalidLoggingMode
	}
	return nil
}

// InsightTTL is the distance between lastUpdated and nextUpdate.
func (c *Config) InsightTTL() time.Duration {
	return time.Duration(c.Insights.TTLHours) * time.Hour
}

// GenerationBudget is the longest a single generation call can take,
// retries and backoff included.
func (c *Config) GenerationBudget() time.Duration {
	return llm.RetryBudget(c.OpenAITimeout(), c.OpenAI.MaxRetries, llm.DefaultInitialBackoff)
}

// LockTTL outlives a full generation so the lock cannot expire while its
// holder is still waiting on the model.
func (c *Config) LockTTL() time.Duration {
	if c.Insights.LockTTLSec > 0 {
		return time.Duration(c.Insights.LockTTLSec) * time.Second
	}
	return c.GenerationBudget() + generationSlack
}

// WriteTimeout bounds HTTP responses; a first-time insight request may
// spend the whole generation budget before it writes.
func (c *Config) WriteTimeout() time.Duration {
	return c.GenerationBudget() + generationSlack
}

func (c *Config) OnboardingTimeout() time.Duration {
	return time.Duration(c.Onboarding.TimeoutSec) * time.Second
}

func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSec) * time.Second
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, s)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string) error {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	*dst = v
	return nil
}
