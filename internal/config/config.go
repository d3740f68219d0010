package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable pointing at an optional YAML config file.
const ConfigFileEnv = "TICKETS_CONFIG_FILE"

// Config aggregates runtime configuration for the tracker.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Redis     RedisConfig     `yaml:"redis"`
	Logger    LoggerConfig    `yaml:"logger"`
	Autosave  AutosaveConfig  `yaml:"autosave"`
	Undo      UndoConfig      `yaml:"undo"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// AppConfig identifies the running instance.
type AppConfig struct {
	Name    string `yaml:"name"`
	Env     string `yaml:"env"`
	Version string `yaml:"version"`
}

// RedisConfig holds Redis connection values. The dashboard cache is only used when Enabled.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// AutosaveConfig configures the editor's debounced saves.
type AutosaveConfig struct {
	DelayMillis int `yaml:"delay_ms"`
}

// UndoConfig bounds editor undo history.
type UndoConfig struct {
	MaxHistory int `yaml:"max_history"`
}

// AnalyticsConfig controls dashboard aggregation.
type AnalyticsConfig struct {
	Days     int    `yaml:"days"`
	Timezone string `yaml:"timezone"`
}

// Load reads configuration from the file named by TICKETS_CONFIG_FILE, if any,
// and then from environment variables, which take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv(ConfigFileEnv))
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", strconv.Itoa(cfg.Redis.DB)))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Version = getEnv("APP_VERSION", cfg.App.Version)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = redisDB
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Redis.KeyPrefix)
	cfg.Redis.TTLSeconds = getEnvAsInt("REDIS_TTL_SECONDS", cfg.Redis.TTLSeconds)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Autosave.DelayMillis = getEnvAsInt("AUTOSAVE_DELAY_MS", cfg.Autosave.DelayMillis)
	cfg.Undo.MaxHistory = getEnvAsInt("UNDO_MAX_HISTORY", cfg.Undo.MaxHistory)
	cfg.Analytics.Days = getEnvAsInt("ANALYTICS_DAYS", cfg.Analytics.Days)
	cfg.Analytics.Timezone = getEnv("ANALYTICS_TIMEZONE", cfg.Analytics.Timezone)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:    "ticket-tracker",
			Env:     "development",
			Version: "dev",
		},
		Redis: RedisConfig{
			Addr:       "127.0.0.1:6379",
			KeyPrefix:  "tickets:",
			TTLSeconds: 300,
		},
		Logger:    LoggerConfig{Level: "info"},
		Autosave:  AutosaveConfig{DelayMillis: 2000},
		Undo:      UndoConfig{MaxHistory: 50},
		Analytics: AnalyticsConfig{Days: 7, Timezone: "Local"},
	}
}

func (c *Config) validate() error {
	if c.Autosave.DelayMillis < 0 {
		return fmt.Errorf("invalid autosave delay %dms", c.Autosave.DelayMillis)
	}
	if c.Undo.MaxHistory < 1 {
		return fmt.Errorf("invalid undo history size %d", c.Undo.MaxHistory)
	}
	if c.Analytics.Days < 1 {
		return fmt.Errorf("invalid analytics window %d days", c.Analytics.Days)
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("invalid analytics timezone: %w", err)
	}
	return nil
}

// Delay returns the autosave quiet period.
func (a AutosaveConfig) Delay() time.Duration {
	return time.Duration(a.DelayMillis) * time.Millisecond
}

// TTL returns how long cached snapshots live. Zero means no expiry.
func (r RedisConfig) TTL() time.Duration {
	if r.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.TTLSeconds) * time.Second
}

// Location resolves the analytics timezone. Load has already validated it.
func (a AnalyticsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
