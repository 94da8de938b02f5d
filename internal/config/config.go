package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for practice-engine
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Generator GeneratorConfig `yaml:"generator"`
	Prefetch  PrefetchConfig  `yaml:"prefetch"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// StoreConfig selects the record backend
type StoreConfig struct {
	Driver        string `yaml:"driver"`
	FilePath      string `yaml:"file_path"`
	MigrationsDir string `yaml:"migrations_dir"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxLifetime  time.Duration `yaml:"max_lifetime"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CatalogConfig holds catalog configuration
type CatalogConfig struct {
	Path           string        `yaml:"path"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// GeneratorConfig holds generation collaborator configuration
type GeneratorConfig struct {
	Mode          string        `yaml:"mode"`
	Command       string        `yaml:"command"`
	Script        string        `yaml:"script"`
	KeyFile       string        `yaml:"key_file"`
	Dir           string        `yaml:"dir"`
	Endpoint      string        `yaml:"endpoint"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key"`
	SystemPrompt  string        `yaml:"system_prompt"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// PrefetchConfig holds prefetch coordinator configuration
type PrefetchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuthConfig holds API key clients. No clients disables authentication.
type AuthConfig struct {
	Clients []ClientConfig `yaml:"clients"`
}

// ClientConfig is one API key holder
type ClientConfig struct {
	Name        string   `yaml:"name"`
	Key         string   `yaml:"key"`
	Permissions []string `yaml:"permissions"`
}

// Supported generator modes
const (
	GeneratorProcess = "process"
	GeneratorHTTP    = "http"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3001,
			RequestTimeout: 180 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Driver:   "file",
			FilePath: "./data/question-records.json",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 2,
			MaxLifetime:  time.Hour,
			MaxAttempts:  5,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Prefix:  "practice:",
		},
		Catalog: CatalogConfig{
			Path: "./leetcode_hot100_full.json",
		},
		Generator: GeneratorConfig{
			Mode:          GeneratorProcess,
			Command:       "python3",
			Script:        "./call_gemini.py",
			KeyFile:       "./.gmini_api_key",
			Timeout:       120 * time.Second,
			MaxRetries:    2,
			RetryDelay:    time.Second,
			RetryMaxDelay: 10 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Concurrency: 1,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file
// named by PRACTICE_CONFIG and environment variables, in that order of
// increasing precedence. A .env file in the working directory is loaded
// into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("PRACTICE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.RequestTimeout = getEnvAsDuration("SERVER_REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.FilePath = getEnv("RECORDS_FILE", c.Store.FilePath)
	c.Store.MigrationsDir = getEnv("MIGRATIONS_DIR", c.Store.MigrationsDir)

	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = getEnvAsDuration("DATABASE_MAX_LIFETIME", c.Database.MaxLifetime)
	c.Database.MaxAttempts = getEnvAsInt("DATABASE_MAX_ATTEMPTS", c.Database.MaxAttempts)

	c.Redis.Address = getEnv("REDIS_ADDRESS", c.Redis.Address)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = getEnv("REDIS_PREFIX", c.Redis.Prefix)

	c.Catalog.Path = getEnv("CATALOG_PATH", c.Catalog.Path)
	c.Catalog.ReloadInterval = getEnvAsDuration("CATALOG_RELOAD_INTERVAL", c.Catalog.ReloadInterval)

	c.Generator.Mode = getEnv("GENERATOR_MODE", c.Generator.Mode)
	c.Generator.Command = getEnv("GENERATOR_COMMAND", c.Generator.Command)
	c.Generator.Script = getEnv("GENERATOR_SCRIPT", c.Generator.Script)
	c.Generator.KeyFile = getEnv("GENERATOR_KEY_FILE", c.Generator.KeyFile)
	c.Generator.Dir = getEnv("GENERATOR_DIR", c.Generator.Dir)
	c.Generator.Endpoint = getEnv("GENERATOR_ENDPOINT", c.Generator.Endpoint)
	c.Generator.Model = getEnv("GENERATOR_MODEL", c.Generator.Model)
	c.Generator.APIKey = getEnv("GENERATOR_API_KEY", c.Generator.APIKey)
	c.Generator.SystemPrompt = getEnv("GENERATOR_SYSTEM_PROMPT", c.Generator.SystemPrompt)
	c.Generator.Timeout = getEnvAsDuration("GENERATOR_TIMEOUT", c.Generator.Timeout)
	c.Generator.MaxRetries = getEnvAsInt("GENERATOR_MAX_RETRIES", c.Generator.MaxRetries)
	c.Generator.RetryDelay = getEnvAsDuration("GENERATOR_RETRY_DELAY", c.Generator.RetryDelay)
	c.Generator.RetryMaxDelay = getEnvAsDuration("GENERATOR_RETRY_MAX_DELAY", c.Generator.RetryMaxDelay)

	c.Prefetch.Concurrency = getEnvAsInt("PREFETCH_CONCURRENCY", c.Prefetch.Concurrency)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.MaxSizeMB = getEnvAsInt("LOG_MAX_SIZE_MB", c.Log.MaxSizeMB)
	c.Log.MaxBackups = getEnvAsInt("LOG_MAX_BACKUPS", c.Log.MaxBackups)
	c.Log.MaxAgeDays = getEnvAsInt("LOG_MAX_AGE_DAYS", c.Log.MaxAgeDays)

	if keys, exists := os.LookupEnv("API_KEYS"); exists {
		c.Auth.Clients = parseAPIKeys(keys)
	}
}

// parseAPIKeys parses "name:key,key2" into clients with full permissions
func parseAPIKeys(value string) []ClientConfig {
	var clients []ClientConfig
	for i, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, key, found := strings.Cut(entry, ":")
		if !found {
			name, key = fmt.Sprintf("client-%d", i+1), entry
		}
		clients = append(clients, ClientConfig{Name: name, Key: key, Permissions: []string{"*"}})
	}
	return clients
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.FilePath == "" {
			return fmt.Errorf("records file path is required")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for postgres store")
		}
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for redis store")
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	switch c.Generator.Mode {
	case GeneratorProcess:
		if c.Generator.Command == "" {
			return fmt.Errorf("generator command is required in process mode")
		}
	case GeneratorHTTP:
		if c.Generator.Endpoint == "" || c.Generator.Model == "" {
			return fmt.Errorf("generator endpoint and model are required in http mode")
		}
	default:
		return fmt.Errorf("unknown generator mode: %q", c.Generator.Mode)
	}

	if c.Generator.Timeout <= 0 {
		return fmt.Errorf("generator timeout must be positive")
	}
	if c.Generator.MaxRetries < 0 {
		return fmt.Errorf("generator max retries must not be negative")
	}
	if c.Prefetch.Concurrency < 1 {
		return fmt.Errorf("prefetch concurrency must be at least 1")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}

	for _, client := range c.Auth.Clients {
		if client.Key == "" {
			return fmt.Errorf("api client %q has no key", client.Name)
		}
	}

	return nil
}

// Address returns the HTTP listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
