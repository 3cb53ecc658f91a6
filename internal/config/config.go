package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrUnknownEnv = errors.New("unknown env")

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	// Environment is filled in by Get, it is not read from the file.
	Environment string `toml:"-"`

	Host        string
	Port        int
	MetricsHost string `toml:"metrics_host"`
	MetricsPort string `toml:"metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// storage
	StorageBackend string `toml:"storage_backend"`
	StorageKey     string `toml:"storage_key"`
	DataFilePath   string `toml:"data_file_path"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	CacheEnabled   bool   `toml:"cache_enabled"`
	CacheSizeMB    int    `toml:"cache_size_mb"`

	TracingEnabled     bool   `toml:"tracing_enabled"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
	TimeZone           string `toml:"time_zone"`
}

// Location resolves the configured time zone. An empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %s: %w", c.TimeZone, err)
	}
	return loc, nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnv, env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no [%s] section in config", strings.ToLower(env))
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = BackendFile
	}
	if c.StorageKey == "" {
		c.StorageKey = "movemix:v1"
	}
	if c.DataFilePath == "" {
		c.DataFilePath = "./data"
	}
	if c.CacheSizeMB <= 0 {
		c.CacheSizeMB = 64
	}
}

// Load reads the TOML file at path and returns the section for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return t.Get(env)
}

// Parse is Load over an in-memory document.
func Parse(env, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return t.Get(env)
}
