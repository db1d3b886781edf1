package model

import (
	"fmt"
	"strings"
	"time"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/logging"
)

// Storage backends understood by the store package.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendRedis    = "redis"
)

// Config holds the harvester configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Registry     RegistryConfig     `yaml:"registry" mapstructure:"registry"`
	Approvals    ApprovalsConfig    `yaml:"approvals" mapstructure:"approvals"`
	Fields       FieldPaths         `yaml:"fields" mapstructure:"fields"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Schedule     ScheduleConfig     `yaml:"schedule" mapstructure:"schedule"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Logging      logging.Config     `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig configures the source fetcher
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// RegistryConfig lists the producers. The legacy producer is unrestricted;
// every other producer only contributes records of its listed owners.
type RegistryConfig struct {
	LegacyProducerURL string           `yaml:"legacy_producer_url" mapstructure:"legacy_producer_url"`
	File              string           `yaml:"file" mapstructure:"file"`
	Producers         []ProducerConfig `yaml:"producers" mapstructure:"producers"`
}

// ApprovalsConfig points at the approval authority
type ApprovalsConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// FieldPaths are the dotted JSON paths of the fields read from each document.
type FieldPaths struct {
	ID        string `yaml:"id" mapstructure:"id"`
	Owner     string `yaml:"owner" mapstructure:"owner"`
	Timestamp string `yaml:"timestamp" mapstructure:"timestamp"`
}

// StorageConfig selects and configures the persistence sink
type StorageConfig struct {
	Backend string       `yaml:"backend" mapstructure:"backend"`
	File    FileStorage  `yaml:"file" mapstructure:"file"`
	SQL     SQLStorage   `yaml:"sql" mapstructure:"sql"`
	S3      S3Storage    `yaml:"s3" mapstructure:"s3"`
	Redis   RedisStorage `yaml:"redis" mapstructure:"redis"`
}

type FileStorage struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SQLStorage is shared by the sqlite and postgres backends. For sqlite DSN
// is a file path.
type SQLStorage struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

type S3Storage struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Key       string `yaml:"key" mapstructure:"key"`
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
}

type RedisStorage struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Key      string `yaml:"key" mapstructure:"key"`
}

// CacheConfig configures the conditional fetch cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RateLimitingConfig configures per-host pacing of fetches. Hosts override
// the default for single hosts.
type RateLimitingConfig struct {
	RequestsPerSecond float64    `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int        `yaml:"burst" mapstructure:"burst"`
	Hosts             []HostRate `yaml:"hosts" mapstructure:"hosts"`
}

// HostRate is the pacing of one host, written as in a URL ("host" or
// "host:port").
type HostRate struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ServerConfig configures the read-back API
type ServerConfig struct {
	Listen   string        `yaml:"listen" mapstructure:"listen"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "harvester/0.1 (+https://github.com/ppiankov/harvester)",
			MaxBodyBytes: 64 << 20,
		},
		Registry: RegistryConfig{
			File: "producers.yaml",
		},
		Fields: FieldPaths{
			ID:        "meta.URI",
			Owner:     "owner",
			Timestamp: "status.timestamp",
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileStorage{Path: "infosystems.json"},
			SQL:     SQLStorage{DSN: "infosystems.db"},
			S3:      S3Storage{Key: "infosystems.json", Region: "us-east-1"},
			Redis:   RedisStorage{Addr: "localhost:6379", Key: "harvester:infosystems"},
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".harvester-cache",
			TTL:     24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			Burst:             2,
		},
		Schedule: ScheduleConfig{
			Interval: time.Hour,
		},
		Server: ServerConfig{
			Listen:   ":8080",
			CacheTTL: time.Minute,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate checks the settings a harvest cycle cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Approvals.URL) == "" {
		return harvesterrors.NewConfigError("approvals", "url is required", nil)
	}
	if c.Fields.ID == "" || c.Fields.Owner == "" || c.Fields.Timestamp == "" {
		return harvesterrors.NewConfigError("fields", "id, owner and timestamp paths must be set", nil)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return harvesterrors.NewConfigError("http", "max_body_bytes must be positive", nil)
	}
	for i, h := range c.RateLimiting.Hosts {
		if strings.TrimSpace(h.Host) == "" {
			return harvesterrors.NewConfigError("rate_limiting", fmt.Sprintf("hosts[%d].host is required", i), nil)
		}
	}
	if c.Schedule.Interval <= 0 {
		return harvesterrors.NewConfigError("schedule", "interval must be positive", nil)
	}
	return c.Storage.Validate()
}

// Validate checks that the selected backend is known and configured.
func (s StorageConfig) Validate() error {
	switch s.Backend {
	case BackendFile:
		if s.File.Path == "" {
			return harvesterrors.NewConfigError("storage", "file.path is required", nil)
		}
	case BackendSQLite, BackendPostgres:
		if s.SQL.DSN == "" {
			return harvesterrors.NewConfigError("storage", "sql.dsn is required", nil)
		}
	case BackendS3:
		if s.S3.Bucket == "" || s.S3.Key == "" {
			return harvesterrors.NewConfigError("storage", "s3.bucket and s3.key are required", nil)
		}
	case BackendRedis:
		if s.Redis.Addr == "" || s.Redis.Key == "" {
			return harvesterrors.NewConfigError("storage", "redis.addr and redis.key are required", nil)
		}
	default:
		return harvesterrors.NewConfigError("storage", fmt.Sprintf("unknown backend %q", s.Backend), nil)
	}
	return nil
}
