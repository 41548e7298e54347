package config

import (
	"fmt"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/leadloom/leadloom/pkg/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logger     logger.Config    `yaml:"logger"`
	Redis      RedisConfig      `yaml:"redis"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Notion     NotionConfig     `yaml:"notion"`
	AI         AIConfig         `yaml:"ai"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
	// Path is the database file when Type is sqlite.
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
	// LockTTL bounds how long one process may hold the run lock.
	LockTTL string `yaml:"lock_ttl"`
}

type PublisherConfig struct {
	Timeout       string              `yaml:"timeout"`
	Sheets        SheetsConfig        `yaml:"sheets"`
	PhantomBuster PhantomBusterConfig `yaml:"phantombuster"`
}

type SheetsConfig struct {
	BaseURL       string `yaml:"base_url"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Range         string `yaml:"range"`
	// CredentialsFile is the path to a service account JSON key.
	CredentialsFile string `yaml:"credentials_file"`
}

type PhantomBusterConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	AgentID string `yaml:"agent_id"`
}

type NotionConfig struct {
	BaseURL      string `yaml:"base_url"`
	Token        string `yaml:"token"`
	APIVersion   string `yaml:"api_version"`
	StatusFilter string `yaml:"status_filter"`
}

type AIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int32   `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

type AuthConfig struct {
	TOTPSecret string `yaml:"totp_secret"`
	SessionTTL string `yaml:"session_ttl"`
	Issuer     string `yaml:"issuer"`
}

func (c AuthConfig) Enabled() bool {
	return c.TOTPSecret != ""
}

type MonitoringConfig struct {
	Enabled          bool   `yaml:"enabled"`
	CleanupInterval  string `yaml:"cleanup_interval"`
	RetentionDays    int    `yaml:"retention_days"`
	MaxErrorsPerPage int    `yaml:"max_errors_per_page"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "leadloom.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "leadloom:"
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = "1m"
	}
	if cfg.Scheduler.LockTTL == "" {
		cfg.Scheduler.LockTTL = "5m"
	}
	if cfg.Publisher.Timeout == "" {
		cfg.Publisher.Timeout = "30s"
	}
	if cfg.Publisher.Sheets.Range == "" {
		cfg.Publisher.Sheets.Range = "Posts!A:D"
	}
	if cfg.Notion.APIVersion == "" {
		cfg.Notion.APIVersion = "2022-06-28"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.AI.Timeout == "" {
		cfg.AI.Timeout = "30s"
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "1m"
	}
	if cfg.Auth.SessionTTL == "" {
		cfg.Auth.SessionTTL = "24h"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "Leadloom"
	}
	if cfg.Monitoring.CleanupInterval == "" {
		cfg.Monitoring.CleanupInterval = "24h"
	}
	if cfg.Monitoring.RetentionDays == 0 {
		cfg.Monitoring.RetentionDays = 30
	}
	if cfg.Monitoring.MaxErrorsPerPage == 0 {
		cfg.Monitoring.MaxErrorsPerPage = 50
	}
}

// Validate checks that every duration field parses.
func (cfg *Config) Validate() error {
	durations := map[string]string{
		"scheduler.interval":          cfg.Scheduler.Interval,
		"scheduler.lock_ttl":          cfg.Scheduler.LockTTL,
		"publisher.timeout":           cfg.Publisher.Timeout,
		"ai.timeout":                  cfg.AI.Timeout,
		"cache.ttl":                   cfg.Cache.TTL,
		"auth.session_ttl":            cfg.Auth.SessionTTL,
		"monitoring.cleanup_interval": cfg.Monitoring.CleanupInterval,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	switch cfg.Database.Type {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
	return nil
}

// Duration parses a value that Validate has already accepted.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
