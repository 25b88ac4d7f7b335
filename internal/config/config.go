package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	Database   DatabaseConfig   `json:"database"`
	LogConfig  logger.LogConfig `json:"log_config"`
	FileStore  FileStoreConfig  `json:"file_store"`
	Media      MediaConfig      `json:"media"`
	ImageProxy ImageProxyConfig `json:"image_proxy"`
	Import     ImportConfig     `json:"import"`
	CORS       []string         `json:"cors_allowlist"`

	CommentRateLimitSeconds int `json:"comment_rate_limit_seconds"`
	MaxUploadSizeMB         int `json:"max_upload_size_mb"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	Path     string `json:"path"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type MediaConfig struct {
	UserAgent           string `json:"user_agent"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds"`
	MaxBytes            int64  `json:"max_bytes"`
	MaxRetries          int    `json:"max_retries"`
	HostIntervalMS      int    `json:"host_interval_ms"`
}

type ImageProxyConfig struct {
	Endpoint        string   `json:"endpoint"`
	Domains         []string `json:"domains"`
	CacheSize       int      `json:"cache_size"`
	CacheTTLMinutes int      `json:"cache_ttl_minutes"`
}

type ImportConfig struct {
	CleanupCron     string `json:"cleanup_cron"`
	RunMaxAgeDays   int    `json:"run_max_age_days"`
	ImagePrefix     string `json:"image_prefix"`
	AvatarPrefix    string `json:"avatar_prefix"`
	DefaultCategory string `json:"default_category"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		c.Database.DSN = dsn
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
	case "sqlite":
		if c.Database.Path == "" && c.Database.DSN == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	c.Media.UserAgent = strings.TrimSpace(c.Media.UserAgent)
	if c.Media.FetchTimeoutSeconds <= 0 {
		c.Media.FetchTimeoutSeconds = 30
	}
	if c.Media.MaxBytes <= 0 {
		c.Media.MaxBytes = 20 * 1024 * 1024
	}
	if c.Media.MaxRetries < 0 {
		c.Media.MaxRetries = 0
	}
	if c.ImageProxy.Endpoint == "" {
		c.ImageProxy.Endpoint = "/api/v1/image-proxy"
	}
	if c.ImageProxy.CacheSize <= 0 {
		c.ImageProxy.CacheSize = 256
	}
	if c.ImageProxy.CacheTTLMinutes <= 0 {
		c.ImageProxy.CacheTTLMinutes = 60
	}
	if c.Import.CleanupCron == "" {
		c.Import.CleanupCron = "0 3 * * *"
	}
	if c.Import.RunMaxAgeDays <= 0 {
		c.Import.RunMaxAgeDays = 30
	}
	if c.Import.ImagePrefix == "" {
		c.Import.ImagePrefix = "xiaohongshu"
	}
	if c.Import.AvatarPrefix == "" {
		c.Import.AvatarPrefix = "xiaohongshu/avatars"
	}
	if c.CommentRateLimitSeconds < 0 {
		c.CommentRateLimitSeconds = 0
	}
	if c.MaxUploadSizeMB <= 0 {
		c.MaxUploadSizeMB = 10
	}
	return nil
}
