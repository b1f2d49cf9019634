package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for postwall
type Config struct {
	// Favorites feed source
	Feed FeedConfig `yaml:"feed" json:"feed"`

	// Collection loop tuning
	Collect CollectConfig `yaml:"collect" json:"collect"`

	// Cover download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// On-disk layout
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Local HTTP server and media proxy
	Server ServerConfig `yaml:"server" json:"server"`

	// SQLite mirror of the manifest
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// FeedConfig describes the favorites API the collector pages through
type FeedConfig struct {
	APIURL    string        `yaml:"api_url" json:"api_url"`
	Cookie    string        `yaml:"cookie" json:"cookie"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Referer   string        `yaml:"referer" json:"referer"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// CollectConfig holds the termination policy of the collection loop.
// The numbers are empirical; only the stall-counter shape matters.
type CollectConfig struct {
	MaxItems       int           `yaml:"max_items" json:"max_items"`
	StallLimit     int           `yaml:"stall_limit" json:"stall_limit"`
	SettleInterval time.Duration `yaml:"settle_interval" json:"settle_interval"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// StorageConfig holds paths for the manifest and the cover cache
type StorageConfig struct {
	DataDir      string `yaml:"data_dir" json:"data_dir"`
	ManifestPath string `yaml:"manifest" json:"manifest"`
	CoversDir    string `yaml:"covers_dir" json:"covers_dir"`
	PublicPrefix string `yaml:"public_prefix" json:"public_prefix"`
}

// ServerConfig holds the HTTP surface configuration
type ServerConfig struct {
	Addr             string        `yaml:"addr" json:"addr"`
	StaticRoot       string        `yaml:"static_root" json:"static_root"`
	IndexPage        string        `yaml:"index_page" json:"index_page"`
	ProxyTimeout     time.Duration `yaml:"proxy_timeout" json:"proxy_timeout"`
	MaxUpstreamConns int           `yaml:"max_upstream_conns" json:"max_upstream_conns"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// CatalogConfig controls the optional SQLite catalog
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			APIURL:    "https://www.douyin.com/aweme/v1/web/aweme/listcollection/",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Referer:   "https://www.douyin.com/",
			PageSize:  20,
			Timeout:   15 * time.Second,
		},
		Collect: CollectConfig{
			MaxItems:       2000,
			StallLimit:     15,
			SettleInterval: 1500 * time.Millisecond,
		},
		Download: DownloadConfig{
			Concurrency:       10,
			Timeout:           30 * time.Second,
			RequestsPerMinute: 0, // 0 means no limit
		},
		Storage: StorageConfig{
			DataDir:      "data",
			ManifestPath: filepath.Join("data", "metadata.json"),
			CoversDir:    filepath.Join("data", "covers"),
			PublicPrefix: "data/covers",
		},
		Server: ServerConfig{
			Addr:             ":5000",
			StaticRoot:       ".",
			IndexPage:        "/frontend/index.html",
			ProxyTimeout:     10 * time.Second,
			MaxUpstreamConns: 32,
			ShutdownTimeout:  10 * time.Second,
		},
		Catalog: CatalogConfig{
			Enabled: false,
			Path:    filepath.Join("data", "catalog.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("POSTWALL_FEED_URL"); v != "" {
		c.Feed.APIURL = v
	}
	if v := os.Getenv("POSTWALL_COOKIE"); v != "" {
		c.Feed.Cookie = v
	}
	if v := os.Getenv("POSTWALL_USER_AGENT"); v != "" {
		c.Feed.UserAgent = v
	}

	if v := os.Getenv("POSTWALL_MAX_ITEMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTWALL_MAX_ITEMS: %w", err))
		} else if n > 0 {
			c.Collect.MaxItems = n
		}
	}
	if v := os.Getenv("POSTWALL_STALL_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTWALL_STALL_LIMIT: %w", err))
		} else if n > 0 {
			c.Collect.StallLimit = n
		}
	}
	if v := os.Getenv("POSTWALL_SETTLE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTWALL_SETTLE_INTERVAL: %w", err))
		} else {
			c.Collect.SettleInterval = d
		}
	}

	if v := os.Getenv("POSTWALL_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTWALL_CONCURRENCY: %w", err))
		} else if n > 0 {
			c.Download.Concurrency = n
		}
	}

	if v := os.Getenv("POSTWALL_DATA_DIR"); v != "" {
		c.SetDataDir(v)
	}
	if v := os.Getenv("POSTWALL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("POSTWALL_CATALOG"); v != "" {
		c.Catalog.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("POSTWALL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// SetDataDir moves the manifest, cover cache and catalog under dir
func (c *Config) SetDataDir(dir string) {
	c.Storage.DataDir = dir
	c.Storage.ManifestPath = filepath.Join(dir, "metadata.json")
	c.Storage.CoversDir = filepath.Join(dir, "covers")
	c.Catalog.Path = filepath.Join(dir, "catalog.db")
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"postwall.yaml",
		".postwall.yaml",
		".postwall.yml",
		filepath.Join(home, ".config", "postwall", "config.yaml"),
		filepath.Join(home, ".postwall.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Collect.MaxItems <= 0 {
		errs = append(errs, errors.New("max items must be positive"))
	}
	if c.Collect.StallLimit <= 0 {
		errs = append(errs, errors.New("stall limit must be positive"))
	}
	if c.Collect.SettleInterval < 0 {
		errs = append(errs, errors.New("settle interval cannot be negative"))
	}

	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.Concurrency > 64 {
		errs = append(errs, errors.New("download concurrency should not exceed 64"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Feed.PageSize <= 0 {
		errs = append(errs, errors.New("feed page size must be positive"))
	}
	if c.Feed.Timeout <= 0 {
		errs = append(errs, errors.New("feed timeout must be positive"))
	}

	if c.Storage.ManifestPath == "" {
		errs = append(errs, errors.New("manifest path is required"))
	}
	if c.Storage.CoversDir == "" {
		errs = append(errs, errors.New("covers directory is required"))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.ProxyTimeout <= 0 {
		errs = append(errs, errors.New("proxy timeout must be positive"))
	}
	if c.Server.MaxUpstreamConns <= 0 {
		errs = append(errs, errors.New("max upstream connections must be positive"))
	}

	if c.Catalog.Enabled && c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog path is required when the catalog is enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The feed cookie may be stored here, keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["data-dir"].(string); ok && dir != "" {
		c.SetDataDir(dir)
	}
	if maxItems, ok := flags["max-items"].(int); ok && maxItems > 0 {
		c.Collect.MaxItems = maxItems
	}
	if stall, ok := flags["stall-limit"].(int); ok && stall > 0 {
		c.Collect.StallLimit = stall
	}
	if settle, ok := flags["settle-interval"].(time.Duration); ok && settle >= 0 {
		c.Collect.SettleInterval = settle
	}
	if concurrent, ok := flags["concurrency"].(int); ok && concurrent > 0 {
		c.Download.Concurrency = concurrent
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if root, ok := flags["static-root"].(string); ok && root != "" {
		c.Server.StaticRoot = root
	}
	if catalog, ok := flags["catalog"].(bool); ok {
		c.Catalog.Enabled = catalog
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".postwall.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
