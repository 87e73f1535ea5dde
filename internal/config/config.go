package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// maxPageSize is the largest per_page Genius honours.
const maxPageSize = 50

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds application configuration
type Config struct {
	Genius    GeniusConfig
	Store     StoreConfig
	Catalog   CatalogConfig
	Scraper   ScraperConfig
	Window    WindowConfig
	Server    ServerConfig
	Refresher RefresherConfig
	Log       LogConfig
}

// GeniusConfig holds Genius API credentials
type GeniusConfig struct {
	AccessToken string
	BaseURL     string
}

// StoreConfig selects and locates the document store
type StoreConfig struct {
	Driver        string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// CatalogConfig tunes catalog population
type CatalogConfig struct {
	PageSize        int
	MaxSongs        int
	RefreshInterval time.Duration
	ImageScanSongs  int
}

// ScraperConfig tunes lyrics scraping
type ScraperConfig struct {
	MaxAttempts  int
	Delay        time.Duration
	FetchTimeout time.Duration
	Lease        time.Duration
	UserAgent    string
}

// WindowConfig holds window defaults
type WindowConfig struct {
	DefaultSize int
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
}

// RefresherConfig configures the background catalog refresher
type RefresherConfig struct {
	Interval    time.Duration
	Concurrency int
}

// LogConfig configures the root logger
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from .env, the config file and environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return load(getConfigDir())
}

func load(configDir string) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("LYRICQUEUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		Genius: GeniusConfig{
			AccessToken: v.GetString("genius.access_token"),
			BaseURL:     v.GetString("genius.base_url"),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(v.GetString("store.driver")),
			SQLitePath:    v.GetString("store.sqlite_path"),
			MongoURI:      v.GetString("store.mongo_uri"),
			MongoDatabase: v.GetString("store.mongo_database"),
		},
		Catalog: CatalogConfig{
			PageSize:        v.GetInt("catalog.page_size"),
			MaxSongs:        v.GetInt("catalog.max_songs"),
			RefreshInterval: v.GetDuration("catalog.refresh_interval"),
			ImageScanSongs:  v.GetInt("catalog.image_scan_songs"),
		},
		Scraper: ScraperConfig{
			MaxAttempts:  v.GetInt("scraper.max_attempts"),
			Delay:        v.GetDuration("scraper.delay"),
			FetchTimeout: v.GetDuration("scraper.fetch_timeout"),
			Lease:        v.GetDuration("scraper.lease"),
			UserAgent:    v.GetString("scraper.user_agent"),
		},
		Window: WindowConfig{
			DefaultSize: v.GetInt("window.default_size"),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Refresher: RefresherConfig{
			Interval:    v.GetDuration("refresher.interval"),
			Concurrency: v.GetInt("refresher.concurrency"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("genius.access_token", "")
	v.SetDefault("genius.base_url", "https://api.genius.com")

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", filepath.Join(configDir, "lyricqueue.db"))
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_database", "lyricqueue")

	v.SetDefault("catalog.page_size", 50)
	v.SetDefault("catalog.max_songs", 1000)
	v.SetDefault("catalog.refresh_interval", 7*24*time.Hour)
	v.SetDefault("catalog.image_scan_songs", 11)

	v.SetDefault("scraper.max_attempts", 3)
	v.SetDefault("scraper.delay", time.Second)
	v.SetDefault("scraper.fetch_timeout", 15*time.Second)
	v.SetDefault("scraper.lease", 5*time.Minute)
	v.SetDefault("scraper.user_agent", "")

	v.SetDefault("window.default_size", 10)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 2*time.Minute)

	v.SetDefault("refresher.interval", time.Hour)
	v.SetDefault("refresher.concurrency", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown store driver %q (want %s or %s)", c.Store.Driver, DriverSQLite, DriverMongo)
	}
	if c.Catalog.PageSize < 1 || c.Catalog.PageSize > maxPageSize {
		return fmt.Errorf("catalog.page_size must be between 1 and %d, got %d", maxPageSize, c.Catalog.PageSize)
	}
	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("scraper.max_attempts must be at least 1, got %d", c.Scraper.MaxAttempts)
	}
	if c.Window.DefaultSize < 1 {
		return fmt.Errorf("window.default_size must be at least 1, got %d", c.Window.DefaultSize)
	}
	if c.Refresher.Concurrency < 1 {
		return fmt.Errorf("refresher.concurrency must be at least 1, got %d", c.Refresher.Concurrency)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	configDir := os.Getenv("LYRICQUEUE_CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		configDir = filepath.Join(homeDir, ".config", "lyricqueue")
	}

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.saveTo(getConfigDir())
}

func (c *Config) saveTo(configDir string) error {
	v := viper.New()

	// Set config file path
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("genius.access_token", c.Genius.AccessToken)
	v.Set("genius.base_url", c.Genius.BaseURL)
	v.Set("store.driver", c.Store.Driver)
	v.Set("store.sqlite_path", c.Store.SQLitePath)
	v.Set("store.mongo_uri", c.Store.MongoURI)
	v.Set("store.mongo_database", c.Store.MongoDatabase)
	v.Set("catalog.page_size", c.Catalog.PageSize)
	v.Set("catalog.max_songs", c.Catalog.MaxSongs)
	v.Set("catalog.refresh_interval", c.Catalog.RefreshInterval.String())
	v.Set("catalog.image_scan_songs", c.Catalog.ImageScanSongs)
	v.Set("scraper.max_attempts", c.Scraper.MaxAttempts)
	v.Set("scraper.delay", c.Scraper.Delay.String())
	v.Set("scraper.fetch_timeout", c.Scraper.FetchTimeout.String())
	v.Set("scraper.lease", c.Scraper.Lease.String())
	v.Set("scraper.user_agent", c.Scraper.UserAgent)
	v.Set("window.default_size", c.Window.DefaultSize)
	v.Set("server.addr", c.Server.Addr)
	v.Set("server.request_timeout", c.Server.RequestTimeout.String())
	v.Set("refresher.interval", c.Refresher.Interval.String())
	v.Set("refresher.concurrency", c.Refresher.Concurrency)
	v.Set("log.level", c.Log.Level)
	v.Set("log.format", c.Log.Format)

	// Write to file
	return v.WriteConfigAs(configFile)
}
