package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Store.Driver)
	}
	if want := filepath.Join(dir, "lyricqueue.db"); cfg.Store.SQLitePath != want {
		t.Errorf("expected sqlite path %s, got %s", want, cfg.Store.SQLitePath)
	}
	if cfg.Catalog.PageSize != 50 || cfg.Catalog.MaxSongs != 1000 || cfg.Catalog.ImageScanSongs != 11 {
		t.Errorf("unexpected catalog config: %+v", cfg.Catalog)
	}
	if cfg.Catalog.RefreshInterval != 7*24*time.Hour {
		t.Errorf("expected 168h refresh interval, got %s", cfg.Catalog.RefreshInterval)
	}
	if cfg.Scraper.MaxAttempts != 3 || cfg.Scraper.Lease != 5*time.Minute || cfg.Scraper.FetchTimeout != 15*time.Second {
		t.Errorf("unexpected scraper config: %+v", cfg.Scraper)
	}
	if cfg.Window.DefaultSize != 10 {
		t.Errorf("expected window size 10, got %d", cfg.Window.DefaultSize)
	}
	if cfg.Server.Addr != ":8080" || cfg.Refresher.Concurrency != 2 {
		t.Errorf("unexpected server/refresher config: %+v %+v", cfg.Server, cfg.Refresher)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LYRICQUEUE_GENIUS_ACCESS_TOKEN", "secret")
	t.Setenv("LYRICQUEUE_SCRAPER_MAX_ATTEMPTS", "5")
	t.Setenv("LYRICQUEUE_SCRAPER_DELAY", "250ms")
	t.Setenv("LYRICQUEUE_STORE_DRIVER", "Mongo")

	cfg, err := load(t.TempDir())
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if cfg.Genius.AccessToken != "secret" {
		t.Errorf("expected token from env, got %q", cfg.Genius.AccessToken)
	}
	if cfg.Scraper.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Scraper.MaxAttempts)
	}
	if cfg.Scraper.Delay != 250*time.Millisecond {
		t.Errorf("expected 250ms delay, got %s", cfg.Scraper.Delay)
	}
	if cfg.Store.Driver != DriverMongo {
		t.Errorf("expected mongo driver, got %s", cfg.Store.Driver)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	cfg.Genius.AccessToken = "saved-token"
	cfg.Catalog.MaxSongs = 200
	cfg.Scraper.Lease = 90 * time.Second
	cfg.Refresher.Interval = 30 * time.Minute

	if err := cfg.saveTo(dir); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	reloaded, err := load(dir)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if *reloaded != *cfg {
		t.Errorf("reloaded config differs:\n got %+v\nwant %+v", reloaded, cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "store:\n  driver: postgres\n"},
		{"zero attempts", "scraper:\n  max_attempts: 0\n"},
		{"page size above cap", "catalog:\n  page_size: 100\n"},
		{"zero page size", "catalog:\n  page_size: 0\n"},
		{"zero window", "window:\n  default_size: 0\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"malformed file", "store: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := load(dir); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
