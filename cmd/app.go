package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/config"
	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/lyrics"
	"github.com/jfmyers9/lyricqueue/internal/service"
	"github.com/jfmyers9/lyricqueue/internal/store/mongo"
	"github.com/jfmyers9/lyricqueue/internal/store/sqlite"
	"github.com/jfmyers9/lyricqueue/internal/window"
	"github.com/jfmyers9/lyricqueue/pkg/genius"
)

// errNoAccessToken is returned by catalog calls when no Genius token is set.
var errNoAccessToken = errors.New("genius access token not configured, run 'lyricqueue configure' or set LYRICQUEUE_GENIUS_ACCESS_TOKEN")

// catalogClient is both halves of the catalog source.
type catalogClient interface {
	catalog.Source
	catalog.ArtistResolver
}

// app holds the components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     library.Store
	populator *catalog.Populator
	svc       *service.Service
}

// newApp loads configuration and wires the engine.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	logger := setupLogger(logFile, level, format)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	source, err := newCatalogClient(cfg.Genius, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	populator := catalog.NewPopulator(store, source, catalog.Options{
		PageSize:        cfg.Catalog.PageSize,
		MaxSongs:        cfg.Catalog.MaxSongs,
		RefreshInterval: cfg.Catalog.RefreshInterval,
		ImageScanSongs:  cfg.Catalog.ImageScanSongs,
	}, logger)

	fetcher := lyrics.NewPageFetcher(cfg.Scraper.UserAgent, cfg.Scraper.FetchTimeout)
	scraper := lyrics.NewScraper(store, fetcher, lyrics.Options{
		MaxAttempts:  cfg.Scraper.MaxAttempts,
		Lease:        cfg.Scraper.Lease,
		Delay:        cfg.Scraper.Delay,
		FetchTimeout: cfg.Scraper.FetchTimeout,
	}, logger)

	loader := window.NewLoader(store, scraper, logger)
	svc := service.New(store, source, populator, scraper, loader, service.Options{
		RefreshInterval: cfg.Catalog.RefreshInterval,
	}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		populator: populator,
		svc:       svc,
	}, nil
}

// Close waits for background work and closes the store.
func (a *app) Close() {
	a.svc.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close store")
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (library.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo store: %w", err)
		}
		return store, nil
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	}
}

func newCatalogClient(cfg config.GeniusConfig, logger zerolog.Logger) (catalogClient, error) {
	if cfg.AccessToken == "" {
		return unconfiguredCatalog{}, nil
	}
	client, err := genius.NewClient(genius.Config{
		AccessToken: cfg.AccessToken,
		BaseURL:     cfg.BaseURL,
		Logger:      geniusLogger{logger: logger.With().Str("component", "genius").Logger()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genius client: %w", err)
	}
	return catalog.NewGenius(client), nil
}

// unconfiguredCatalog lets commands that never reach the catalog run
// without a token.
type unconfiguredCatalog struct{}

func (unconfiguredCatalog) SongsPage(context.Context, string, int, int) (*catalog.Page, error) {
	return nil, errNoAccessToken
}

func (unconfiguredCatalog) ResolveArtist(context.Context, string) (*catalog.ArtistRef, error) {
	return nil, errNoAccessToken
}

func (unconfiguredCatalog) LookupArtist(context.Context, string) (*catalog.ArtistRef, error) {
	return nil, errNoAccessToken
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
