package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

// Population defaults
const (
	DefaultPageSize        = 50
	MaxPageSize            = 50
	DefaultMaxSongs        = 1000
	DefaultRefreshInterval = 7 * 24 * time.Hour
	DefaultImageScanSongs  = 11

	imageDiscoveryTimeout = 30 * time.Second
)

// Options tunes a Populator. Zero fields take the defaults above.
type Options struct {
	PageSize        int
	MaxSongs        int
	RefreshInterval time.Duration
	ImageScanSongs  int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	// Genius caps per_page at MaxPageSize.
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	if o.MaxSongs <= 0 {
		o.MaxSongs = DefaultMaxSongs
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.ImageScanSongs <= 0 {
		o.ImageScanSongs = DefaultImageScanSongs
	}
	return o
}

// Result summarises a PopulateCatalog call.
type Result struct {
	TotalSongs    int  `json:"totalSongs"`
	NewSongs      int  `json:"newSongs"`
	IsFullyCached bool `json:"isFullyCached"`

	// PagesFetched is zero when the stored catalog was fresh.
	PagesFetched int `json:"pagesFetched"`
}

// Populator pages an artist's catalog into the store.
type Populator struct {
	store  library.Store
	source Source
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	images sync.WaitGroup
}

// NewPopulator creates a Populator
func NewPopulator(store library.Store, source Source, opts Options, logger zerolog.Logger) *Populator {
	return &Populator{
		store:  store,
		source: source,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "populator").Logger(),
		now:    time.Now,
	}
}

// PopulateCatalog brings the artist's song list up to date.
//
// A fully cached artist that is not stale returns at once without contacting
// the source. Otherwise pages are fetched from page 1 until the source runs
// out or the ceiling is reached; each page is committed before the next is
// requested, so a failure keeps the pages already saved.
func (p *Populator) PopulateCatalog(ctx context.Context, artistID string) (*Result, error) {
	artist, err := p.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	now := p.now()
	if !artist.NeedsPopulation(now, p.opts.RefreshInterval) {
		return &Result{
			TotalSongs:    len(artist.SongIDs),
			IsFullyCached: true,
		}, nil
	}
	if artist.ExternalID == "" {
		return nil, fmt.Errorf("artist %q has no catalog id: %w", artistID, library.ErrNotFound)
	}

	log := p.logger.With().Str("artist", artistID).Logger()
	log.Info().
		Int("known_songs", len(artist.SongIDs)).
		Bool("fully_cached", artist.IsFullyCached).
		Msg("Populating catalog")

	before := len(artist.SongIDs)
	result := &Result{TotalSongs: before}
	fetched := 0

	for page := 1; ; page++ {
		resp, err := p.source.SongsPage(ctx, artist.ExternalID, page, p.opts.PageSize)
		if err != nil {
			log.Warn().Err(err).Int("page", page).Msg("Catalog page fetch failed")
			return nil, fmt.Errorf("failed to populate %q at page %d: %w", artistID, page, err)
		}
		result.PagesFetched++

		songs := make([]library.Song, 0, len(resp.Songs))
		for _, entry := range resp.Songs {
			songs = append(songs, entry.toSong())
		}
		fetched += len(songs)

		saved, err := p.store.SaveCatalogPage(ctx, artistID, library.CatalogPage{
			Songs:        songs,
			SongsFetched: fetched,
			MaxSongs:     p.opts.MaxSongs,
			HasMore:      resp.HasMore && len(resp.Songs) >= p.opts.PageSize,
			UpdatedAt:    now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save page %d for %q: %w", page, artistID, err)
		}
		result.TotalSongs = saved.TotalSongs
		result.IsFullyCached = saved.IsFullyCached

		log.Debug().
			Int("page", page).
			Int("songs", len(songs)).
			Int("total", saved.TotalSongs).
			Msg("Saved catalog page")

		if page == 1 && artist.ImageStatus == library.ImageUnknown {
			p.discoverImageAsync(ctx, artist, resp.Songs)
		}

		if saved.IsFullyCached {
			break
		}
	}

	if result.TotalSongs > before {
		result.NewSongs = result.TotalSongs - before
	}

	log.Info().
		Int("total", result.TotalSongs).
		Int("new", result.NewSongs).
		Int("pages", result.PagesFetched).
		Msg("Catalog populated")

	return result, nil
}

// Wait blocks until background image discovery started by this Populator
// has finished.
func (p *Populator) Wait() {
	p.images.Wait()
}

// discoverImageAsync records the artist's image from the first songs of the
// catalog in the background. It never affects the population result and
// outlives the caller's context.
func (p *Populator) discoverImageAsync(ctx context.Context, artist *library.Artist, entries []SongEntry) {
	if len(entries) > p.opts.ImageScanSongs {
		entries = entries[:p.opts.ImageScanSongs]
	}
	scan := append([]SongEntry(nil), entries...)

	p.images.Add(1)
	go func() {
		defer p.images.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), imageDiscoveryTimeout)
		defer cancel()

		status, url := library.ImageAbsent, ""
		if found := FindArtistImage(artist.ExternalID, scan); found != "" {
			status, url = library.ImageFound, found
		}

		if err := p.store.SetArtistImage(ctx, artist.ID, status, url); err != nil {
			p.logger.Warn().Err(err).Str("artist", artist.ID).Msg("Failed to record artist image")
			return
		}
		p.logger.Debug().
			Str("artist", artist.ID).
			Str("image_status", status.String()).
			Msg("Artist image checked")
	}()
}

// FindArtistImage returns the first image URL credited to externalID among
// the songs' artist attributions, or "" if there is none.
func FindArtistImage(externalID string, songs []SongEntry) string {
	for _, s := range songs {
		for _, a := range s.Artists {
			if a.ExternalID == externalID && a.ImageURL != "" {
				return a.ImageURL
			}
		}
	}
	return ""
}
