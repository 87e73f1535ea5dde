// Package service is the caller-facing facade over the catalog populator,
// lyrics scraper and window loader.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/lyrics"
	"github.com/jfmyers9/lyricqueue/internal/window"
)

// ErrInvalidInput marks a request rejected before touching the store.
var ErrInvalidInput = errors.New("invalid input")

// Options tunes the Service.
type Options struct {
	// RefreshInterval decides staleness in summaries.
	RefreshInterval time.Duration
}

// Service exposes the engine's operations.
type Service struct {
	store     library.Store
	resolver  catalog.ArtistResolver
	populator *catalog.Populator
	scraper   *lyrics.Scraper
	loader    *window.Loader
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Service
func New(
	store library.Store,
	resolver catalog.ArtistResolver,
	populator *catalog.Populator,
	scraper *lyrics.Scraper,
	loader *window.Loader,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = catalog.DefaultRefreshInterval
	}
	return &Service{
		store:     store,
		resolver:  resolver,
		populator: populator,
		scraper:   scraper,
		loader:    loader,
		opts:      opts,
		logger:    logger.With().Str("component", "service").Logger(),
		now:       time.Now,
	}
}

// Summary is the caller-facing view of an artist.
type Summary struct {
	ID               string              `json:"id"`
	ExternalID       string              `json:"externalId"`
	Name             string              `json:"name"`
	TotalSongs       int                 `json:"totalSongs"`
	SongsFetched     int                 `json:"songsFetched"`
	LyricsScraped    int                 `json:"lyricsScraped"`
	CachedSongs      int                 `json:"cachedSongs"`
	IsFullyCached    bool                `json:"isFullyCached"`
	NeedsPopulation  bool                `json:"needsPopulation"`
	SongsLastUpdated time.Time           `json:"songsLastUpdated"`
	ImageStatus      library.ImageStatus `json:"imageStatus"`
	ImageURL         string              `json:"imageUrl,omitempty"`
	FirstSongID      string              `json:"firstSongId,omitempty"`
}

func (s *Service) summarize(a *library.Artist) *Summary {
	sum := &Summary{
		ID:               a.ID,
		ExternalID:       a.ExternalID,
		Name:             a.Name,
		TotalSongs:       a.TotalSongs,
		SongsFetched:     a.SongsFetched,
		LyricsScraped:    a.LyricsScraped,
		CachedSongs:      len(a.CachedSongIDs),
		IsFullyCached:    a.IsFullyCached,
		NeedsPopulation:  a.NeedsPopulation(s.now(), s.opts.RefreshInterval),
		SongsLastUpdated: a.SongsLastUpdated,
		ImageStatus:      a.ImageStatus,
		ImageURL:         a.ImageURL,
	}
	if len(a.SongIDs) > 0 {
		sum.FirstSongID = a.SongIDs[0]
	}
	return sum
}

// ArtistSummary returns the summary of one artist.
func (s *Service) ArtistSummary(ctx context.Context, artistID string) (*Summary, error) {
	a, err := s.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return s.summarize(a), nil
}

// ListSummaries returns every artist's summary, ordered by id.
func (s *Service) ListSummaries(ctx context.Context) ([]Summary, error) {
	artists, err := s.store.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(artists))
	for i := range artists {
		out = append(out, *s.summarize(&artists[i]))
	}
	return out, nil
}

// AddArtist resolves name in the catalog and creates the artist if it is not
// known yet. It reports whether a new artist was created.
func (s *Service) AddArtist(ctx context.Context, name string) (*Summary, bool, error) {
	key := library.ArtistKey(name)
	if key == "" {
		return nil, false, fmt.Errorf("%w: artist name %q has no letters or digits", ErrInvalidInput, name)
	}

	if a, err := s.store.GetArtist(ctx, key); err == nil {
		return s.summarize(a), false, nil
	} else if !errors.Is(err, library.ErrNotFound) {
		return nil, false, err
	}

	ref, err := s.resolver.ResolveArtist(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return s.create(ctx, ref)
}

// AddArtistByExternalID creates the artist with the given catalog id if it
// is not known yet.
func (s *Service) AddArtistByExternalID(ctx context.Context, externalID string) (*Summary, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, false, fmt.Errorf("%w: external id is empty", ErrInvalidInput)
	}

	ref, err := s.resolver.LookupArtist(ctx, externalID)
	if err != nil {
		return nil, false, err
	}
	return s.create(ctx, ref)
}

func (s *Service) create(ctx context.Context, ref *catalog.ArtistRef) (*Summary, bool, error) {
	key := library.ArtistKey(ref.Name)
	if key == "" {
		return nil, false, fmt.Errorf("%w: catalog artist %s has an unusable name %q", ErrInvalidInput, ref.ExternalID, ref.Name)
	}

	created, err := s.store.CreateArtist(ctx, library.Artist{
		ID:         key,
		ExternalID: ref.ExternalID,
		Name:       ref.Name,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info().Str("artist", key).Str("external_id", ref.ExternalID).Msg("Artist created")
	}

	sum, err := s.ArtistSummary(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return sum, created, nil
}

// PopulateCatalog brings the artist's song list up to date.
func (s *Service) PopulateCatalog(ctx context.Context, artistID string) (*catalog.Result, error) {
	return s.populator.PopulateCatalog(ctx, artistID)
}

// ScrapeLyrics scrapes the given songs of the artist.
func (s *Service) ScrapeLyrics(ctx context.Context, artistID string, songIDs []string) (*lyrics.Result, error) {
	if len(library.DedupeIDs(songIDs)) == 0 {
		return nil, fmt.Errorf("%w: no song ids", ErrInvalidInput)
	}
	return s.scraper.ScrapeLyrics(ctx, artistID, songIDs)
}

// LoadWindow resolves the window of size songs around cursor.
func (s *Service) LoadWindow(ctx context.Context, artistID, cursor string, dir window.Direction, size int) (*window.Window, error) {
	if strings.TrimSpace(cursor) == "" {
		return nil, fmt.Errorf("%w: cursor is empty", ErrInvalidInput)
	}
	return s.loader.LoadWindow(ctx, artistID, cursor, dir, size)
}

// RepairReport describes what RepairCache changed.
type RepairReport struct {
	ArtistID string   `json:"artistId"`
	Checked  int      `json:"checked"`
	Evicted  []string `json:"evicted"`
	Added    []string `json:"added"`
}

// RepairCache re-checks the artist's whole cached set: ids without valid
// lyrics or outside the catalog are evicted, and catalog songs that have
// valid lyrics but are missing from the set are added.
func (s *Service) RepairCache(ctx context.Context, artistID string) (*RepairReport, error) {
	a, err := s.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	songs, err := s.store.GetSongs(ctx, append(append([]string(nil), a.SongIDs...), a.CachedSongIDs...))
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}

	report := &RepairReport{
		ArtistID: artistID,
		Checked:  len(a.SongIDs),
		Evicted:  []string{},
		Added:    []string{},
	}

	for _, id := range a.CachedSongIDs {
		song, ok := songs[id]
		if a.HasSong(id) && ok && song.HasValidLyrics() {
			continue
		}
		changed, err := s.store.RemoveCachedSong(ctx, artistID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to evict %s: %w", id, err)
		}
		if changed {
			report.Evicted = append(report.Evicted, id)
		}
	}

	cached := a.CachedSet()
	for _, id := range a.SongIDs {
		if _, ok := cached[id]; ok {
			continue
		}
		song, ok := songs[id]
		if !ok || song.ScrapingStatus != library.StatusCompleted || !song.HasValidLyrics() {
			continue
		}
		changed, err := s.store.AddCachedSong(ctx, artistID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", id, err)
		}
		if changed {
			report.Added = append(report.Added, id)
		}
	}

	s.logger.Info().
		Str("artist", artistID).
		Int("evicted", len(report.Evicted)).
		Int("added", len(report.Added)).
		Msg("Cache repaired")

	return report, nil
}

// Wait blocks until background work started by the populator has finished.
func (s *Service) Wait() {
	s.populator.Wait()
}
