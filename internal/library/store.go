package library

import (
	"context"
	"time"
)

// Store is the document store holding Artist and Song records.
//
// Every method that touches a field shared between concurrent callers is a
// single atomic operation of the backing store (conditional update, set
// add/remove, increment, or one transaction). Implementations must not read a
// shared field, modify it in memory and write it back.
type Store interface {
	// CreateArtist inserts the artist if no artist with the same ID exists.
	// It reports whether a new record was created.
	CreateArtist(ctx context.Context, artist Artist) (bool, error)

	// GetArtist returns ErrNotFound if the artist does not exist.
	GetArtist(ctx context.Context, id string) (*Artist, error)

	// ListArtists returns every artist, ordered by ID.
	ListArtists(ctx context.Context) ([]Artist, error)

	// SaveCatalogPage upserts the page's songs without overwriting existing
	// song documents, appends their ids to the artist's SongIDs (skipping ids
	// already present, never growing past MaxSongs) and records progress.
	SaveCatalogPage(ctx context.Context, artistID string, page CatalogPage) (*PageResult, error)

	// SetArtistImage records the outcome of image discovery.
	SetArtistImage(ctx context.Context, artistID string, status ImageStatus, url string) error

	// GetSong returns ErrNotFound if the song does not exist.
	GetSong(ctx context.Context, id string) (*Song, error)

	// GetSongs returns the songs that exist among ids, keyed by id.
	GetSongs(ctx context.Context, ids []string) (map[string]*Song, error)

	// ClaimScrape moves the song to "scraping" and increments its attempt
	// counter, but only if its status and attempts still equal seen. It
	// reports false when another caller changed the song first.
	ClaimScrape(ctx context.Context, songID string, seen ScrapeClaim, at time.Time) (bool, error)

	// CompleteScrape stores lyrics, marks the song completed and clears
	// the last error.
	CompleteScrape(ctx context.Context, songID, lyrics string, at time.Time) error

	// FailScrape records a failed attempt with its resulting status.
	FailScrape(ctx context.Context, songID string, status ScrapingStatus, message string) error

	// AddCachedSong adds songID to the artist's CachedSongIDs and increments
	// LyricsScraped, both only if the id was not already present.
	AddCachedSong(ctx context.Context, artistID, songID string) (bool, error)

	// RemoveCachedSong removes songID from the artist's CachedSongIDs and
	// decrements LyricsScraped, both only if the id was present.
	RemoveCachedSong(ctx context.Context, artistID, songID string) (bool, error)

	// Close releases the underlying connection.
	Close() error
}

// CatalogPage is one page of catalog population for SaveCatalogPage.
type CatalogPage struct {
	Songs []Song

	// SongsFetched is the number of song entries received from the source
	// so far in this population pass.
	SongsFetched int

	// MaxSongs caps the length of the artist's SongIDs.
	MaxSongs int

	// HasMore is false when the source reported no further pages.
	HasMore bool

	UpdatedAt time.Time
}

// PageResult is the artist state after SaveCatalogPage.
type PageResult struct {
	TotalSongs    int
	IsFullyCached bool
}

// ScrapeClaim is the (status, attempts) pair a claim is conditioned on.
type ScrapeClaim struct {
	Status   ScrapingStatus
	Attempts int
}

// ClaimOf returns the claim condition for the song as read.
func ClaimOf(s *Song) ScrapeClaim {
	return ScrapeClaim{Status: s.ScrapingStatus, Attempts: s.ScrapingAttempts}
}

// DedupeIDs returns ids with blanks and repeats removed, keeping the first
// occurrence of each.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
