// Package testutil provides stores and scripted collaborators for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/store/sqlite"
)

// Logger discards output.
func Logger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// NewStore returns an empty in-memory store closed on cleanup.
func NewStore(t *testing.T) library.Store {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedArtist creates an artist whose catalog is exactly songIDs, each song
// pending with URL "https://genius.com/<id>".
func SeedArtist(t *testing.T, store library.Store, artistID string, songIDs ...string) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.CreateArtist(ctx, library.Artist{ID: artistID, ExternalID: "1", Name: artistID}); err != nil {
		t.Fatalf("failed to create artist: %v", err)
	}
	if len(songIDs) == 0 {
		return
	}

	songs := make([]library.Song, len(songIDs))
	for i, id := range songIDs {
		songs[i] = library.Song{ID: id, Title: "Song " + id, URL: SongURL(id)}
	}
	if _, err := store.SaveCatalogPage(ctx, artistID, library.CatalogPage{
		Songs:        songs,
		SongsFetched: len(songs),
		MaxSongs:     catalog.DefaultMaxSongs,
		UpdatedAt:    time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
}

// SongURL is the lyrics page URL SeedArtist and Catalog give a song.
func SongURL(id string) string {
	return "https://genius.com/" + id
}

// CacheSong stores lyrics for songID and lists it as cached for the artist,
// bypassing the scraper.
func CacheSong(t *testing.T, store library.Store, artistID, songID, lyrics string) {
	t.Helper()
	ctx := context.Background()

	if err := store.CompleteScrape(ctx, songID, lyrics, time.Now()); err != nil {
		t.Fatalf("failed to store lyrics: %v", err)
	}
	if _, err := store.AddCachedSong(ctx, artistID, songID); err != nil {
		t.Fatalf("failed to cache song: %v", err)
	}
}

// Catalog is a scripted catalog.Source and catalog.ArtistResolver serving
// Songs in order, pageSize at a time up to catalog.MaxPageSize, for every
// artist id.
type Catalog struct {
	mu sync.Mutex

	Songs   []catalog.SongEntry
	Artists map[string]catalog.ArtistRef

	// FailPage makes that page number fail with ErrUpstreamUnavailable.
	FailPage int

	calls int
}

// NewCatalog lists count songs "s1".."s<count>" credited to artist "1".
func NewCatalog(count int) *Catalog {
	c := &Catalog{Artists: map[string]catalog.ArtistRef{}}
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("s%d", i)
		c.Songs = append(c.Songs, catalog.SongEntry{
			ID:      id,
			Title:   "Song " + id,
			URL:     SongURL(id),
			Artists: []catalog.ArtistRef{{ExternalID: "1", Name: "Artist"}},
		})
	}
	return c
}

func (c *Catalog) SongsPage(ctx context.Context, externalArtistID string, page, pageSize int) (*catalog.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page == c.FailPage {
		return nil, fmt.Errorf("page %d: %w", page, library.ErrUpstreamUnavailable)
	}

	if pageSize > catalog.MaxPageSize {
		pageSize = catalog.MaxPageSize
	}
	start := (page - 1) * pageSize
	if start > len(c.Songs) {
		start = len(c.Songs)
	}
	end := start + pageSize
	if end > len(c.Songs) {
		end = len(c.Songs)
	}
	return &catalog.Page{
		Songs:   append([]catalog.SongEntry(nil), c.Songs[start:end]...),
		HasMore: end < len(c.Songs),
	}, nil
}

func (c *Catalog) ResolveArtist(ctx context.Context, name string) (*catalog.ArtistRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.Artists[name]; ok {
		return &a, nil
	}
	return nil, fmt.Errorf("artist %q: %w", name, library.ErrNotFound)
}

func (c *Catalog) LookupArtist(ctx context.Context, externalID string) (*catalog.ArtistRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range c.Artists {
		if a.ExternalID == externalID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("artist %s: %w", externalID, library.ErrNotFound)
}

// Calls returns the number of SongsPage requests served.
func (c *Catalog) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Lyrics is a scripted lyrics fetcher. URLs listed in Texts succeed with that
// text, URLs in Errors fail with that error, anything else fails with
// ErrExtractionFailed.
type Lyrics struct {
	mu sync.Mutex

	Texts  map[string]string
	Errors map[string]error

	calls map[string]int
}

// NewLyrics returns a fetcher serving text for each song id.
func NewLyrics(texts map[string]string) *Lyrics {
	l := &Lyrics{Texts: map[string]string{}, Errors: map[string]error{}, calls: map[string]int{}}
	for id, text := range texts {
		l.Texts[SongURL(id)] = text
	}
	return l
}

func (l *Lyrics) Fetch(ctx context.Context, url string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[url]++

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := l.Errors[url]; ok {
		return "", err
	}
	if text, ok := l.Texts[url]; ok {
		return text, nil
	}
	return "", library.ErrExtractionFailed
}

// Set makes songID's fetch succeed with text from now on.
func (l *Lyrics) Set(songID, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.Errors, SongURL(songID))
	l.Texts[SongURL(songID)] = text
}

// Calls returns how many times songID's page was fetched.
func (l *Lyrics) Calls(songID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[SongURL(songID)]
}

// TotalCalls returns the number of fetches across all songs.
func (l *Lyrics) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}
