// Package window resolves the songs around a playback cursor, scraping the
// ones whose lyrics are missing.
package window

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/lyrics"
)

// DefaultSize is the window size used when none is given
const DefaultSize = 10

// Direction selects which side of the cursor the window extends to.
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// ParseDirection parses "forward" or "reverse"; empty means forward.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return Forward, nil
	case "reverse", "backward":
		return Reverse, nil
	default:
		return Forward, fmt.Errorf("unknown direction %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Range returns the half-open index range [start, end) of a window of size
// anchored at position in a list of length n. The range always contains
// position; size is clamped to at least 1.
func Range(position, n, size int, dir Direction) (start, end int) {
	if size < 1 {
		size = 1
	}
	if dir == Reverse {
		if size-1 > position {
			return 0, position + 1
		}
		return position - (size - 1), position + 1
	}
	if size > n-position {
		return position, n
	}
	return position, position + size
}

// Scraper is the part of lyrics.Scraper the loader needs.
type Scraper interface {
	ScrapeLyrics(ctx context.Context, artistID string, songIDs []string) (*lyrics.Result, error)
}

// Window is a resolved slice of an artist's song list.
type Window struct {
	ArtistID  string    `json:"artistId"`
	Cursor    string    `json:"cursor"`
	Direction Direction `json:"direction"`
	Position  int       `json:"position"`
	Start     int       `json:"start"`
	End       int       `json:"end"`

	// SongIDs are the ids in [Start, End), in catalog order.
	SongIDs []string `json:"songIds"`

	// Songs holds every id of SongIDs whose lyrics are valid.
	Songs map[string]*library.Song `json:"songs"`

	// Loaded counts songs served from the store, Scraped those scraped by
	// this call.
	Loaded  int `json:"loaded"`
	Scraped int `json:"scraped"`

	// Failed lists the ids left out of Songs and why.
	Failed []lyrics.Failure `json:"failed"`
}

// Loader resolves windows.
type Loader struct {
	store   library.Store
	scraper Scraper
	logger  zerolog.Logger
}

// NewLoader creates a Loader
func NewLoader(store library.Store, scraper Scraper, logger zerolog.Logger) *Loader {
	return &Loader{
		store:   store,
		scraper: scraper,
		logger:  logger.With().Str("component", "window").Logger(),
	}
}

// LoadWindow returns the songs in the window around cursor.
//
// Songs listed as cached are still checked: any whose lyrics turn out to be
// invalid are scraped along with the uncached ones. Songs that cannot be
// resolved are reported in Failed instead of failing the call. ErrNotFound
// is returned for an unknown artist, an empty catalog or a cursor that is
// not in the catalog.
func (l *Loader) LoadWindow(ctx context.Context, artistID, cursor string, dir Direction, size int) (*Window, error) {
	artist, err := l.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if len(artist.SongIDs) == 0 {
		return nil, fmt.Errorf("artist %q has no songs: %w", artistID, library.ErrNotFound)
	}

	position := artist.IndexOf(cursor)
	if position < 0 {
		return nil, fmt.Errorf("song %q is not in the catalog of %q: %w", cursor, artistID, library.ErrNotFound)
	}

	start, end := Range(position, len(artist.SongIDs), size, dir)
	targetIDs := append([]string(nil), artist.SongIDs[start:end]...)

	w := &Window{
		ArtistID:  artistID,
		Cursor:    cursor,
		Direction: dir,
		Position:  position,
		Start:     start,
		End:       end,
		SongIDs:   targetIDs,
		Songs:     make(map[string]*library.Song, len(targetIDs)),
		Failed:    []lyrics.Failure{},
	}

	stored, err := l.store.GetSongs(ctx, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load window songs: %w", err)
	}

	var needsLyrics []string
	drifted := 0
	for _, id := range targetIDs {
		song, ok := stored[id]
		if artist.IsCached(id) && ok && song.HasValidLyrics() {
			w.Songs[id] = song
			continue
		}
		if artist.IsCached(id) {
			drifted++
		}
		needsLyrics = append(needsLyrics, id)
	}

	if drifted > 0 {
		l.logger.Info().
			Str("artist", artistID).
			Int("drifted", drifted).
			Msg("Cached songs without valid lyrics")
	}

	if len(needsLyrics) > 0 {
		if err := l.fill(ctx, w, needsLyrics); err != nil {
			return nil, err
		}
	}

	w.Loaded = len(w.Songs) - w.Scraped

	l.logger.Debug().
		Str("artist", artistID).
		Str("cursor", cursor).
		Int("start", start).
		Int("end", end).
		Int("loaded", w.Loaded).
		Int("scraped", w.Scraped).
		Int("failed", len(w.Failed)).
		Msg("Window loaded")

	return w, nil
}

// fill scrapes ids and adds the ones that end up with valid lyrics to w.
func (l *Loader) fill(ctx context.Context, w *Window, ids []string) error {
	res, err := l.scraper.ScrapeLyrics(ctx, w.ArtistID, ids)
	if err != nil {
		return fmt.Errorf("failed to scrape window: %w", err)
	}
	w.Scraped = len(res.Successful)

	failed := make(map[string]lyrics.Failure, len(res.Failed))
	for _, f := range res.Failed {
		failed[f.SongID] = f
	}

	songs, err := l.store.GetSongs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to reload window songs: %w", err)
	}

	for _, id := range ids {
		song, ok := songs[id]
		if ok && song.HasValidLyrics() {
			w.Songs[id] = song
			continue
		}
		if f, ok := failed[id]; ok {
			w.Failed = append(w.Failed, f)
			continue
		}
		w.Failed = append(w.Failed, unresolved(id, song))
	}
	return nil
}

// unresolved explains a song the scraper skipped that still lacks lyrics.
func unresolved(id string, song *library.Song) lyrics.Failure {
	f := lyrics.Failure{SongID: id}
	switch {
	case song == nil:
		f.Err = fmt.Errorf("song %s: %w", id, library.ErrNotFound)
	case song.ScrapingStatus == library.StatusPermanentlyFailed:
		f.Err = library.ErrPermanentFailure
		f.Permanent = true
	case song.ScrapingStatus == library.StatusScraping:
		f.Err = fmt.Errorf("song %s is being scraped", id)
	default:
		f.Err = library.ErrExtractionFailed
	}
	f.Reason = f.Err.Error()
	if song != nil && song.ScrapingError != "" {
		f.Reason = song.ScrapingError
	}
	return f
}
