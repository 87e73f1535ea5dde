package window_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/lyrics"
	"github.com/jfmyers9/lyricqueue/internal/testutil"
	"github.com/jfmyers9/lyricqueue/internal/window"
)

var catalogIDs = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

type fixture struct {
	store   library.Store
	fetcher *testutil.Lyrics
	loader  *window.Loader
}

func newFixture(t *testing.T, songIDs ...string) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	testutil.SeedArtist(t, store, "artist", songIDs...)

	fetcher := testutil.NewLyrics(nil)
	for _, id := range songIDs {
		fetcher.Set(id, "lyrics of "+id)
	}
	scraper := lyrics.NewScraper(store, fetcher, lyrics.Options{}, testutil.Logger())
	return &fixture{
		store:   store,
		fetcher: fetcher,
		loader:  window.NewLoader(store, scraper, testutil.Logger()),
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name               string
		position, n, size  int
		dir                window.Direction
		wantStart, wantEnd int
	}{
		{"forward middle", 3, 10, 3, window.Forward, 3, 6},
		{"reverse middle", 3, 10, 3, window.Reverse, 1, 4},
		{"forward clipped at end", 8, 10, 5, window.Forward, 8, 10},
		{"reverse clipped at start", 0, 10, 4, window.Reverse, 0, 1},
		{"reverse single at start", 0, 10, 1, window.Reverse, 0, 1},
		{"zero size clamps to one", 5, 10, 0, window.Forward, 5, 6},
		{"negative size clamps to one", 5, 10, -3, window.Reverse, 5, 6},
		{"last song forward", 9, 10, 10, window.Forward, 9, 10},
		{"max size forward", 3, 10, math.MaxInt, window.Forward, 3, 10},
		{"max size reverse", 3, 10, math.MaxInt, window.Reverse, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := window.Range(tt.position, tt.n, tt.size, tt.dir)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Range() = [%d,%d), want [%d,%d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]window.Direction{"": window.Forward, "forward": window.Forward, "Reverse": window.Reverse} {
		got, err := window.ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := window.ParseDirection("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestLoadWindow_Forward(t *testing.T) {
	f := newFixture(t, catalogIDs...)

	w, err := f.loader.LoadWindow(context.Background(), "artist", "D", window.Forward, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Position != 3 || w.Start != 3 || w.End != 6 {
		t.Errorf("unexpected range: pos=%d [%d,%d)", w.Position, w.Start, w.End)
	}
	if want := []string{"D", "E", "F"}; !reflect.DeepEqual(w.SongIDs, want) {
		t.Errorf("expected %v, got %v", want, w.SongIDs)
	}
	if len(w.Songs) != 3 || w.Scraped != 3 || w.Loaded != 0 {
		t.Errorf("unexpected counts: songs=%d scraped=%d loaded=%d", len(w.Songs), w.Scraped, w.Loaded)
	}
	if w.Songs["E"].Lyrics != "lyrics of E" {
		t.Errorf("unexpected lyrics for E: %q", w.Songs["E"].Lyrics)
	}

	// A second load is served from the cache.
	w, err = f.loader.LoadWindow(context.Background(), "artist", "D", window.Forward, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Loaded != 3 || w.Scraped != 0 {
		t.Errorf("expected cached window, got loaded=%d scraped=%d", w.Loaded, w.Scraped)
	}
	if f.fetcher.TotalCalls() != 3 {
		t.Errorf("expected 3 fetches in total, got %d", f.fetcher.TotalCalls())
	}
}

func TestLoadWindow_Reverse(t *testing.T) {
	f := newFixture(t, catalogIDs...)

	w, err := f.loader.LoadWindow(context.Background(), "artist", "D", window.Reverse, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Start != 1 || w.End != 4 {
		t.Errorf("unexpected range [%d,%d)", w.Start, w.End)
	}
	if want := []string{"B", "C", "D"}; !reflect.DeepEqual(w.SongIDs, want) {
		t.Errorf("expected %v, got %v", want, w.SongIDs)
	}
}

func TestLoadWindow_Boundaries(t *testing.T) {
	f := newFixture(t, catalogIDs...)
	ctx := context.Background()

	w, err := f.loader.LoadWindow(ctx, "artist", "A", window.Reverse, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(w.SongIDs, []string{"A"}) {
		t.Errorf("expected [A], got %v", w.SongIDs)
	}

	w, err = f.loader.LoadWindow(ctx, "artist", "A", window.Reverse, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Start != 0 || !reflect.DeepEqual(w.SongIDs, []string{"A"}) {
		t.Errorf("expected window starting at 0 with [A], got %d %v", w.Start, w.SongIDs)
	}

	w, err = f.loader.LoadWindow(ctx, "artist", "I", window.Forward, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(w.SongIDs, []string{"I", "J"}) {
		t.Errorf("expected short window [I J], got %v", w.SongIDs)
	}

	w, err = f.loader.LoadWindow(ctx, "artist", "C", window.Forward, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(w.SongIDs, []string{"C"}) {
		t.Errorf("expected size clamped to 1, got %v", w.SongIDs)
	}

	w, err = f.loader.LoadWindow(ctx, "artist", "D", window.Forward, math.MaxInt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(w.SongIDs, catalogIDs[3:]) {
		t.Errorf("expected window to run to the end, got %v", w.SongIDs)
	}
}

func TestLoadWindow_NotFound(t *testing.T) {
	f := newFixture(t, catalogIDs...)
	testutil.SeedArtist(t, f.store, "empty")
	ctx := context.Background()

	tests := []struct {
		name     string
		artistID string
		cursor   string
	}{
		{"unknown artist", "ghost", "A"},
		{"empty catalog", "empty", "A"},
		{"cursor outside catalog", "artist", "Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.loader.LoadWindow(ctx, tt.artistID, tt.cursor, window.Forward, 3)
			if !errors.Is(err, library.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestLoadWindow_NullSentinelIsNeverServed(t *testing.T) {
	f := newFixture(t, catalogIDs...)
	testutil.CacheSong(t, f.store, "artist", "E", "null")
	testutil.CacheSong(t, f.store, "artist", "D", "real D")

	w, err := f.loader.LoadWindow(context.Background(), "artist", "D", window.Forward, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.Songs["E"]; got == nil || got.Lyrics != "lyrics of E" {
		t.Errorf("expected E rescraped, got %+v", got)
	}
	if f.fetcher.Calls("E") != 1 || f.fetcher.Calls("D") != 0 {
		t.Errorf("expected only E (and F) fetched, got D=%d E=%d", f.fetcher.Calls("D"), f.fetcher.Calls("E"))
	}
	if w.Loaded != 1 || w.Scraped != 2 {
		t.Errorf("expected loaded=1 scraped=2, got loaded=%d scraped=%d", w.Loaded, w.Scraped)
	}

	a, _ := f.store.GetArtist(context.Background(), "artist")
	for _, id := range a.CachedSongIDs {
		s, _ := f.store.GetSong(context.Background(), id)
		if !s.HasValidLyrics() {
			t.Errorf("cached song %s has invalid lyrics %q", id, s.Lyrics)
		}
	}
}

func TestLoadWindow_SelfHealing(t *testing.T) {
	t.Run("rescrape succeeds", func(t *testing.T) {
		f := newFixture(t, catalogIDs...)
		testutil.CacheSong(t, f.store, "artist", "E", "")

		w, err := f.loader.LoadWindow(context.Background(), "artist", "E", window.Forward, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.Songs["E"] == nil || len(w.Failed) != 0 {
			t.Errorf("expected E healed, got songs=%v failed=%v", w.Songs, w.Failed)
		}

		a, _ := f.store.GetArtist(context.Background(), "artist")
		if !a.IsCached("E") || a.LyricsScraped != 1 {
			t.Errorf("expected E cached exactly once, got %v (%d)", a.CachedSongIDs, a.LyricsScraped)
		}
	})

	t.Run("rescrape keeps failing", func(t *testing.T) {
		f := newFixture(t, catalogIDs...)
		testutil.CacheSong(t, f.store, "artist", "E", "")
		f.fetcher.Errors[testutil.SongURL("E")] = library.ErrUpstreamUnavailable
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			w, err := f.loader.LoadWindow(ctx, "artist", "D", window.Forward, 3)
			if err != nil {
				t.Fatalf("load %d: unexpected error: %v", i, err)
			}
			if _, ok := w.Songs["E"]; ok {
				t.Fatalf("load %d: invalid song E was served", i)
			}
			if len(w.Failed) != 1 || w.Failed[0].SongID != "E" {
				t.Fatalf("load %d: expected E failed, got %+v", i, w.Failed)
			}
			if len(w.Songs) != 2 {
				t.Errorf("load %d: expected D and F served, got %d songs", i, len(w.Songs))
			}
		}

		s, _ := f.store.GetSong(ctx, "E")
		if s.ScrapingStatus != library.StatusPermanentlyFailed || s.ScrapingAttempts != 3 {
			t.Errorf("expected permanently failed after 3 attempts, got %s/%d", s.ScrapingStatus, s.ScrapingAttempts)
		}
		a, _ := f.store.GetArtist(ctx, "artist")
		if a.IsCached("E") {
			t.Error("E still cached")
		}

		w, err := f.loader.LoadWindow(ctx, "artist", "D", window.Forward, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(w.Failed) != 1 || !w.Failed[0].Permanent {
			t.Errorf("expected permanent failure reported, got %+v", w.Failed)
		}
		if f.fetcher.Calls("E") != 3 {
			t.Errorf("expected 3 fetches of E, got %d", f.fetcher.Calls("E"))
		}
	})
}
