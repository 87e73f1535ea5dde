// Package storetest holds the behavioural tests every library.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

// Factory returns an empty store; cleanup is registered on t.
type Factory func(t *testing.T) library.Store

// Run runs the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s library.Store)
	}{
		{"CreateArtist", testCreateArtist},
		{"SaveCatalogPage", testSaveCatalogPage},
		{"SaveCatalogPageCeiling", testSaveCatalogPageCeiling},
		{"SaveCatalogPageKeepsSongState", testSaveCatalogPageKeepsSongState},
		{"SaveCatalogPageUnknownArtist", testSaveCatalogPageUnknownArtist},
		{"SetArtistImage", testSetArtistImage},
		{"GetSongs", testGetSongs},
		{"ClaimScrape", testClaimScrape},
		{"CompleteAndFail", testCompleteAndFail},
		{"CachedSongs", testCachedSongs},
		{"ConcurrentCachedSongs", testConcurrentCachedSongs},
		{"ConcurrentClaims", testConcurrentClaims},
		{"ListArtists", testListArtists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func songs(ids ...string) []library.Song {
	out := make([]library.Song, len(ids))
	for i, id := range ids {
		out[i] = library.Song{ID: id, Title: "Song " + id, URL: "https://genius.com/" + id}
	}
	return out
}

func mustCreate(t *testing.T, s library.Store, id string) {
	t.Helper()
	if _, err := s.CreateArtist(context.Background(), library.Artist{ID: id, Name: id, CreatedAt: t0}); err != nil {
		t.Fatalf("failed to create artist: %v", err)
	}
}

func mustArtist(t *testing.T, s library.Store, id string) *library.Artist {
	t.Helper()
	a, err := s.GetArtist(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get artist: %v", err)
	}
	return a
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testCreateArtist(t *testing.T, s library.Store) {
	ctx := context.Background()

	created, err := s.CreateArtist(ctx, library.Artist{ID: "kendrick", ExternalID: "1421", Name: "Kendrick Lamar", CreatedAt: t0})
	if err != nil {
		t.Fatalf("failed to create artist: %v", err)
	}
	if !created {
		t.Error("expected artist to be created")
	}

	created, err = s.CreateArtist(ctx, library.Artist{ID: "kendrick", Name: "Other"})
	if err != nil {
		t.Fatalf("failed to create artist twice: %v", err)
	}
	if created {
		t.Error("expected second create to be a no-op")
	}

	a := mustArtist(t, s, "kendrick")
	if a.Name != "Kendrick Lamar" || a.ExternalID != "1421" {
		t.Errorf("unexpected artist: %+v", a)
	}
	if !a.CreatedAt.Equal(t0) {
		t.Errorf("expected created at %s, got %s", t0, a.CreatedAt)
	}
	if len(a.SongIDs) != 0 || len(a.CachedSongIDs) != 0 || a.IsFullyCached {
		t.Errorf("expected empty catalog, got %+v", a)
	}
	if a.ImageStatus != library.ImageUnknown {
		t.Errorf("expected unknown image status, got %s", a.ImageStatus)
	}

	if _, err := s.GetArtist(ctx, "nobody"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSaveCatalogPage(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")

	res, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{
		Songs:        songs("1", "2", "3"),
		SongsFetched: 3,
		MaxSongs:     1000,
		HasMore:      true,
		UpdatedAt:    t0,
	})
	if err != nil {
		t.Fatalf("failed to save page: %v", err)
	}
	if res.TotalSongs != 3 || res.IsFullyCached {
		t.Errorf("unexpected result after first page: %+v", res)
	}

	// Overlapping page: "3" is already listed and must not be duplicated.
	res, err = s.SaveCatalogPage(ctx, "a", library.CatalogPage{
		Songs:        songs("3", "4", "4", "5"),
		SongsFetched: 7,
		MaxSongs:     1000,
		HasMore:      false,
		UpdatedAt:    t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("failed to save page: %v", err)
	}
	if res.TotalSongs != 5 || !res.IsFullyCached {
		t.Errorf("unexpected result after last page: %+v", res)
	}

	a := mustArtist(t, s, "a")
	if want := []string{"1", "2", "3", "4", "5"}; !equalIDs(a.SongIDs, want) {
		t.Errorf("expected song ids %v, got %v", want, a.SongIDs)
	}
	if a.TotalSongs != 5 || a.SongsFetched != 7 || !a.IsFullyCached {
		t.Errorf("unexpected progress: total=%d fetched=%d full=%v", a.TotalSongs, a.SongsFetched, a.IsFullyCached)
	}
	if !a.SongsLastUpdated.Equal(t0.Add(time.Minute)) {
		t.Errorf("unexpected last updated %s", a.SongsLastUpdated)
	}

	song, err := s.GetSong(ctx, "4")
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if song.Title != "Song 4" || song.ScrapingStatus != library.StatusPending || song.ScrapingAttempts != 0 {
		t.Errorf("unexpected song: %+v", song)
	}
}

func testSaveCatalogPageCeiling(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")

	res, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{
		Songs:        songs("1", "2", "3", "4"),
		SongsFetched: 4,
		MaxSongs:     3,
		HasMore:      true,
		UpdatedAt:    t0,
	})
	if err != nil {
		t.Fatalf("failed to save page: %v", err)
	}
	if res.TotalSongs != 3 || !res.IsFullyCached {
		t.Errorf("expected ceiling to stop at 3 and mark full, got %+v", res)
	}
	if a := mustArtist(t, s, "a"); len(a.SongIDs) != 3 {
		t.Errorf("expected 3 song ids, got %v", a.SongIDs)
	}
}

func testSaveCatalogPageKeepsSongState(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")
	mustCreate(t, s, "b")

	if _, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{Songs: songs("shared"), MaxSongs: 10, UpdatedAt: t0}); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}
	if err := s.CompleteScrape(ctx, "shared", "la la la", t0); err != nil {
		t.Fatalf("failed to complete scrape: %v", err)
	}

	// A second artist listing the same song must not reset it.
	page := library.CatalogPage{Songs: []library.Song{{ID: "shared", Title: "Renamed"}}, MaxSongs: 10, UpdatedAt: t0}
	if _, err := s.SaveCatalogPage(ctx, "b", page); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}

	song, err := s.GetSong(ctx, "shared")
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if song.Lyrics != "la la la" || song.ScrapingStatus != library.StatusCompleted || song.Title != "Song shared" {
		t.Errorf("existing song was overwritten: %+v", song)
	}
	if b := mustArtist(t, s, "b"); !equalIDs(b.SongIDs, []string{"shared"}) {
		t.Errorf("expected shared song listed for b, got %v", b.SongIDs)
	}
}

func testSaveCatalogPageUnknownArtist(t *testing.T, s library.Store) {
	_, err := s.SaveCatalogPage(context.Background(), "ghost", library.CatalogPage{Songs: songs("1"), MaxSongs: 10})
	if !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSetArtistImage(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")

	if err := s.SetArtistImage(ctx, "a", library.ImageFound, "https://images.genius.com/a.jpg"); err != nil {
		t.Fatalf("failed to set image: %v", err)
	}
	a := mustArtist(t, s, "a")
	if a.ImageStatus != library.ImageFound || a.ImageURL != "https://images.genius.com/a.jpg" {
		t.Errorf("unexpected image: %s %s", a.ImageStatus, a.ImageURL)
	}

	if err := s.SetArtistImage(ctx, "ghost", library.ImageAbsent, ""); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testGetSongs(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")
	if _, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{Songs: songs("1", "2", "3"), MaxSongs: 10}); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}

	got, err := s.GetSongs(ctx, []string{"1", "3", "missing", "1"})
	if err != nil {
		t.Fatalf("failed to get songs: %v", err)
	}
	if len(got) != 2 || got["1"] == nil || got["3"] == nil {
		t.Errorf("unexpected songs: %v", got)
	}

	empty, err := s.GetSongs(ctx, nil)
	if err != nil {
		t.Fatalf("failed to get no songs: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty map, got %v", empty)
	}

	if _, err := s.GetSong(ctx, "missing"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testClaimScrape(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")
	if _, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{Songs: songs("1"), MaxSongs: 10}); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}

	seen := library.ScrapeClaim{Status: library.StatusPending, Attempts: 0}
	ok, err := s.ClaimScrape(ctx, "1", seen, t0)
	if err != nil {
		t.Fatalf("failed to claim: %v", err)
	}
	if !ok {
		t.Fatal("expected first claim to win")
	}

	// Same stale view loses.
	ok, err = s.ClaimScrape(ctx, "1", seen, t0)
	if err != nil {
		t.Fatalf("failed to claim: %v", err)
	}
	if ok {
		t.Error("expected stale claim to lose")
	}

	song, err := s.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if song.ScrapingStatus != library.StatusScraping || song.ScrapingAttempts != 1 {
		t.Errorf("unexpected song after claim: %+v", song)
	}
	if !song.ScrapingStartedAt.Equal(t0) {
		t.Errorf("expected scraping started at %s, got %s", t0, song.ScrapingStartedAt)
	}

	ok, err = s.ClaimScrape(ctx, "missing", seen, t0)
	if err != nil || ok {
		t.Errorf("expected claim on missing song to lose quietly, got %v, %v", ok, err)
	}
}

func testCompleteAndFail(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")
	if _, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{Songs: songs("1", "2"), MaxSongs: 10}); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}

	if err := s.FailScrape(ctx, "1", library.StatusFailed, "timeout"); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}
	song, _ := s.GetSong(ctx, "1")
	if song.ScrapingStatus != library.StatusFailed || song.ScrapingError != "timeout" {
		t.Errorf("unexpected failed song: %+v", song)
	}

	if err := s.CompleteScrape(ctx, "1", "words", t0); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}
	song, _ = s.GetSong(ctx, "1")
	if song.ScrapingStatus != library.StatusCompleted || song.Lyrics != "words" || song.ScrapingError != "" {
		t.Errorf("unexpected completed song: %+v", song)
	}
	if !song.LyricsScrapedAt.Equal(t0) {
		t.Errorf("expected lyrics scraped at %s, got %s", t0, song.LyricsScrapedAt)
	}

	if err := s.FailScrape(ctx, "2", library.StatusPermanentlyFailed, "gone"); err != nil {
		t.Fatalf("failed to mark permanently failed: %v", err)
	}
	song, _ = s.GetSong(ctx, "2")
	if song.ScrapingStatus != library.StatusPermanentlyFailed {
		t.Errorf("expected permanently_failed, got %s", song.ScrapingStatus)
	}

	if err := s.CompleteScrape(ctx, "missing", "x", t0); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.FailScrape(ctx, "missing", library.StatusFailed, "x"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testCachedSongs(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")

	changed, err := s.AddCachedSong(ctx, "a", "1")
	if err != nil || !changed {
		t.Fatalf("expected add to change set, got %v, %v", changed, err)
	}
	changed, err = s.AddCachedSong(ctx, "a", "1")
	if err != nil || changed {
		t.Fatalf("expected repeated add to be a no-op, got %v, %v", changed, err)
	}
	if _, err := s.AddCachedSong(ctx, "a", "2"); err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	a := mustArtist(t, s, "a")
	if a.LyricsScraped != 2 || !equalIDs(a.CachedSongIDs, []string{"1", "2"}) {
		t.Errorf("unexpected cache: count=%d ids=%v", a.LyricsScraped, a.CachedSongIDs)
	}

	changed, err = s.RemoveCachedSong(ctx, "a", "1")
	if err != nil || !changed {
		t.Fatalf("expected remove to change set, got %v, %v", changed, err)
	}
	changed, err = s.RemoveCachedSong(ctx, "a", "1")
	if err != nil || changed {
		t.Fatalf("expected repeated remove to be a no-op, got %v, %v", changed, err)
	}

	a = mustArtist(t, s, "a")
	if a.LyricsScraped != 1 || !equalIDs(a.CachedSongIDs, []string{"2"}) {
		t.Errorf("unexpected cache: count=%d ids=%v", a.LyricsScraped, a.CachedSongIDs)
	}

	if _, err := s.AddCachedSong(ctx, "ghost", "1"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testConcurrentCachedSongs(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")

	var wg sync.WaitGroup
	var errMutex sync.Mutex
	var errs []error
	numGoroutines := 8
	numSongs := 10

	// Every goroutine adds the same songs; each may only count once.
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numSongs; j++ {
				if _, err := s.AddCachedSong(ctx, "a", fmt.Sprintf("song-%d", j)); err != nil {
					errMutex.Lock()
					errs = append(errs, err)
					errMutex.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		t.Errorf("concurrent add error: %v", err)
	}

	a := mustArtist(t, s, "a")
	if a.LyricsScraped != numSongs || len(a.CachedSongIDs) != numSongs {
		t.Errorf("expected %d cached songs, got count=%d ids=%d", numSongs, a.LyricsScraped, len(a.CachedSongIDs))
	}
}

func testConcurrentClaims(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "a")
	if _, err := s.SaveCatalogPage(ctx, "a", library.CatalogPage{Songs: songs("1"), MaxSongs: 10}); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimScrape(ctx, "1", library.ScrapeClaim{Status: library.StatusPending}, t0)
			if err != nil {
				t.Errorf("claim error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winning claim, got %d", wins)
	}
	song, _ := s.GetSong(ctx, "1")
	if song.ScrapingAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", song.ScrapingAttempts)
	}
}

func testListArtists(t *testing.T, s library.Store) {
	ctx := context.Background()
	mustCreate(t, s, "b")
	mustCreate(t, s, "a")
	if _, err := s.SaveCatalogPage(ctx, "b", library.CatalogPage{Songs: songs("1", "2"), MaxSongs: 10}); err != nil {
		t.Fatalf("failed to save page: %v", err)
	}

	artists, err := s.ListArtists(ctx)
	if err != nil {
		t.Fatalf("failed to list artists: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("expected 2 artists, got %d", len(artists))
	}
	if artists[0].ID != "a" || artists[1].ID != "b" {
		t.Errorf("expected artists ordered by id, got %s, %s", artists[0].ID, artists[1].ID)
	}
	if !equalIDs(artists[1].SongIDs, []string{"1", "2"}) {
		t.Errorf("expected song ids loaded, got %v", artists[1].SongIDs)
	}
}
