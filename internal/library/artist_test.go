package library

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestArtist_NeedsPopulation(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	tests := []struct {
		name   string
		artist Artist
		want   bool
	}{
		{"never populated", Artist{}, true},
		{"partial catalog", Artist{IsFullyCached: false, SongsLastUpdated: now}, true},
		{"fresh full catalog", Artist{IsFullyCached: true, SongsLastUpdated: now.Add(-time.Hour)}, false},
		{"stale full catalog", Artist{IsFullyCached: true, SongsLastUpdated: now.Add(-2 * week)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.artist.NeedsPopulation(now, week); got != tt.want {
				t.Errorf("NeedsPopulation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtist_Lookups(t *testing.T) {
	a := Artist{
		SongIDs:       []string{"A", "B", "C"},
		CachedSongIDs: []string{"B"},
	}
	if got := a.IndexOf("C"); got != 2 {
		t.Errorf("IndexOf(C) = %d, want 2", got)
	}
	if got := a.IndexOf("Z"); got != -1 {
		t.Errorf("IndexOf(Z) = %d, want -1", got)
	}
	if !a.HasSong("A") || a.HasSong("Z") {
		t.Error("HasSong mismatch")
	}
	if !a.IsCached("B") || a.IsCached("A") {
		t.Error("IsCached mismatch")
	}
	if _, ok := a.CachedSet()["B"]; !ok {
		t.Error("CachedSet missing B")
	}
}

func TestArtist_JSONStatuses(t *testing.T) {
	b, err := json.Marshal(Artist{ID: "x", ImageStatus: ImageAbsent})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"imageStatus":"absent"`) {
		t.Errorf("expected textual image status, got %s", b)
	}

	b, err = json.Marshal(Song{ID: "s", ScrapingStatus: StatusPermanentlyFailed})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"scrapingStatus":"permanently_failed"`) {
		t.Errorf("expected textual scraping status, got %s", b)
	}
}

func TestDedupeIDs(t *testing.T) {
	got := DedupeIDs([]string{"a", "", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("DedupeIDs() = %v, want %v", got, want)
	}
}
