package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/service"
)

func TestFormatSummary(t *testing.T) {
	s := &service.Summary{
		ID:               "kendrick-lamar",
		ExternalID:       "1421",
		Name:             "Kendrick Lamar",
		TotalSongs:       120,
		CachedSongs:      14,
		IsFullyCached:    true,
		SongsLastUpdated: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ImageStatus:      library.ImageFound,
		ImageURL:         "https://images.genius.com/k.jpg",
	}

	out := formatSummary(s)
	for _, want := range []string{
		"Kendrick Lamar (kendrick-lamar)",
		"genius id:      1421",
		"songs:          120 (complete: true)",
		"lyrics cached:  14",
		"last updated:   2026-03-01 12:00",
		"image:          found https://images.genius.com/k.jpg",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "needs populating") {
		t.Errorf("fresh artist reported as needing population:\n%s", out)
	}
}

func TestFormatSummaries(t *testing.T) {
	out := formatSummaries([]service.Summary{
		{ID: "alpha", TotalSongs: 3, CachedSongs: 1},
		{ID: "beta", NeedsPopulation: true},
	})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ARTIST") || !strings.HasSuffix(lines[0], "STATUS") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "  ok") || !strings.HasSuffix(lines[2], "needs populating") {
		t.Errorf("unexpected rows:\n%s", out)
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcdefgh", "****efgh"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
