package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/pkg/genius"
)

func newTestGenius(t *testing.T, handler http.HandlerFunc) *Genius {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := genius.NewClient(genius.Config{
		AccessToken: "test-token",
		BaseURL:     server.URL,
		MaxRetries:  1,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return NewGenius(client)
}

func TestGenius_SongsPage(t *testing.T) {
	g := newTestGenius(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artists/1421/songs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("expected page 2, got %s", r.URL.Query().Get("page"))
		}
		_, _ = w.Write([]byte(`{"meta":{"status":200},"response":{"songs":[
			{"id":378195,"title":"Alright","url":"https://genius.com/alright","song_art_image_url":"https://images.genius.com/art.jpg",
			 "primary_artist":{"id":1421,"name":"Kendrick Lamar","image_url":"https://images.genius.com/k.jpg"},
			 "featured_artists":[{"id":7,"name":"Guest"}]}
		],"next_page":3}}`))
	})

	page, err := g.SongsPage(context.Background(), "1421", 2, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !page.HasMore || len(page.Songs) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	s := page.Songs[0]
	if s.ID != "378195" || s.Title != "Alright" || s.ArtImageURL != "https://images.genius.com/art.jpg" {
		t.Errorf("unexpected song: %+v", s)
	}
	if len(s.Artists) != 2 || s.Artists[0].ExternalID != "1421" || s.Artists[0].ImageURL != "https://images.genius.com/k.jpg" {
		t.Errorf("unexpected attributions: %+v", s.Artists)
	}

	song := s.toSong()
	if song.PrimaryArtistID != "1421" || song.PrimaryArtistName != "Kendrick Lamar" {
		t.Errorf("unexpected primary artist: %+v", song)
	}
}

func TestGenius_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, library.ErrNotFound},
		{"server error", http.StatusServiceUnavailable, library.ErrUpstreamUnavailable},
		{"unauthorized", http.StatusUnauthorized, library.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenius(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := g.SongsPage(context.Background(), "1", 1, 50)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGenius_InvalidExternalID(t *testing.T) {
	g := newTestGenius(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := g.SongsPage(context.Background(), "abc", 1, 50); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := g.LookupArtist(context.Background(), "-3"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGenius_ResolveArtist(t *testing.T) {
	g := newTestGenius(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"status":200},"response":{"hits":[
			{"type":"song","result":{"id":2,"primary_artist":{"id":1421,"name":"Kendrick Lamar","image_url":"https://images.genius.com/k.jpg"}}}
		]}}`))
	})

	ref, err := g.ResolveArtist(context.Background(), "Kendrick Lamar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ExternalID != "1421" || ref.Name != "Kendrick Lamar" || ref.ImageURL == "" {
		t.Errorf("unexpected artist: %+v", ref)
	}
}

func TestFindArtistImage(t *testing.T) {
	songs := []SongEntry{
		{ID: "1", Artists: []ArtistRef{{ExternalID: "9", ImageURL: "https://other.jpg"}}},
		{ID: "2", Artists: []ArtistRef{{ExternalID: "1"}}},
		{ID: "3", Artists: []ArtistRef{{ExternalID: "9"}, {ExternalID: "1", ImageURL: "https://mine.jpg"}}},
	}
	if got := FindArtistImage("1", songs); got != "https://mine.jpg" {
		t.Errorf("expected featured credit image, got %q", got)
	}
	if got := FindArtistImage("5", songs); got != "" {
		t.Errorf("expected no image, got %q", got)
	}
}
