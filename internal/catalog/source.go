// Package catalog fills an artist's ordered song list from an external
// catalog source.
package catalog

import (
	"context"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

// Source is the external catalog: an artist's songs, most popular first,
// one page at a time. Pages are numbered from 1.
type Source interface {
	SongsPage(ctx context.Context, externalArtistID string, page, pageSize int) (*Page, error)
}

// ArtistResolver finds an artist in the external catalog.
type ArtistResolver interface {
	ResolveArtist(ctx context.Context, name string) (*ArtistRef, error)
	LookupArtist(ctx context.Context, externalID string) (*ArtistRef, error)
}

// Page is one page of an artist's catalog.
type Page struct {
	Songs   []SongEntry
	HasMore bool
}

// SongEntry is a song as listed by the source.
type SongEntry struct {
	ID          string
	Title       string
	URL         string
	ArtImageURL string

	// Artists credited on the song, primary artist first.
	Artists []ArtistRef
}

// ArtistRef is an artist as known to the source.
type ArtistRef struct {
	ExternalID string
	Name       string
	ImageURL   string
}

// toSong converts an entry to a new pending Song.
func (e SongEntry) toSong() library.Song {
	s := library.Song{
		ID:          e.ID,
		Title:       e.Title,
		URL:         e.URL,
		ArtImageURL: e.ArtImageURL,
	}
	if len(e.Artists) > 0 {
		s.PrimaryArtistID = e.Artists[0].ExternalID
		s.PrimaryArtistName = e.Artists[0].Name
	}
	return s
}
