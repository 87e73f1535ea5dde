package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/pkg/genius"
)

// Genius adapts the Genius API client to Source and ArtistResolver
type Genius struct {
	client *genius.Client
}

var (
	_ Source         = (*Genius)(nil)
	_ ArtistResolver = (*Genius)(nil)
)

// NewGenius creates a catalog source backed by the Genius API
func NewGenius(client *genius.Client) *Genius {
	return &Genius{client: client}
}

func (g *Genius) SongsPage(ctx context.Context, externalArtistID string, page, pageSize int) (*Page, error) {
	id, err := parseExternalID(externalArtistID)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Artists().Songs(ctx, id, genius.SongsOptions{
		Page:    page,
		PerPage: pageSize,
		Sort:    genius.SortPopularity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch songs page %d: %w", page, mapError(err))
	}

	out := &Page{
		Songs:   make([]SongEntry, 0, len(resp.Songs)),
		HasMore: resp.HasMore() && len(resp.Songs) > 0,
	}
	for _, s := range resp.Songs {
		entry := SongEntry{
			ID:          strconv.FormatInt(s.ID, 10),
			Title:       s.Title,
			URL:         s.URL,
			ArtImageURL: s.SongArtImageURL,
		}
		for _, a := range s.Artists() {
			entry.Artists = append(entry.Artists, toArtistRef(a))
		}
		out.Songs = append(out.Songs, entry)
	}
	return out, nil
}

func (g *Genius) ResolveArtist(ctx context.Context, name string) (*ArtistRef, error) {
	a, err := g.client.Search().Artist(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artist %q: %w", name, mapError(err))
	}
	ref := toArtistRef(*a)
	return &ref, nil
}

func (g *Genius) LookupArtist(ctx context.Context, externalID string) (*ArtistRef, error) {
	id, err := parseExternalID(externalID)
	if err != nil {
		return nil, err
	}
	a, err := g.client.Artists().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up artist %s: %w", externalID, mapError(err))
	}
	ref := toArtistRef(*a)
	return &ref, nil
}

func toArtistRef(a genius.Artist) ArtistRef {
	return ArtistRef{
		ExternalID: strconv.FormatInt(a.ID, 10),
		Name:       a.Name,
		ImageURL:   a.ImageURL,
	}
}

func parseExternalID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid genius artist id %q: %w", s, library.ErrNotFound)
	}
	return id, nil
}

// mapError translates API failures into the library error taxonomy.
// Context errors pass through unchanged.
func mapError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, genius.ErrNotFound):
		return fmt.Errorf("%w: %w", library.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", library.ErrUpstreamUnavailable, err)
	}
}
