package genius

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// SearchService wraps the /search endpoint.
type SearchService struct {
	client *Client
}

// Songs runs a free-text search and returns the song hits.
func (s *SearchService) Songs(ctx context.Context, query string) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("genius: search query is empty")
	}

	params := url.Values{}
	params.Set("q", query)

	var resp struct {
		Hits []SearchHit `json:"hits"`
	}
	if err := s.client.call(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}

	hits := resp.Hits[:0]
	for _, h := range resp.Hits {
		if h.Type == "song" {
			hits = append(hits, h)
		}
	}
	return hits, nil
}

// Artist resolves an artist name to the best matching artist.
//
// Genius has no artist search endpoint, so the song hits are scanned for a
// primary artist whose name matches case-insensitively; failing that, the
// primary artist of the first hit is returned. ErrNotFound is returned when
// the search has no song hits at all.
func (s *SearchService) Artist(ctx context.Context, name string) (*Artist, error) {
	hits, err := s.Songs(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("genius: no artist matching %q: %w", name, ErrNotFound)
	}

	for _, h := range hits {
		if strings.EqualFold(strings.TrimSpace(h.Result.PrimaryArtist.Name), strings.TrimSpace(name)) {
			a := h.Result.PrimaryArtist
			return &a, nil
		}
	}
	a := hits[0].Result.PrimaryArtist
	return &a, nil
}
