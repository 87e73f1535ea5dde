package genius

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ArtistService provides artist lookups and catalog paging.
type ArtistService struct {
	client *Client
}

// SongsOptions controls a single /artists/:id/songs request.
type SongsOptions struct {
	Page    int    // 1-based page number (defaults to 1)
	PerPage int    // page size, at most MaxPerPage (defaults to MaxPerPage)
	Sort    string // SortPopularity or SortTitle (defaults to SortPopularity)
}

// Get fetches a single artist.
func (s *ArtistService) Get(ctx context.Context, artistID int64) (*Artist, error) {
	var resp struct {
		Artist Artist `json:"artist"`
	}
	path := "/artists/" + strconv.FormatInt(artistID, 10)
	if err := s.client.call(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Artist, nil
}

// Songs fetches one page of an artist's songs.
//
// Example:
//
//	page, err := client.Artists().Songs(ctx, 16775, genius.SongsOptions{Page: 1})
//	if err != nil {
//	    return err
//	}
//	for _, song := range page.Songs {
//	    fmt.Println(song.Title)
//	}
func (s *ArtistService) Songs(ctx context.Context, artistID int64, opts SongsOptions) (*SongsPage, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PerPage <= 0 || opts.PerPage > MaxPerPage {
		opts.PerPage = MaxPerPage
	}
	if opts.Sort == "" {
		opts.Sort = SortPopularity
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("per_page", strconv.Itoa(opts.PerPage))
	params.Set("sort", opts.Sort)

	var page SongsPage
	path := fmt.Sprintf("/artists/%d/songs", artistID)
	if err := s.client.call(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
