// Package genius provides a client library for the Genius API.
//
// # Overview
//
// This package implements the small slice of the Genius API needed to walk
// an artist's catalog: artist lookup, paged artist songs ordered by
// popularity, and song search. It provides context support, structured
// errors and retry logic for rate limiting.
//
// # Quick Start
//
//	client, err := genius.NewClient(genius.Config{
//	    AccessToken: "your-client-access-token",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	page, err := client.Artists().Songs(ctx, 16775, genius.SongsOptions{
//	    Page:    1,
//	    PerPage: 50,
//	    Sort:    genius.SortPopularity,
//	})
//
// # Resolving artists
//
// Genius has no artist search. Search().Artist scans song hits for a
// matching primary artist:
//
//	artist, err := client.Search().Artist(ctx, "Kendrick Lamar")
//
// # Error Handling
//
// Non-200 responses are returned as *genius.Error:
//
//	if err != nil {
//	    var apiErr *genius.Error
//	    if errors.As(err, &apiErr) && apiErr.Temporary() {
//	        // rate limited or server failure
//	    }
//	    if errors.Is(err, genius.ErrNotFound) {
//	        // no such artist
//	    }
//	}
//
// Requests that fail with 429 or 5xx are retried with exponential backoff
// (honouring Retry-After) before the error is returned.
package genius
