// Package lyrics scrapes song lyrics into the store and keeps each artist's
// cached-song set in line with what was scraped.
package lyrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

// Fetcher is the external lyrics source: it returns valid lyrics text for a
// song page or fails.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// DefaultUserAgent is sent when none is configured
const DefaultUserAgent = "Mozilla/5.0 (compatible; lyricqueue/1.0)"

// PageFetcher downloads lyrics pages with colly and extracts their text.
type PageFetcher struct {
	collector *colly.Collector
}

var _ Fetcher = (*PageFetcher)(nil)

// NewPageFetcher creates a PageFetcher. timeout bounds each request.
func NewPageFetcher(userAgent string, timeout time.Duration) *PageFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	return &PageFetcher{collector: c}
}

type page struct {
	body   []byte
	status int
	err    error
}

// Fetch downloads pageURL and extracts its lyrics.
//
// Missing pages (404, 410) fail with ErrExtractionFailed; network failures
// and other error statuses with ErrUpstreamUnavailable.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", fmt.Errorf("song has no lyrics page: %w", library.ErrExtractionFailed)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := f.collector.Clone()
	var p page
	c.OnResponse(func(r *colly.Response) {
		p.body = r.Body
		p.status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			p.status = r.StatusCode
		}
		p.err = err
	})

	done := make(chan page, 1)
	go func() {
		err := c.Visit(pageURL)
		if err != nil && p.err == nil {
			p.err = err
		}
		done <- p
	}()

	var res page
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		switch res.status {
		case http.StatusNotFound, http.StatusGone:
			return "", fmt.Errorf("lyrics page %s: %w", pageURL, library.ErrExtractionFailed)
		default:
			return "", fmt.Errorf("lyrics page %s: %w: %v", pageURL, library.ErrUpstreamUnavailable, res.err)
		}
	}

	return Extract(pageURL, res.body)
}
