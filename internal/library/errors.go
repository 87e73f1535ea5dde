package library

import "errors"

// Error taxonomy shared by the populator, scraper and window loader.
var (
	// ErrNotFound: unknown artist or song, or a cursor outside the catalog.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable: the catalog or lyrics source could not be
	// reached or answered with a failure status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrExtractionFailed: the lyrics page was fetched but held no usable
	// lyrics.
	ErrExtractionFailed = errors.New("no lyrics found")

	// ErrPermanentFailure: the song has used its whole retry budget.
	ErrPermanentFailure = errors.New("lyrics permanently unavailable")
)
