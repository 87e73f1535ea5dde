package library

import (
	"time"
)

// Scraping policy defaults
const (
	// DefaultMaxAttempts is the retry budget for a song's lyrics.
	DefaultMaxAttempts = 3

	// DefaultScrapeLease is how long a "scraping" claim is honoured before
	// the song is considered abandoned by its worker.
	DefaultScrapeLease = 5 * time.Minute
)

// Decision is what a scraper should do with a song.
type Decision uint8

const (
	// DecisionScrape means the song should be claimed and fetched.
	DecisionScrape Decision = iota
	// DecisionSkip means the song is settled or being scraped elsewhere.
	DecisionSkip
	// DecisionExhausted means the song needs lyrics but has no attempts
	// left; it is recorded as permanently failed without fetching.
	DecisionExhausted
)

// Policy holds the tunables of the scraping state machine.
type Policy struct {
	MaxAttempts int
	Lease       time.Duration
}

// DefaultPolicy returns the standard retry budget and lease.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Lease: DefaultScrapeLease}
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) lease() time.Duration {
	if p.Lease <= 0 {
		return DefaultScrapeLease
	}
	return p.Lease
}

// Decide classifies a song:
//   - pending or failed with attempts left: scrape
//   - completed with valid lyrics, or permanently failed: skip
//   - completed but with invalid lyrics (cache drift): scrape again
//   - scraping within the lease: skip; past the lease: scrape again
//
// Any song that would be scraped but has used its whole budget is exhausted.
func (p Policy) Decide(s *Song, now time.Time) Decision {
	switch s.ScrapingStatus {
	case StatusPermanentlyFailed:
		return DecisionSkip
	case StatusCompleted:
		if s.HasValidLyrics() {
			return DecisionSkip
		}
	case StatusScraping:
		if !s.ScrapingStartedAt.IsZero() && now.Sub(s.ScrapingStartedAt) < p.lease() {
			return DecisionSkip
		}
	case StatusPending, StatusFailed:
	}

	if s.ScrapingAttempts >= p.maxAttempts() {
		return DecisionExhausted
	}
	return DecisionScrape
}

// AfterFailure returns the status a song moves to after a failed attempt,
// given the attempt count including that attempt.
func (p Policy) AfterFailure(attempts int) ScrapingStatus {
	if attempts >= p.maxAttempts() {
		return StatusPermanentlyFailed
	}
	return StatusFailed
}
