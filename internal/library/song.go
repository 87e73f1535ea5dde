package library

import (
	"fmt"
	"time"
)

// ScrapingStatus is the lyrics scraping state of a song.
type ScrapingStatus uint8

const (
	StatusPending ScrapingStatus = iota
	StatusScraping
	StatusCompleted
	StatusFailed
	StatusPermanentlyFailed
)

// String returns the stored form of the status.
func (s ScrapingStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusScraping:
		return "scraping"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusPermanentlyFailed:
		return "permanently_failed"
	default:
		return fmt.Sprintf("ScrapingStatus(%d)", uint8(s))
	}
}

// ParseScrapingStatus parses the stored form of a status.
// An empty string is treated as pending (documents written before scraping
// existed).
func ParseScrapingStatus(s string) (ScrapingStatus, error) {
	switch s {
	case "", "pending":
		return StatusPending, nil
	case "scraping":
		return StatusScraping, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "permanently_failed":
		return StatusPermanentlyFailed, nil
	default:
		return StatusPending, fmt.Errorf("unknown scraping status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ScrapingStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ScrapingStatus) UnmarshalText(b []byte) error {
	v, err := ParseScrapingStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Song is a single song, stored once regardless of how many artists list it.
type Song struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	URL               string `json:"sourceUrl"`
	ArtImageURL       string `json:"artImageUrl,omitempty"`
	PrimaryArtistID   string `json:"primaryArtistId,omitempty"`
	PrimaryArtistName string `json:"primaryArtistName,omitempty"`

	Lyrics            string         `json:"lyrics,omitempty"`
	ScrapingStatus    ScrapingStatus `json:"scrapingStatus"`
	ScrapingAttempts  int            `json:"scrapingAttempts"`
	ScrapingError     string         `json:"scrapingError,omitempty"`
	ScrapingStartedAt time.Time      `json:"scrapingStartedAt,omitempty"`
	LyricsScrapedAt   time.Time      `json:"lyricsScrapedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasValidLyrics reports whether the song's lyrics are usable.
func (s *Song) HasValidLyrics() bool {
	return ValidLyrics(s.Lyrics)
}
