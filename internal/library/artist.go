package library

import (
	"time"
)

// ImageStatus records whether a representative image has been looked for.
// "Absent" is distinct from "Unknown" so a confirmed miss is not retried.
type ImageStatus uint8

const (
	ImageUnknown ImageStatus = iota
	ImageFound
	ImageAbsent
)

// String representation used in storage and JSON
func (s ImageStatus) String() string {
	switch s {
	case ImageFound:
		return "found"
	case ImageAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// ParseImageStatus converts a stored value back to an ImageStatus.
// Unrecognised values map to ImageUnknown.
func ParseImageStatus(s string) ImageStatus {
	switch s {
	case "found":
		return ImageFound
	case "absent":
		return ImageAbsent
	default:
		return ImageUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ImageStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ImageStatus) UnmarshalText(b []byte) error {
	*s = ParseImageStatus(string(b))
	return nil
}

// Artist is an artist's catalog and lyric-cache bookkeeping.
type Artist struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`

	// SongIDs is ordered by popularity as returned by the catalog source.
	SongIDs []string `json:"songIds"`
	// CachedSongIDs is the set of ids whose lyrics are known-valid.
	CachedSongIDs []string `json:"cachedSongIds"`

	TotalSongs       int       `json:"totalSongs"`
	SongsFetched     int       `json:"songsFetched"`
	IsFullyCached    bool      `json:"isFullyCached"`
	SongsLastUpdated time.Time `json:"songsLastUpdated"`
	LyricsScraped    int       `json:"lyricsScraped"`

	ImageStatus ImageStatus `json:"imageStatus"`
	ImageURL    string      `json:"imageUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// NeedsPopulation reports whether the catalog should be (re)fetched.
// An incomplete catalog is always eligible; a complete one only once it is
// older than refresh.
func (a *Artist) NeedsPopulation(now time.Time, refresh time.Duration) bool {
	if !a.IsFullyCached || a.SongsLastUpdated.IsZero() {
		return true
	}
	return now.Sub(a.SongsLastUpdated) > refresh
}

// IndexOf returns the position of songID in SongIDs, or -1.
func (a *Artist) IndexOf(songID string) int {
	for i, id := range a.SongIDs {
		if id == songID {
			return i
		}
	}
	return -1
}

// HasSong reports whether songID is part of the catalog.
func (a *Artist) HasSong(songID string) bool {
	return a.IndexOf(songID) >= 0
}

// CachedSet returns CachedSongIDs as a lookup set.
func (a *Artist) CachedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.CachedSongIDs))
	for _, id := range a.CachedSongIDs {
		set[id] = struct{}{}
	}
	return set
}

// IsCached reports whether songID is listed in CachedSongIDs.
func (a *Artist) IsCached(songID string) bool {
	for _, id := range a.CachedSongIDs {
		if id == songID {
			return true
		}
	}
	return false
}
