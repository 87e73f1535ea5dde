package mongo

import (
	"time"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

type artistDoc struct {
	ID               string    `bson:"_id"`
	ExternalID       string    `bson:"externalId"`
	Name             string    `bson:"name"`
	SongIDs          []string  `bson:"songIds"`
	CachedSongIDs    []string  `bson:"cachedSongIds"`
	TotalSongs       int       `bson:"totalSongs"`
	SongsFetched     int       `bson:"songsFetched"`
	IsFullyCached    bool      `bson:"isFullyCached"`
	SongsLastUpdated time.Time `bson:"songsLastUpdated,omitempty"`
	LyricsScraped    int       `bson:"lyricsScraped"`
	ImageStatus      string    `bson:"imageStatus"`
	ImageURL         string    `bson:"imageUrl,omitempty"`
	CreatedAt        time.Time `bson:"createdAt"`
}

func fromArtist(a library.Artist) artistDoc {
	doc := artistDoc{
		ID:               a.ID,
		ExternalID:       a.ExternalID,
		Name:             a.Name,
		SongIDs:          a.SongIDs,
		CachedSongIDs:    a.CachedSongIDs,
		TotalSongs:       a.TotalSongs,
		SongsFetched:     a.SongsFetched,
		IsFullyCached:    a.IsFullyCached,
		SongsLastUpdated: a.SongsLastUpdated,
		LyricsScraped:    a.LyricsScraped,
		ImageStatus:      a.ImageStatus.String(),
		ImageURL:         a.ImageURL,
		CreatedAt:        a.CreatedAt,
	}
	// Stored as empty arrays, never null, so $concatArrays and $in work.
	if doc.SongIDs == nil {
		doc.SongIDs = []string{}
	}
	if doc.CachedSongIDs == nil {
		doc.CachedSongIDs = []string{}
	}
	return doc
}

func (d artistDoc) toArtist() library.Artist {
	a := library.Artist{
		ID:               d.ID,
		ExternalID:       d.ExternalID,
		Name:             d.Name,
		SongIDs:          d.SongIDs,
		CachedSongIDs:    d.CachedSongIDs,
		TotalSongs:       d.TotalSongs,
		SongsFetched:     d.SongsFetched,
		IsFullyCached:    d.IsFullyCached,
		SongsLastUpdated: d.SongsLastUpdated,
		LyricsScraped:    d.LyricsScraped,
		ImageStatus:      library.ParseImageStatus(d.ImageStatus),
		ImageURL:         d.ImageURL,
		CreatedAt:        d.CreatedAt,
	}
	if a.SongIDs == nil {
		a.SongIDs = []string{}
	}
	if a.CachedSongIDs == nil {
		a.CachedSongIDs = []string{}
	}
	return a
}

type songDoc struct {
	ID                string    `bson:"_id"`
	Title             string    `bson:"title"`
	URL               string    `bson:"url"`
	ArtImageURL       string    `bson:"artImageUrl,omitempty"`
	PrimaryArtistID   string    `bson:"primaryArtistId,omitempty"`
	PrimaryArtistName string    `bson:"primaryArtistName,omitempty"`
	Lyrics            string    `bson:"lyrics,omitempty"`
	ScrapingStatus    string    `bson:"scrapingStatus"`
	ScrapingAttempts  int       `bson:"scrapingAttempts"`
	ScrapingError     string    `bson:"scrapingError,omitempty"`
	ScrapingStartedAt time.Time `bson:"scrapingStartedAt,omitempty"`
	LyricsScrapedAt   time.Time `bson:"lyricsScrapedAt,omitempty"`
	CreatedAt         time.Time `bson:"createdAt"`
}

// newSongDoc is the insert-only form of a freshly listed song.
func newSongDoc(s library.Song, now time.Time) songDoc {
	return songDoc{
		ID:                s.ID,
		Title:             s.Title,
		URL:               s.URL,
		ArtImageURL:       s.ArtImageURL,
		PrimaryArtistID:   s.PrimaryArtistID,
		PrimaryArtistName: s.PrimaryArtistName,
		ScrapingStatus:    library.StatusPending.String(),
		CreatedAt:         now,
	}
}

func (d songDoc) toSong() *library.Song {
	// Unknown stored statuses read as pending so the song gets re-scraped.
	status, _ := library.ParseScrapingStatus(d.ScrapingStatus)
	return &library.Song{
		ID:                d.ID,
		Title:             d.Title,
		URL:               d.URL,
		ArtImageURL:       d.ArtImageURL,
		PrimaryArtistID:   d.PrimaryArtistID,
		PrimaryArtistName: d.PrimaryArtistName,
		Lyrics:            d.Lyrics,
		ScrapingStatus:    status,
		ScrapingAttempts:  d.ScrapingAttempts,
		ScrapingError:     d.ScrapingError,
		ScrapingStartedAt: d.ScrapingStartedAt,
		LyricsScrapedAt:   d.LyricsScrapedAt,
		CreatedAt:         d.CreatedAt,
	}
}
