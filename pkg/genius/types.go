package genius

// Artist is the artist object embedded in songs and returned by /artists/:id.
type Artist struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	ImageURL       string `json:"image_url"`
	HeaderImageURL string `json:"header_image_url"`
	IsVerified     bool   `json:"is_verified"`
}

// Song is the song object returned by the artist songs and search endpoints.
type Song struct {
	ID                    int64    `json:"id"`
	Title                 string   `json:"title"`
	FullTitle             string   `json:"full_title"`
	URL                   string   `json:"url"`
	Path                  string   `json:"path"`
	SongArtImageURL       string   `json:"song_art_image_url"`
	HeaderImageURL        string   `json:"header_image_url"`
	LyricsState           string   `json:"lyrics_state"`
	Instrumental          bool     `json:"instrumental"`
	PrimaryArtist         Artist   `json:"primary_artist"`
	FeaturedArtists       []Artist `json:"featured_artists"`
	PrimaryArtistNames    string   `json:"primary_artist_names"`
	ArtistNames           string   `json:"artist_names"`
	AnnotationCount       int      `json:"annotation_count"`
	PyongsCount           int      `json:"pyongs_count"`
	ReleaseDateForDisplay string   `json:"release_date_for_display"`
}

// Artists returns the primary artist followed by the featured artists.
func (s Song) Artists() []Artist {
	out := make([]Artist, 0, 1+len(s.FeaturedArtists))
	out = append(out, s.PrimaryArtist)
	return append(out, s.FeaturedArtists...)
}

// SongsPage is one page of /artists/:id/songs.
type SongsPage struct {
	Songs    []Song `json:"songs"`
	NextPage *int   `json:"next_page"`
}

// HasMore reports whether Genius advertises another page.
func (p *SongsPage) HasMore() bool {
	return p.NextPage != nil && *p.NextPage > 0
}

// SearchHit is a single result from /search.
type SearchHit struct {
	Index  string `json:"index"`
	Type   string `json:"type"`
	Result Song   `json:"result"`
}

// Sort orders accepted by /artists/:id/songs.
const (
	SortPopularity = "popularity"
	SortTitle      = "title"
)

// MaxPerPage is the largest page size Genius accepts for artist songs.
const MaxPerPage = 50
