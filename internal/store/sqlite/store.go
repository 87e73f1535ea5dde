// Package sqlite implements library.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

// Store is a library.Store backed by SQLite
type Store struct {
	db *sql.DB
}

var _ library.Store = (*Store)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS artists (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		total_songs INTEGER NOT NULL DEFAULT 0,
		songs_fetched INTEGER NOT NULL DEFAULT 0,
		is_fully_cached BOOLEAN NOT NULL DEFAULT 0,
		songs_last_updated INTEGER NOT NULL DEFAULT 0,
		lyrics_scraped INTEGER NOT NULL DEFAULT 0,
		image_status TEXT NOT NULL DEFAULT 'unknown',
		image_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS artist_songs (
		artist_id TEXT NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
		song_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (artist_id, song_id),
		UNIQUE (artist_id, position)
	);

	CREATE TABLE IF NOT EXISTS artist_cached_songs (
		artist_id TEXT NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
		song_id TEXT NOT NULL,
		PRIMARY KEY (artist_id, song_id)
	);

	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		art_image_url TEXT NOT NULL DEFAULT '',
		primary_artist_id TEXT NOT NULL DEFAULT '',
		primary_artist_name TEXT NOT NULL DEFAULT '',
		lyrics TEXT NOT NULL DEFAULT '',
		scraping_status TEXT NOT NULL DEFAULT 'pending',
		scraping_attempts INTEGER NOT NULL DEFAULT 0,
		scraping_error TEXT NOT NULL DEFAULT '',
		scraping_started_at INTEGER NOT NULL DEFAULT 0,
		lyrics_scraped_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_songs_status ON songs(scraping_status);
`

// Open opens (creating if needed) the database at dbPath.
// ":memory:" gives a private in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases consistent and serialises
	// writers, which every multi-statement operation below relies on.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateArtist(ctx context.Context, a library.Artist) (bool, error) {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO artists (id, external_id, name, image_status, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.ExternalID, a.Name, a.ImageStatus.String(), a.ImageURL, toUnix(createdAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

const artistColumns = `id, external_id, name, total_songs, songs_fetched, is_fully_cached,
	songs_last_updated, lyrics_scraped, image_status, image_url, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtist(row rowScanner) (*library.Artist, error) {
	var (
		a                      library.Artist
		lastUpdated, createdAt int64
		imageStatus            string
	)
	err := row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.Name,
		&a.TotalSongs,
		&a.SongsFetched,
		&a.IsFullyCached,
		&lastUpdated,
		&a.LyricsScraped,
		&imageStatus,
		&a.ImageURL,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	a.SongsLastUpdated = fromUnix(lastUpdated)
	a.CreatedAt = fromUnix(createdAt)
	a.ImageStatus = library.ParseImageStatus(imageStatus)
	return &a, nil
}

func (s *Store) GetArtist(ctx context.Context, id string) (*library.Artist, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+artistColumns+" FROM artists WHERE id = ?", id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist %q: %w", id, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}

	if err := s.loadSongLists(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListArtists(ctx context.Context) ([]library.Artist, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+artistColumns+" FROM artists ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}

	var artists []library.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, *a)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating artists: %w", err)
	}
	// Release the only connection before the per-artist queries.
	_ = rows.Close()

	for i := range artists {
		if err := s.loadSongLists(ctx, &artists[i]); err != nil {
			return nil, err
		}
	}
	return artists, nil
}

func (s *Store) loadSongLists(ctx context.Context, a *library.Artist) error {
	var err error
	a.SongIDs, err = s.queryIDs(ctx,
		"SELECT song_id FROM artist_songs WHERE artist_id = ? ORDER BY position ASC", a.ID)
	if err != nil {
		return fmt.Errorf("failed to load song ids: %w", err)
	}
	a.CachedSongIDs, err = s.queryIDs(ctx,
		"SELECT song_id FROM artist_cached_songs WHERE artist_id = ? ORDER BY rowid ASC", a.ID)
	if err != nil {
		return fmt.Errorf("failed to load cached song ids: %w", err)
	}
	return nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) SaveCatalogPage(ctx context.Context, artistID string, page library.CatalogPage) (*library.PageResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM artists WHERE id = ?", artistID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist %q: %w", artistID, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}

	insertSong, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO songs (id, title, url, art_image_url, primary_artist_id, primary_artist_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insertSong.Close()

	now := page.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	for _, song := range page.Songs {
		if song.ID == "" {
			continue
		}
		if _, err := insertSong.ExecContext(ctx,
			song.ID,
			song.Title,
			song.URL,
			song.ArtImageURL,
			song.PrimaryArtistID,
			song.PrimaryArtistName,
			toUnix(now),
		); err != nil {
			return nil, fmt.Errorf("failed to insert song %s: %w", song.ID, err)
		}
	}

	var total int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM artist_songs WHERE artist_id = ?", artistID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count artist songs: %w", err)
	}

	appendSong, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO artist_songs (artist_id, song_id, position) VALUES (?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer appendSong.Close()

	for _, song := range page.Songs {
		if song.ID == "" {
			continue
		}
		if page.MaxSongs > 0 && total >= page.MaxSongs {
			break
		}
		result, err := appendSong.ExecContext(ctx, artistID, song.ID, total)
		if err != nil {
			return nil, fmt.Errorf("failed to append song %s: %w", song.ID, err)
		}
		if n, _ := result.RowsAffected(); n == 1 {
			total++
		}
	}

	full := !page.HasMore || (page.MaxSongs > 0 && total >= page.MaxSongs)
	if _, err := tx.ExecContext(ctx, `
		UPDATE artists
		SET total_songs = ?, songs_fetched = ?, is_fully_cached = ?, songs_last_updated = ?
		WHERE id = ?
	`, total, page.SongsFetched, full, toUnix(now), artistID); err != nil {
		return nil, fmt.Errorf("failed to update artist progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &library.PageResult{TotalSongs: total, IsFullyCached: full}, nil
}

func (s *Store) SetArtistImage(ctx context.Context, artistID string, status library.ImageStatus, url string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE artists SET image_status = ?, image_url = ? WHERE id = ?",
		status.String(), url, artistID)
	if err != nil {
		return fmt.Errorf("failed to update artist image: %w", err)
	}
	return expectRow(result, "artist", artistID)
}

const songColumns = `id, title, url, art_image_url, primary_artist_id, primary_artist_name, lyrics,
	scraping_status, scraping_attempts, scraping_error, scraping_started_at, lyrics_scraped_at, created_at`

func scanSong(row rowScanner) (*library.Song, error) {
	var (
		song                          library.Song
		status                        string
		startedAt, scrapedAt, created int64
	)
	err := row.Scan(
		&song.ID,
		&song.Title,
		&song.URL,
		&song.ArtImageURL,
		&song.PrimaryArtistID,
		&song.PrimaryArtistName,
		&song.Lyrics,
		&status,
		&song.ScrapingAttempts,
		&song.ScrapingError,
		&startedAt,
		&scrapedAt,
		&created,
	)
	if err != nil {
		return nil, err
	}
	song.ScrapingStatus, err = library.ParseScrapingStatus(status)
	if err != nil {
		return nil, err
	}
	song.ScrapingStartedAt = fromUnix(startedAt)
	song.LyricsScrapedAt = fromUnix(scrapedAt)
	song.CreatedAt = fromUnix(created)
	return &song, nil
}

func (s *Store) GetSong(ctx context.Context, id string) (*library.Song, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+songColumns+" FROM songs WHERE id = ?", id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("song %q: %w", id, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query song: %w", err)
	}
	return song, nil
}

func (s *Store) GetSongs(ctx context.Context, ids []string) (map[string]*library.Song, error) {
	ids = library.DedupeIDs(ids)
	songs := make(map[string]*library.Song, len(ids))
	if len(ids) == 0 {
		return songs, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+songColumns+" FROM songs WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs[song.ID] = song
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating songs: %w", err)
	}
	return songs, nil
}

func (s *Store) ClaimScrape(ctx context.Context, songID string, seen library.ScrapeClaim, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE songs
		SET scraping_status = ?, scraping_attempts = scraping_attempts + 1, scraping_started_at = ?
		WHERE id = ? AND scraping_status = ? AND scraping_attempts = ?
	`, library.StatusScraping.String(), toUnix(at), songID, seen.Status.String(), seen.Attempts)
	if err != nil {
		return false, fmt.Errorf("failed to claim song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *Store) CompleteScrape(ctx context.Context, songID, lyrics string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE songs
		SET lyrics = ?, scraping_status = ?, scraping_error = '', lyrics_scraped_at = ?
		WHERE id = ?
	`, lyrics, library.StatusCompleted.String(), toUnix(at), songID)
	if err != nil {
		return fmt.Errorf("failed to store lyrics: %w", err)
	}
	return expectRow(result, "song", songID)
}

func (s *Store) FailScrape(ctx context.Context, songID string, status library.ScrapingStatus, message string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE songs SET scraping_status = ?, scraping_error = ? WHERE id = ?",
		status.String(), message, songID)
	if err != nil {
		return fmt.Errorf("failed to mark song failed: %w", err)
	}
	return expectRow(result, "song", songID)
}

func (s *Store) AddCachedSong(ctx context.Context, artistID, songID string) (bool, error) {
	return s.changeCachedSong(ctx, artistID,
		"INSERT OR IGNORE INTO artist_cached_songs (artist_id, song_id) VALUES (?, ?)",
		"UPDATE artists SET lyrics_scraped = lyrics_scraped + 1 WHERE id = ?",
		songID)
}

func (s *Store) RemoveCachedSong(ctx context.Context, artistID, songID string) (bool, error) {
	return s.changeCachedSong(ctx, artistID,
		"DELETE FROM artist_cached_songs WHERE artist_id = ? AND song_id = ?",
		"UPDATE artists SET lyrics_scraped = MAX(lyrics_scraped - 1, 0) WHERE id = ?",
		songID)
}

// changeCachedSong applies a set change and, only when it altered the set,
// the matching counter change, in one transaction.
func (s *Store) changeCachedSong(ctx context.Context, artistID, setQuery, counterQuery, songID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM artists WHERE id = ?", artistID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("artist %q: %w", artistID, library.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to query artist: %w", err)
	}

	result, err := tx.ExecContext(ctx, setQuery, artistID, songID)
	if err != nil {
		return false, fmt.Errorf("failed to update cached songs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, counterQuery, artistID); err != nil {
		return false, fmt.Errorf("failed to update lyrics counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func expectRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, library.ErrNotFound)
	}
	return nil
}

// Times are stored as unix seconds; 0 is the zero time.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
