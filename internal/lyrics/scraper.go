package lyrics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

// DefaultFetchTimeout bounds a single lyrics fetch
const DefaultFetchTimeout = 15 * time.Second

// Options tunes a Scraper.
type Options struct {
	// MaxAttempts and Lease feed library.Policy; zero means the default.
	MaxAttempts int
	Lease       time.Duration

	// Delay is the pause between consecutive fetches. Zero disables it.
	Delay time.Duration

	// FetchTimeout bounds each fetch; zero means DefaultFetchTimeout.
	FetchTimeout time.Duration
}

// Failure is a song that could not be scraped in this call.
type Failure struct {
	SongID    string `json:"songId"`
	Reason    string `json:"reason"`
	Permanent bool   `json:"permanent"`

	Err error `json:"-"`
}

// Result is the per-song outcome of ScrapeLyrics.
type Result struct {
	Successful []string  `json:"successful"`
	Failed     []Failure `json:"failed"`
	Skipped    []string  `json:"skipped"`
}

// FailedIDs returns the ids in Failed.
func (r *Result) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.SongID
	}
	return ids
}

// Scraper drives songs through the scraping state machine.
type Scraper struct {
	store   library.Store
	fetcher Fetcher
	policy  library.Policy
	delay   time.Duration
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewScraper creates a Scraper
func NewScraper(store library.Store, fetcher Fetcher, opts Options, logger zerolog.Logger) *Scraper {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Scraper{
		store:   store,
		fetcher: fetcher,
		policy:  library.Policy{MaxAttempts: opts.MaxAttempts, Lease: opts.Lease},
		delay:   opts.Delay,
		timeout: timeout,
		logger:  logger.With().Str("component", "scraper").Logger(),
		now:     time.Now,
	}
}

// Policy returns the retry policy in effect.
func (s *Scraper) Policy() library.Policy {
	return s.policy
}

// ScrapeLyrics fetches lyrics for the given songs of an artist, in order.
//
// Songs that already have valid lyrics, have failed permanently or are being
// scraped elsewhere are skipped. A failure on one song never stops the rest;
// only an unknown artist is returned as an error.
func (s *Scraper) ScrapeLyrics(ctx context.Context, artistID string, songIDs []string) (*Result, error) {
	artist, err := s.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	ids := library.DedupeIDs(songIDs)
	songs, err := s.store.GetSongs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}

	log := s.logger.With().Str("artist", artistID).Logger()
	result := &Result{
		Successful: []string{},
		Failed:     []Failure{},
		Skipped:    []string{},
	}
	fetched := false

	// Songs not reached before ctx ends are reported failed without
	// spending an attempt.
	abandon := func(rest []string) {
		for _, id := range rest {
			result.Failed = append(result.Failed, failure(id, ctx.Err(), false))
		}
	}

loop:
	for i, id := range ids {
		if ctx.Err() != nil {
			abandon(ids[i:])
			break
		}

		if !artist.HasSong(id) {
			result.Failed = append(result.Failed,
				failure(id, fmt.Errorf("song %s is not in the catalog: %w", id, library.ErrNotFound), false))
			continue
		}
		song, ok := songs[id]
		if !ok {
			result.Failed = append(result.Failed,
				failure(id, fmt.Errorf("song %s: %w", id, library.ErrNotFound), false))
			continue
		}

		switch s.policy.Decide(song, s.now()) {
		case library.DecisionSkip:
			s.settle(ctx, artist, song)
			result.Skipped = append(result.Skipped, id)

		case library.DecisionExhausted:
			err := fmt.Errorf("%w after %d attempts", library.ErrPermanentFailure, song.ScrapingAttempts)
			s.recordFailure(ctx, artistID, id, library.StatusPermanentlyFailed, err)
			result.Failed = append(result.Failed, failure(id, err, true))

		case library.DecisionScrape:
			if fetched && s.delay > 0 && !sleep(ctx, s.delay) {
				abandon(ids[i:])
				break loop
			}

			claimed, err := s.store.ClaimScrape(ctx, id, library.ClaimOf(song), s.now())
			if err != nil {
				log.Error().Err(err).Str("song", id).Msg("Failed to claim song")
				result.Failed = append(result.Failed, failure(id, err, false))
				continue
			}
			if !claimed {
				log.Debug().Str("song", id).Msg("Song claimed elsewhere")
				result.Skipped = append(result.Skipped, id)
				continue
			}

			fetched = true
			if f := s.scrape(ctx, log, artistID, song); f != nil {
				result.Failed = append(result.Failed, *f)
			} else {
				result.Successful = append(result.Successful, id)
			}
		}
	}

	log.Info().
		Int("successful", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Int("skipped", len(result.Skipped)).
		Msg("Scrape batch finished")

	return result, nil
}

// scrape fetches a claimed song and records the outcome. It returns nil on
// success. Once claimed, the fetch and its bookkeeping run to completion
// even if ctx is cancelled; only the per-fetch timeout bounds them.
func (s *Scraper) scrape(ctx context.Context, log zerolog.Logger, artistID string, song *library.Song) *Failure {
	ctx = context.WithoutCancel(ctx)
	attempts := song.ScrapingAttempts + 1
	log.Debug().Str("song", song.ID).Int("attempt", attempts).Msg("Scraping lyrics")

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	text, err := s.fetcher.Fetch(fetchCtx, song.URL)
	cancel()
	if err == nil && !library.ValidLyrics(text) {
		err = library.ErrExtractionFailed
	}

	if err != nil {
		status := s.policy.AfterFailure(attempts)
		log.Warn().Err(err).
			Str("song", song.ID).
			Int("attempt", attempts).
			Str("status", status.String()).
			Msg("Lyrics scrape failed")
		s.recordFailure(ctx, artistID, song.ID, status, err)
		f := failure(song.ID, err, status == library.StatusPermanentlyFailed)
		return &f
	}

	if err := s.store.CompleteScrape(ctx, song.ID, text, s.now()); err != nil {
		log.Error().Err(err).Str("song", song.ID).Msg("Failed to store lyrics")
		f := failure(song.ID, err, false)
		return &f
	}
	if _, err := s.store.AddCachedSong(ctx, artistID, song.ID); err != nil {
		log.Error().Err(err).Str("song", song.ID).Msg("Failed to mark song cached")
		f := failure(song.ID, err, false)
		return &f
	}
	return nil
}

// recordFailure stores the failed status and evicts the song from the
// artist's cached set.
func (s *Scraper) recordFailure(ctx context.Context, artistID, songID string, status library.ScrapingStatus, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FailScrape(ctx, songID, status, cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("song", songID).Msg("Failed to record scrape failure")
	}
	if _, err := s.store.RemoveCachedSong(ctx, artistID, songID); err != nil {
		s.logger.Error().Err(err).Str("artist", artistID).Str("song", songID).Msg("Failed to evict song")
	}
}

// settle brings the artist's cached set in line with a skipped song: valid
// lyrics scraped through another artist are added, a permanently failed
// song is removed.
func (s *Scraper) settle(ctx context.Context, artist *library.Artist, song *library.Song) {
	var err error
	switch {
	case song.ScrapingStatus == library.StatusCompleted && song.HasValidLyrics() && !artist.IsCached(song.ID):
		_, err = s.store.AddCachedSong(ctx, artist.ID, song.ID)
	case song.ScrapingStatus == library.StatusPermanentlyFailed && artist.IsCached(song.ID):
		_, err = s.store.RemoveCachedSong(ctx, artist.ID, song.ID)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("artist", artist.ID).Str("song", song.ID).Msg("Failed to settle cached song")
	}
}

func failure(songID string, err error, permanent bool) Failure {
	return Failure{SongID: songID, Reason: err.Error(), Permanent: permanent, Err: err}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
