// Package refresher keeps artist catalogs current in the background.
package refresher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/library"
)

// Populator populates one artist's catalog.
type Populator interface {
	PopulateCatalog(ctx context.Context, artistID string) (*catalog.Result, error)
}

// Options tunes the Refresher.
type Options struct {
	// Interval between passes.
	Interval time.Duration

	// Concurrency bounds the artists populated at once.
	Concurrency int

	// Staleness is the catalog age after which an artist is re-populated.
	Staleness time.Duration
}

// Pass summarises one refresh pass.
type Pass struct {
	Checked   int
	Refreshed int
	Failed    int
}

// Refresher periodically populates artists whose catalogs are stale or
// incomplete.
type Refresher struct {
	store     library.Store
	populator Populator
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Refresher
func New(store library.Store, populator Populator, opts Options, logger zerolog.Logger) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Staleness <= 0 {
		opts.Staleness = catalog.DefaultRefreshInterval
	}
	return &Refresher{
		store:     store,
		populator: populator,
		opts:      opts,
		logger:    logger.With().Str("component", "refresher").Logger(),
		now:       time.Now,
	}
}

// Run refreshes immediately and then every Interval.
// Blocks until context is cancelled
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info().
		Dur("interval", r.opts.Interval).
		Int("concurrency", r.opts.Concurrency).
		Msg("Starting refresher")

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Refresher stopped")
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if _, err := r.RefreshOnce(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Msg("Refresh pass failed")
	}
}

// RefreshOnce populates every artist that needs it. A failure for one artist
// is logged and does not stop the others.
func (r *Refresher) RefreshOnce(ctx context.Context) (Pass, error) {
	artists, err := r.store.ListArtists(ctx)
	if err != nil {
		return Pass{}, err
	}

	now := r.now()
	var refreshed, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Concurrency)

	checked := 0
	for i := range artists {
		a := &artists[i]
		if !a.NeedsPopulation(now, r.opts.Staleness) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		checked++

		id := a.ID
		g.Go(func() error {
			res, err := r.populator.PopulateCatalog(ctx, id)
			if err != nil {
				failed.Add(1)
				r.logger.Warn().Err(err).Str("artist", id).Msg("Failed to refresh catalog")
				return nil
			}
			refreshed.Add(1)
			r.logger.Debug().
				Str("artist", id).
				Int("total_songs", res.TotalSongs).
				Int("new_songs", res.NewSongs).
				Msg("Catalog refreshed")
			return nil
		})
	}
	_ = g.Wait()

	pass := Pass{Checked: checked, Refreshed: int(refreshed.Load()), Failed: int(failed.Load())}
	if pass.Checked > 0 {
		r.logger.Info().
			Int("checked", pass.Checked).
			Int("refreshed", pass.Refreshed).
			Int("failed", pass.Failed).
			Msg("Refresh pass finished")
	}
	return pass, ctx.Err()
}
