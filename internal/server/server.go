// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/lyrics"
	"github.com/jfmyers9/lyricqueue/internal/service"
	"github.com/jfmyers9/lyricqueue/internal/window"
)

// Service is the engine the server fronts.
type Service interface {
	AddArtist(ctx context.Context, name string) (*service.Summary, bool, error)
	AddArtistByExternalID(ctx context.Context, externalID string) (*service.Summary, bool, error)
	ArtistSummary(ctx context.Context, artistID string) (*service.Summary, error)
	ListSummaries(ctx context.Context) ([]service.Summary, error)
	PopulateCatalog(ctx context.Context, artistID string) (*catalog.Result, error)
	ScrapeLyrics(ctx context.Context, artistID string, songIDs []string) (*lyrics.Result, error)
	LoadWindow(ctx context.Context, artistID, cursor string, dir window.Direction, size int) (*window.Window, error)
	RepairCache(ctx context.Context, artistID string) (*service.RepairReport, error)
}

// Options configures the Server.
type Options struct {
	// DefaultWindowSize is used when a window request has no size.
	DefaultWindowSize int

	// RequestTimeout bounds each request's context; zero disables it.
	RequestTimeout time.Duration
}

// Server is the HTTP surface.
type Server struct {
	svc    Service
	opts   Options
	engine *gin.Engine
	logger zerolog.Logger
}

// New creates a Server with its routes registered.
func New(svc Service, opts Options, logger zerolog.Logger) *Server {
	if opts.DefaultWindowSize < 1 {
		opts.DefaultWindowSize = window.DefaultSize
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		svc:    svc,
		opts:   opts,
		engine: gin.New(),
		logger: logger.With().Str("component", "server").Logger(),
	}

	s.engine.Use(requestID(), requestLogger(s.logger), gin.Recovery(), requestTimeout(opts.RequestTimeout))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	artists := s.engine.Group("/artists")
	artists.POST("", s.addArtist)
	artists.GET("", s.listArtists)
	artists.GET("/:id", s.getArtist)
	artists.POST("/:id/populate", s.populate)
	artists.POST("/:id/scrape", s.scrape)
	artists.GET("/:id/window", s.loadWindow)
	artists.POST("/:id/repair", s.repair)
}

// Handler returns the http.Handler serving the routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting server")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
