package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/lyricqueue/internal/refresher"
	"github.com/jfmyers9/lyricqueue/internal/server"
)

var (
	serveAddr        string
	serveNoRefresher bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the catalog refresher",
	Long: `Run the HTTP API together with the background catalog refresher.

The refresher re-populates every artist whose catalog is incomplete or older
than catalog.refresh_interval, once at startup and then every
refresher.interval.

The server runs in the foreground and logs to stderr by default. The first
SIGINT/SIGTERM shuts down gracefully, a second one forces exit.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoRefresher, "no-refresher", false, "Do not run the background refresher")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	a.logger.Info().
		Str("version", version).
		Str("store", a.cfg.Store.Driver).
		Msg("Starting lyricqueue")

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		a.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		select {
		case <-sigChan:
			a.logger.Warn().Msg("Second shutdown signal received, forcing exit")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	srv := server.New(a.svc, server.Options{
		DefaultWindowSize: a.cfg.Window.DefaultSize,
		RequestTimeout:    a.cfg.Server.RequestTimeout,
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, addr)
	})
	if !serveNoRefresher {
		r := refresher.New(a.store, a.populator, refresher.Options{
			Interval:    a.cfg.Refresher.Interval,
			Concurrency: a.cfg.Refresher.Concurrency,
			Staleness:   a.cfg.Catalog.RefreshInterval,
		}, a.logger)
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}

	a.logger.Info().Msg("Stopped")
	return nil
}
