// Package server wires the HTTP surface of the tile server: the tile
// route, the liveness probe and the metrics endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openscape/tilesrv/internal/config"
	"github.com/openscape/tilesrv/internal/stats"
	"github.com/openscape/tilesrv/internal/telemetry"
	"github.com/openscape/tilesrv/internal/tilecache"
)

// TileFetcher is implemented by tilegen.Generator.
type TileFetcher interface {
	FetchTile(ctx context.Context, zoom, x, y int, collectMetrics bool) ([]byte, error)
}

// Deps carries everything the handlers need. Telemetry and Cache may be
// nil; both are nil-safe.
type Deps struct {
	Fetcher   TileFetcher
	Stats     *stats.Set
	Cache     *tilecache.Cache
	Telemetry *telemetry.Provider
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Deps) http.Handler {
	h := &handlers{
		logger: logger,
		zoom:   cfg.Zoom,
		deps:   deps,
	}

	r := chi.NewRouter()
	r.Use(Recover(logger, deps.Stats))
	if cfg.Verbose {
		r.Use(Logging(logger))
	}

	r.Get("/{zoom:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.json", h.tile)
	r.Get("/probe/alive", h.alive)
	r.Get("/metrics", h.metrics)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr, "zoom", cfg.Zoom)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
