// Package tilegen turns a tile coordinate into a canonical tile document
// by querying the spatial store and encoding the result.
package tilegen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openscape/tilesrv/internal/stats"
	"github.com/openscape/tilesrv/internal/tile"
)

// TileQuerier is the seam to the spatial store.
type TileQuerier interface {
	QueryTile(ctx context.Context, zoom, x, y int) ([]tile.Record, error)
}

// QueryError marks a store-level failure. The caller does not retry;
// it surfaces as a 503.
type QueryError struct {
	Zoom, X, Y int
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("tile query %d/%d/%d: %v", e.Zoom, e.X, e.Y, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

type Generator struct {
	querier TileQuerier
	stats   *stats.Set
	logger  *slog.Logger
	now     func() time.Time // for tests
}

func New(querier TileQuerier, st *stats.Set, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		querier: querier,
		stats:   st,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchTile runs the tile query and encodes the rows canonically. With
// collectMetrics set it samples query time and document size into the
// registry histograms.
func (g *Generator) FetchTile(ctx context.Context, zoom, x, y int, collectMetrics bool) ([]byte, error) {
	start := g.now()
	records, err := g.querier.QueryTile(ctx, zoom, x, y)
	if err != nil {
		return nil, &QueryError{Zoom: zoom, X: x, Y: y, Err: err}
	}
	if collectMetrics {
		g.stats.QueryTime.Sample(g.now().Sub(start).Seconds())
	}

	buf, err := tile.Encode(records)
	if err != nil {
		return nil, fmt.Errorf("encode tile %d/%d/%d: %w", zoom, x, y, err)
	}
	if collectMetrics {
		g.stats.TileSize.Sample(float64(len(buf)))
	}
	return buf, nil
}
