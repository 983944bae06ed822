// Package store runs the tile query against the PostGIS database behind
// a shared connection pool.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openscape/tilesrv/internal/tile"
)

const (
	// Per-session bound on a single pathological query. The request
	// itself carries no deadline beyond this.
	timeoutSet = "SET statement_timeout=10000"

	tileQuery = "SELECT * FROM soundscape_tile($1, $2, $3)"
)

type Config struct {
	DSN      string
	MinConns int32
	MaxConns int32
	Recycle  time.Duration
}

// Postgis holds the pooled connection to the spatial store. Safe for
// concurrent use; each query borrows one connection and returns it on
// every exit path.
type Postgis struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgis(ctx context.Context, cfg Config, logger *slog.Logger) (*Postgis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.Recycle > 0 {
		pc.MaxConnLifetime = cfg.Recycle
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Postgis{pool: pool, logger: logger}, nil
}

// QueryTile executes the tile-producing stored procedure and maps each
// row to a Record keyed by column name, preserving row order.
func (s *Postgis) QueryTile(ctx context.Context, zoom, x, y int) ([]tile.Record, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, timeoutSet); err != nil {
		return nil, fmt.Errorf("set statement timeout: %w", err)
	}

	rows, err := conn.Query(ctx, tileQuery, zoom, x, y)
	if err != nil {
		return nil, fmt.Errorf("tile query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []tile.Record
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec := make(tile.Record, len(fields))
		for i, fd := range fields {
			rec[fd.Name] = vals[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tile query rows: %w", err)
	}
	return records, nil
}

func (s *Postgis) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgis) Close() {
	s.pool.Close()
}

// Stat reports pool occupancy for verbose request logging.
func (s *Postgis) Stat() (acquired, idle, max int32) {
	st := s.pool.Stat()
	return st.AcquiredConns(), st.IdleConns(), st.MaxConns()
}
