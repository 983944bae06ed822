package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openscape/tilesrv/internal/tilecache"
	"github.com/openscape/tilesrv/internal/tilegen"
)

const tileRoute = "/{zoom}/{x}/{y}.json"

type handlers struct {
	logger *slog.Logger
	zoom   int
	deps   Deps
}

// tile validates the route coordinates, fetches the tile and maps the
// outcome to a status code. Coordinates outside [0, 2^zoom) are a
// caller error and never reach the store.
func (h *handlers) tile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
	defer func() {
		h.deps.Telemetry.ObserveHTTP(r.Method, tileRoute, sw.code, time.Since(start).Seconds())
	}()

	zoom, err1 := strconv.Atoi(chi.URLParam(r, "zoom"))
	x, err2 := strconv.Atoi(chi.URLParam(r, "x"))
	y, err3 := strconv.Atoi(chi.URLParam(r, "y"))
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(sw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if zoom != h.zoom {
		http.Error(sw, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	limit := 1 << zoom
	if x < 0 || x >= limit || y < 0 || y >= limit {
		http.Error(sw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	key := tilecache.Key(zoom, x, y)
	if body, ok := h.deps.Cache.Get(key); ok {
		h.deps.Stats.TileServed.Inc()
		sw.Header().Set("Content-Type", "application/json")
		_, _ = sw.Write(body)
		return
	}

	// An issued query runs to completion (or to its statement timeout)
	// even if the client goes away.
	body, err := h.deps.Fetcher.FetchTile(context.WithoutCancel(r.Context()), zoom, x, y, true)
	if err != nil {
		var qe *tilegen.QueryError
		if errors.As(err, &qe) {
			h.logger.Error("tile query failed", "zoom", zoom, "x", x, "y", y, "err", err)
			h.deps.Stats.TileQueryFail.Inc()
			http.Error(sw, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("tile request failed", "zoom", zoom, "x", x, "y", y, "err", err)
		h.deps.Stats.TileException.Inc()
		http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		h.logger.Error("empty tile from store", "zoom", zoom, "x", x, "y", y)
		h.deps.Stats.TileQueryFail.Inc()
		http.Error(sw, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	h.deps.Cache.Add(key, body)
	h.deps.Stats.TileServed.Inc()
	sw.Header().Set("Content-Type", "application/json")
	_, _ = sw.Write(body)
}

func (h *handlers) alive(w http.ResponseWriter, _ *http.Request) {
	h.deps.Stats.AliveProbe.Inc()
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) metrics(w http.ResponseWriter, _ *http.Request) {
	h.deps.Stats.MetricsScraped.Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.deps.Stats.Registry.Report()))
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
