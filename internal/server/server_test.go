package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openscape/tilesrv/internal/config"
	"github.com/openscape/tilesrv/internal/stats"
	"github.com/openscape/tilesrv/internal/tilecache"
	"github.com/openscape/tilesrv/internal/tilegen"
)

type fakeFetcher struct {
	body  []byte
	err   error
	panic bool
	calls int
}

func (f *fakeFetcher) FetchTile(_ context.Context, zoom, x, y int, _ bool) ([]byte, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.body, f.err
}

func newTestRouter(f *fakeFetcher, st *stats.Set, cache *tilecache.Cache) http.Handler {
	cfg := config.Config{Addr: ":0", Zoom: 16}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(cfg, logger, Deps{Fetcher: f, Stats: st, Cache: cache})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestTile_ServesDocument(t *testing.T) {
	body := []byte(`{"features":[{"id":1,"name":"A"},{"id":2,"name":"B"}],"type":"FeatureCollection"}`)
	f := &fakeFetcher{body: body}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/16/100/200.json")

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	got := rr.Body.String()
	if got != string(body) {
		t.Fatalf("body=%s", got)
	}
	if strings.Index(got, `"id"`) > strings.Index(got, `"name"`) {
		t.Fatalf("id should precede name: %s", got)
	}
	if st.TileServed.Value() != 1 {
		t.Fatalf("tile_served=%d want 1", st.TileServed.Value())
	}
}

func TestTile_UnsupportedZoomIs404WithoutQuery(t *testing.T) {
	f := &fakeFetcher{body: []byte("{}")}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/15/0/0.json")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
	if f.calls != 0 {
		t.Fatalf("query issued for unsupported zoom")
	}
	if st.TileServed.Value() != 0 || st.TileException.Value() != 0 {
		t.Fatal("counters moved on a 404")
	}
}

func TestTile_QueryFailureIs503(t *testing.T) {
	f := &fakeFetcher{err: &tilegen.QueryError{Zoom: 16, X: 1, Y: 2, Err: errors.New("connection refused")}}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/16/1/2.json")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
	if st.TileQueryFail.Value() != 1 {
		t.Fatalf("tile_queryfail=%d want 1", st.TileQueryFail.Value())
	}
	if st.TileException.Value() != 0 {
		t.Fatalf("tile_exception=%d want 0", st.TileException.Value())
	}
}

func TestTile_UnexpectedErrorIs500(t *testing.T) {
	f := &fakeFetcher{err: errors.New("some internal bug")}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/16/1/2.json")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
	if st.TileException.Value() != 1 {
		t.Fatalf("tile_exception=%d want 1", st.TileException.Value())
	}
	if st.TileQueryFail.Value() != 0 {
		t.Fatalf("tile_queryfail=%d want 0", st.TileQueryFail.Value())
	}
}

func TestTile_PanicRecoveredAs500(t *testing.T) {
	f := &fakeFetcher{panic: true}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/16/1/2.json")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
	if st.TileException.Value() != 1 {
		t.Fatalf("tile_exception=%d want 1", st.TileException.Value())
	}
}

func TestTile_EmptyDocumentIs503(t *testing.T) {
	f := &fakeFetcher{body: nil}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/16/1/2.json")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
	if st.TileQueryFail.Value() != 1 {
		t.Fatalf("tile_queryfail=%d want 1", st.TileQueryFail.Value())
	}
}

func TestTile_CoordinatesOutOfRangeIs400(t *testing.T) {
	f := &fakeFetcher{body: []byte("{}")}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, nil), "/16/65536/0.json")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	if f.calls != 0 {
		t.Fatal("query issued for out-of-range coordinate")
	}
}

func TestTile_NonNumericPathIs404(t *testing.T) {
	f := &fakeFetcher{body: []byte("{}")}
	rr := get(t, newTestRouter(f, stats.NewSet(), nil), "/16/abc/0.json")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
	if f.calls != 0 {
		t.Fatal("query issued for non-numeric coordinate")
	}
}

func TestTile_CacheHitSkipsStore(t *testing.T) {
	cached := []byte(`{"features":[],"type":"FeatureCollection"}`)
	cache := tilecache.New(4)
	cache.Add(tilecache.Key(16, 3, 4), cached)

	f := &fakeFetcher{err: errors.New("store should not be called")}
	st := stats.NewSet()
	rr := get(t, newTestRouter(f, st, cache), "/16/3/4.json")

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if rr.Body.String() != string(cached) {
		t.Fatalf("body=%s", rr.Body.String())
	}
	if f.calls != 0 {
		t.Fatal("store queried despite cache hit")
	}
	if st.TileServed.Value() != 1 {
		t.Fatalf("tile_served=%d want 1", st.TileServed.Value())
	}
}

func TestAlive_Always200(t *testing.T) {
	st := stats.NewSet()
	rr := get(t, newTestRouter(&fakeFetcher{}, st, nil), "/probe/alive")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
	if st.AliveProbe.Value() != 1 {
		t.Fatalf("aliveprobe=%d want 1", st.AliveProbe.Value())
	}
}

func TestMetrics_ReflectsServedTileAndProbe(t *testing.T) {
	f := &fakeFetcher{body: []byte(`{"features":[],"type":"FeatureCollection"}`)}
	st := stats.NewSet()
	h := newTestRouter(f, st, nil)

	get(t, h, "/16/1/1.json")
	get(t, h, "/probe/alive")
	rr := get(t, h, "/metrics")

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"tile_served_count 1\n",
		"tilesrv_aliveprobe_count 1\n",
		"# TYPE tile_querytime_seconds histogram",
		"# TYPE tile_size histogram",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if st.MetricsScraped.Value() != 1 {
		t.Fatalf("metrics_scraped=%d want 1", st.MetricsScraped.Value())
	}
}
