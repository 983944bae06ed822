package stats

// Set is the fixed metric family of the tile server, registered once at
// process start and shared by every handler.
type Set struct {
	Registry *Registry

	MetricsScraped *Counter
	AliveProbe     *Counter
	ServerStart    *Counter
	TileServed     *Counter
	TileException  *Counter
	TileQueryFail  *Counter

	QueryTime *Histogram
	TileSize  *Histogram
}

func NewSet() *Set {
	r := NewRegistry()
	return &Set{
		Registry:       r,
		MetricsScraped: r.NewCounter("tilesrv_metrics_scraped", "count of times scraped"),
		AliveProbe:     r.NewCounter("tilesrv_aliveprobe_count", "count of times probe for aliveness"),
		ServerStart:    r.NewCounter("tilesrv_start_count", "count of times tile server started"),
		TileServed:     r.NewCounter("tile_served_count", "count of tiles served"),
		TileException:  r.NewCounter("tile_exception_count", "count of tiles requests that ended in exception"),
		TileQueryFail:  r.NewCounter("tile_queryfail_count", "count of tiles requests that experienced query failure"),
		QueryTime:      r.NewHistogram("tile_querytime_seconds", "histogram of tile query performance", 0.20, 20),
		TileSize:       r.NewHistogram("tile_size", "histogram of tile size", 1024*8, 32),
	}
}
