package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openscape/tilesrv/internal/invalidation"
	"github.com/openscape/tilesrv/internal/slippy"
)

// Cap on a manual region expiry; a typo in the bbox should not flood
// the topic with the whole planet.
const maxRegionTiles = 1 << 16

// ParseBBox reads "latA,lonA,latB,lonB" in either corner order.
func ParseBBox(s string) (slippy.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return slippy.BBox{}, fmt.Errorf("want latA,lonA,latB,lonB, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return slippy.BBox{}, fmt.Errorf("bbox component %d: %w", i+1, err)
		}
		vals[i] = f
	}
	if vals[0] < -90 || vals[0] > 90 || vals[2] < -90 || vals[2] > 90 {
		return slippy.BBox{}, fmt.Errorf("latitude must be in [-90,90]")
	}
	if vals[1] < -180 || vals[1] > 180 || vals[3] < -180 || vals[3] > 180 {
		return slippy.BBox{}, fmt.Errorf("longitude must be in [-180,180]")
	}
	return slippy.BBox{LatA: vals[0], LonA: vals[1], LatB: vals[2], LonB: vals[3]}, nil
}

// TilesForBBox enumerates every tile in the envelope covering the
// geographic bounding box.
func TilesForBBox(zoom int, bbox slippy.BBox) ([]invalidation.TileRef, error) {
	tb := slippy.GeoBBoxToTileBBox(zoom, bbox)
	n := (tb.MaxX - tb.MinX + 1) * (tb.MaxY - tb.MinY + 1)
	if n > maxRegionTiles {
		return nil, fmt.Errorf("region covers %d tiles at zoom %d, limit is %d", n, zoom, maxRegionTiles)
	}
	out := make([]invalidation.TileRef, 0, n)
	for x := tb.MinX; x <= tb.MaxX; x++ {
		for y := tb.MinY; y <= tb.MaxY; y++ {
			out = append(out, invalidation.TileRef{X: x, Y: y})
		}
	}
	return out, nil
}
