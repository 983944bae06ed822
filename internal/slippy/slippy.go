// Package slippy converts between geographic coordinates and OSM
// slippy-map tile indexes.
//
// Formulas follow https://wiki.openstreetmap.org/wiki/Slippy_map_tilenames
package slippy

import "math"

// GeoToTile returns the tile containing (lat, lon) at the given zoom.
// Latitudes at or beyond the poles are outside the projection's domain
// and produce unusable results.
func GeoToTile(lat, lon float64, zoom int) (x, y int) {
	latRad := lat * math.Pi / 180
	n := math.Exp2(float64(zoom))
	x = int((lon + 180) / 360 * n)
	y = int((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)
	return x, y
}

// TileToGeo returns the NW corner of the tile. Pass x+1 and/or y+1 for
// the other corners, x+0.5 and y+0.5 for the tile center.
func TileToGeo(x, y float64, zoom int) (lat, lon float64) {
	n := math.Exp2(float64(zoom))
	lon = x/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	lat = latRad * 180 / math.Pi
	return lat, lon
}

// BBox is a geographic bounding box given by two opposite corners, in
// either order.
type BBox struct {
	LatA, LonA float64
	LatB, LonB float64
}

// TileBBox is the tile-index envelope covering a geographic bounding box.
type TileBBox struct {
	MinX, MinY int
	MaxX, MaxY int
}

// GeoBBoxToTileBBox projects both corners independently and returns the
// min/max envelope, so the corner order of the input does not matter.
func GeoBBoxToTileBBox(zoom int, bbox BBox) TileBBox {
	ax, ay := GeoToTile(bbox.LatA, bbox.LonA, zoom)
	bx, by := GeoToTile(bbox.LatB, bbox.LonB, zoom)
	return TileBBox{
		MinX: min(ax, bx),
		MinY: min(ay, by),
		MaxX: max(ax, bx),
		MaxY: max(ay, by),
	}
}
