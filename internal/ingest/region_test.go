package ingest

import (
	"testing"

	"github.com/openscape/tilesrv/internal/slippy"
)

func TestParseBBox(t *testing.T) {
	bbox, err := ParseBBox("47.6, -122.4, 47.7,-122.3")
	if err != nil {
		t.Fatalf("ParseBBox: %v", err)
	}
	want := slippy.BBox{LatA: 47.6, LonA: -122.4, LatB: 47.7, LonB: -122.3}
	if bbox != want {
		t.Fatalf("got %+v, want %+v", bbox, want)
	}
}

func TestParseBBox_Rejects(t *testing.T) {
	cases := []string{
		"",
		"1,2,3",
		"1,2,3,4,5",
		"a,2,3,4",
		"91,0,0,0",
		"0,181,0,0",
	}
	for _, s := range cases {
		if _, err := ParseBBox(s); err == nil {
			t.Errorf("ParseBBox(%q): want error", s)
		}
	}
}

func TestTilesForBBox_Envelope(t *testing.T) {
	// Both corners map into a small envelope; every tile in it is listed
	// exactly once.
	bbox := slippy.BBox{LatA: 47.6, LonA: -122.35, LatB: 47.62, LonB: -122.3}
	tb := slippy.GeoBBoxToTileBBox(16, bbox)

	tiles, err := TilesForBBox(16, bbox)
	if err != nil {
		t.Fatalf("TilesForBBox: %v", err)
	}
	wantN := (tb.MaxX - tb.MinX + 1) * (tb.MaxY - tb.MinY + 1)
	if len(tiles) != wantN {
		t.Fatalf("got %d tiles, want %d", len(tiles), wantN)
	}
	seen := make(map[[2]int]bool, len(tiles))
	for _, ref := range tiles {
		if ref.X < tb.MinX || ref.X > tb.MaxX || ref.Y < tb.MinY || ref.Y > tb.MaxY {
			t.Fatalf("tile %d/%d outside envelope %+v", ref.X, ref.Y, tb)
		}
		key := [2]int{ref.X, ref.Y}
		if seen[key] {
			t.Fatalf("tile %d/%d listed twice", ref.X, ref.Y)
		}
		seen[key] = true
	}
}

func TestTilesForBBox_TooLarge(t *testing.T) {
	world := slippy.BBox{LatA: 85, LonA: -180, LatB: -85, LonB: 180}
	if _, err := TilesForBBox(16, world); err == nil {
		t.Fatal("want error for planet-sized region")
	}
}
