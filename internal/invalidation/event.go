// Package invalidation defines the tile-expiry event the diff ingester
// publishes and the tile server consumes.
package invalidation

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type TileRef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Event announces that the listed tiles were touched by an OSM diff and
// any cached copies must be dropped.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Zoom    int       `json:"zoom"`
	Tiles   []TileRef `json:"tiles"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

const maxZoom = 24

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if e.Op != "expire" {
		return fmt.Errorf("op must be expire")
	}
	if e.Zoom < 0 || e.Zoom > maxZoom {
		return fmt.Errorf("zoom out of range")
	}
	if len(e.Tiles) == 0 {
		return fmt.Errorf("tiles is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	limit := 1 << e.Zoom
	for _, tr := range e.Tiles {
		if tr.X < 0 || tr.X >= limit || tr.Y < 0 || tr.Y >= limit {
			return fmt.Errorf("tile %d/%d out of range for zoom %d", tr.X, tr.Y, e.Zoom)
		}
	}
	return nil
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
