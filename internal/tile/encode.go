// Package tile builds the canonical JSON tile document.
//
// Tiles are produced in a canonical form so that from-scratch generation
// yields byte-identical output for identical input, which also keeps
// tiles diffable.
package tile

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Record is one feature row from the store, keyed by column name.
type Record map[string]any

// Document is the top-level tile shape. Marshalling emits object keys
// in sorted order, so "features" always precedes "type".
type Document struct {
	Features []Record `json:"features"`
	Type     string   `json:"type"`
}

// Encode serializes records into a FeatureCollection document. Feature
// order follows record order; keys inside each feature are sorted by the
// encoder. An empty input produces an empty features array, not null.
func Encode(records []Record) ([]byte, error) {
	doc := Document{
		Features: records,
		Type:     "FeatureCollection",
	}
	if doc.Features == nil {
		doc.Features = []Record{}
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode tile: %w", err)
	}
	return buf, nil
}
