package kafkaconsumer

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/openscape/tilesrv/internal/invalidation"
	"github.com/openscape/tilesrv/internal/tilecache"
)

func expiryMessage(t *testing.T, tiles ...invalidation.TileRef) *sarama.ConsumerMessage {
	t.Helper()
	ev := invalidation.Event{
		Version: 1,
		Op:      "expire",
		Zoom:    16,
		Tiles:   tiles,
		TS:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:  "test",
	}
	buf, err := ev.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "tile-expiry", Value: buf}
}

func TestProcessOne_EvictsListedTiles(t *testing.T) {
	cache := tilecache.New(8)
	cache.Add(tilecache.Key(16, 100, 200), []byte("a"))
	cache.Add(tilecache.Key(16, 5, 5), []byte("b"))

	c := New(Defaults(nil, "", ""), nil, cache)
	msg := expiryMessage(t, invalidation.TileRef{X: 100, Y: 200})
	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("process: %v", err)
	}

	if _, ok := cache.Get(tilecache.Key(16, 100, 200)); ok {
		t.Fatal("expired tile still cached")
	}
	if _, ok := cache.Get(tilecache.Key(16, 5, 5)); !ok {
		t.Fatal("unrelated tile evicted")
	}
}

func TestProcessOne_DuplicatePayloadSkipped(t *testing.T) {
	cache := tilecache.New(8)
	c := New(Defaults(nil, "", ""), nil, cache)

	msg := expiryMessage(t, invalidation.TileRef{X: 1, Y: 2})
	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// re-add the tile, then redeliver the identical payload
	cache.Add(tilecache.Key(16, 1, 2), []byte("x"))
	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if _, ok := cache.Get(tilecache.Key(16, 1, 2)); !ok {
		t.Fatal("duplicate payload was applied again")
	}
}

func TestProcessOne_MalformedPayloadErrors(t *testing.T) {
	c := New(Defaults(nil, "", ""), nil, tilecache.New(8))
	msg := &sarama.ConsumerMessage{Topic: "tile-expiry", Value: []byte("{not json")}
	if err := c.ProcessOne(context.Background(), msg); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProcessOne_InvalidEventErrors(t *testing.T) {
	c := New(Defaults(nil, "", ""), nil, tilecache.New(8))
	msg := &sarama.ConsumerMessage{Topic: "tile-expiry", Value: []byte(`{"version":1,"op":"expire","zoom":16,"tiles":[]}`)}
	if err := c.ProcessOne(context.Background(), msg); err == nil {
		t.Fatal("expected validation error")
	}
}
