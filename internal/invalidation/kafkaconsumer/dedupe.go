package kafkaconsumer

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// payloadDedupe remembers digests of recently applied payloads so a
// redelivered message is not applied twice.
type payloadDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[uint64, struct{}]
}

func newPayloadDedupe(size int) *payloadDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[uint64, struct{}](size)
	return &payloadDedupe{lru: c}
}

// first reports whether this payload has not been seen before, and
// records it.
func (d *payloadDedupe) first(payload []byte) bool {
	sum := xxhash.Sum64(payload)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.lru.Get(sum); ok {
		return false
	}
	d.lru.Add(sum, struct{}{})
	return true
}
