// Package stats implements the process-local counters and histograms
// published on /metrics, with a line-oriented text exposition format.
package stats

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

type metric interface {
	report(b *strings.Builder)
}

// Registry holds metrics in registration order. Report output is
// deterministic for a given sequence of updates.
type Registry struct {
	mu      sync.Mutex
	metrics []metric
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) NewCounter(name, help string) *Counter {
	c := &Counter{name: name, help: help}
	r.mu.Lock()
	r.metrics = append(r.metrics, c)
	r.mu.Unlock()
	return c
}

func (r *Registry) NewHistogram(name, help string, interval float64, bucketCount int) *Histogram {
	h := &Histogram{
		name:     name,
		help:     help,
		interval: interval,
		buckets:  make([]uint64, bucketCount),
		max:      float64(bucketCount) * interval,
	}
	r.mu.Lock()
	r.metrics = append(r.metrics, h)
	r.mu.Unlock()
	return h
}

func (r *Registry) Report() string {
	r.mu.Lock()
	ms := r.metrics
	r.mu.Unlock()

	var b strings.Builder
	for _, m := range ms {
		m.report(&b)
	}
	return b.String()
}

// Counter is a monotonically non-decreasing event count.
type Counter struct {
	name string
	help string
	v    atomic.Int64
}

func (c *Counter) Inc() { c.v.Add(1) }

func (c *Counter) Value() int64 { return c.v.Load() }

func (c *Counter) report(b *strings.Builder) {
	b.WriteString("# HELP ")
	b.WriteString(c.name)
	b.WriteByte(' ')
	b.WriteString(c.help)
	b.WriteString("\n# TYPE ")
	b.WriteString(c.name)
	b.WriteString(" counter\n")
	b.WriteString(c.name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(c.v.Load(), 10))
	b.WriteByte('\n')
}

// Histogram records samples into fixed-width buckets. Bucket i holds
// samples v with i*interval < v <= (i+1)*interval; a sample landing
// exactly on a boundary k*interval belongs to bucket k-1. Samples above
// bucketCount*interval update only sum and count.
type Histogram struct {
	name     string
	help     string
	interval float64
	max      float64

	mu      sync.Mutex
	buckets []uint64
	sum     float64
	count   uint64
}

func (h *Histogram) Sample(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	if v > h.max {
		return
	}
	idx := int(v / h.interval)
	if float64(idx)*h.interval == v {
		idx--
	}
	if idx >= 0 && idx < len(h.buckets) {
		h.buckets[idx]++
	}
}

// Snapshot returns the bucket counts, sum and count at a point in time.
func (h *Histogram) Snapshot() ([]uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bs := make([]uint64, len(h.buckets))
	copy(bs, h.buckets)
	return bs, h.sum, h.count
}

func (h *Histogram) report(b *strings.Builder) {
	h.mu.Lock()
	buckets := make([]uint64, len(h.buckets))
	copy(buckets, h.buckets)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	b.WriteString("# HELP ")
	b.WriteString(h.name)
	b.WriteByte(' ')
	b.WriteString(h.help)
	b.WriteString("\n# TYPE ")
	b.WriteString(h.name)
	b.WriteString(" histogram\n")
	for i, n := range buckets {
		b.WriteString(h.name)
		b.WriteString(`_bucket{le="`)
		b.WriteString(formatBound(float64(i+1) * h.interval))
		b.WriteString(`"} `)
		b.WriteString(strconv.FormatUint(n, 10))
		b.WriteByte('\n')
	}
	b.WriteString(h.name)
	b.WriteString(`_bucket{le="+Inf"} `)
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')
	b.WriteString(h.name)
	b.WriteString("_sum ")
	b.WriteString(formatBound(sum))
	b.WriteByte('\n')
	b.WriteString(h.name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
