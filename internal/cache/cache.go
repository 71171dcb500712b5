// Package cache is the write-through cache in front of the pod, stream,
// and record hot paths. Entries are invalidated after the authoritative
// write commits, so a miss always observes post-commit state.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Pool names. Each pool has its own TTL.
const (
	PoolPods          = "pods"
	PoolStreams       = "streams"
	PoolSingleRecords = "singleRecords"
	PoolRecordLists   = "recordLists"
)

type Adapter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ClearPattern removes every key matching the pattern. Patterns are a
	// literal prefix followed by "*".
	ClearPattern(ctx context.Context, pattern string) error
}

type TTLs struct {
	Pods          time.Duration
	Streams       time.Duration
	SingleRecords time.Duration
	RecordLists   time.Duration
}

type Cache struct {
	adapter Adapter
	ttls    TTLs
	stats   Stats
	group   singleflight.Group
}

// New returns a cache over the adapter. A nil adapter disables caching;
// every Get misses and every Set is a no-op.
func New(adapter Adapter, ttls TTLs) *Cache {
	return &Cache{adapter: adapter, ttls: ttls}
}

func (c *Cache) Enabled() bool { return c != nil && c.adapter != nil }

func (c *Cache) ttlFor(pool string) time.Duration {
	switch pool {
	case PoolPods:
		return c.ttls.Pods
	case PoolStreams:
		return c.ttls.Streams
	case PoolSingleRecords:
		return c.ttls.SingleRecords
	default:
		return c.ttls.RecordLists
	}
}

func (c *Cache) Get(ctx context.Context, pool, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	value, ok, err := c.adapter.Get(ctx, key)
	if err != nil || !ok {
		c.stats.miss(pool)
		return nil, false
	}
	c.stats.hit(pool)
	return value, true
}

func (c *Cache) Set(ctx context.Context, pool, key string, value []byte) {
	if !c.Enabled() {
		return
	}
	if err := c.adapter.Set(ctx, key, value, c.ttlFor(pool)); err == nil {
		c.stats.set(pool)
	}
}

func (c *Cache) Clear(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	_ = c.adapter.Delete(ctx, key)
}

func (c *Cache) ClearPattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}
	_ = c.adapter.ClearPattern(ctx, pattern)
}

// Do collapses concurrent loads of the same key.
func (c *Cache) Do(key string, fn func() (any, error)) (any, error) {
	if c == nil {
		return fn()
	}
	v, err, _ := c.group.Do(key, func() (any, error) { return fn() })
	return v, err
}

func (c *Cache) Snapshot() StatsSnapshot {
	if c == nil {
		return StatsSnapshot{}
	}
	return c.stats.snapshot()
}

// Key scheme.

func PodKey(pod string) string { return "pod:" + pod }

func StreamKey(pod, path string) string { return "stream:" + pod + ":" + path }

func RecordKey(streamID, selector string) string { return "record:" + streamID + ":" + selector }

func RecordListKey(streamID, params string) string { return "recordList:" + streamID + ":" + params }

// InvalidatePod flushes the pod entry, every stream entry under the pod,
// and, since record keys are stream-scoped, the record pools wholesale.
// Pod-level changes are rare enough that the broad flush is fine.
func (c *Cache) InvalidatePod(ctx context.Context, pod string) {
	c.Clear(ctx, PodKey(pod))
	c.ClearPattern(ctx, "stream:"+pod+":*")
	c.ClearPattern(ctx, "record:*")
	c.ClearPattern(ctx, "recordList:*")
}

// InvalidateStream flushes the stream entry and everything keyed by its id.
func (c *Cache) InvalidateStream(ctx context.Context, pod, path, streamID string) {
	c.Clear(ctx, StreamKey(pod, path))
	c.ClearPattern(ctx, "record:"+streamID+":*")
	c.ClearPattern(ctx, "recordList:"+streamID+":*")
}

// InvalidateRecord flushes the named record entry and all list keys for
// the stream. Appends change list results even when no cached single
// record exists.
func (c *Cache) InvalidateRecord(ctx context.Context, streamID, name string) {
	c.Clear(ctx, RecordKey(streamID, "name:"+name))
	c.ClearPattern(ctx, "record:"+streamID+":idx:*")
	c.ClearPattern(ctx, "recordList:"+streamID+":*")
}
