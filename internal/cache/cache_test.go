package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() *Cache {
	return New(NewMemoryAdapter(), TTLs{
		Pods: time.Minute, Streams: time.Minute,
		SingleRecords: time.Minute, RecordLists: time.Minute,
	})
}

func TestGetSetAndStats(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, PoolPods, PodKey("alice"))
	assert.False(t, ok)

	c.Set(ctx, PoolPods, PodKey("alice"), []byte("v"))
	value, ok := c.Get(ctx, PoolPods, PodKey("alice"))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.PodsHit)
	assert.Equal(t, int64(1), snap.PodsMiss)
	assert.Equal(t, int64(1), snap.PodsSet)
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	_, ok := c.Get(ctx, PoolPods, "k")
	assert.False(t, ok)
	c.Set(ctx, PoolPods, "k", []byte("v"))
	c.Clear(ctx, "k")
	c.ClearPattern(ctx, "k*")
	c.InvalidatePod(ctx, "alice")

	v, err := c.Do("k", func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Zero(t, c.Snapshot())
}

func TestMemoryAdapterTTL(t *testing.T) {
	adapter := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok, err := adapter.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, adapter.Set(ctx, "forever", []byte("v"), 0))
	_, ok, err = adapter.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidateStream(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, PoolStreams, StreamKey("alice", "blog"), []byte("s"))
	c.Set(ctx, PoolSingleRecords, RecordKey("sid-1", "name:post"), []byte("r"))
	c.Set(ctx, PoolRecordLists, RecordListKey("sid-1", "list:100:0"), []byte("l"))
	c.Set(ctx, PoolSingleRecords, RecordKey("sid-2", "name:post"), []byte("other"))

	c.InvalidateStream(ctx, "alice", "blog", "sid-1")

	_, ok := c.Get(ctx, PoolStreams, StreamKey("alice", "blog"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolSingleRecords, RecordKey("sid-1", "name:post"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolRecordLists, RecordListKey("sid-1", "list:100:0"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolSingleRecords, RecordKey("sid-2", "name:post"))
	assert.True(t, ok)
}

func TestInvalidateRecord(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, PoolSingleRecords, RecordKey("sid-1", "name:post"), []byte("r"))
	c.Set(ctx, PoolSingleRecords, RecordKey("sid-1", "idx:3"), []byte("i"))
	c.Set(ctx, PoolSingleRecords, RecordKey("sid-1", "name:other"), []byte("keep"))
	c.Set(ctx, PoolRecordLists, RecordListKey("sid-1", "list:100:0"), []byte("l"))

	c.InvalidateRecord(ctx, "sid-1", "post")

	_, ok := c.Get(ctx, PoolSingleRecords, RecordKey("sid-1", "name:post"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolSingleRecords, RecordKey("sid-1", "idx:3"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolRecordLists, RecordListKey("sid-1", "list:100:0"))
	assert.False(t, ok)
	// other names stay cached
	_, ok = c.Get(ctx, PoolSingleRecords, RecordKey("sid-1", "name:other"))
	assert.True(t, ok)
}

func TestInvalidatePod(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, PoolPods, PodKey("alice"), []byte("p"))
	c.Set(ctx, PoolStreams, StreamKey("alice", "blog"), []byte("s"))
	c.Set(ctx, PoolPods, PodKey("bob"), []byte("p2"))

	c.InvalidatePod(ctx, "alice")

	_, ok := c.Get(ctx, PoolPods, PodKey("alice"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolStreams, StreamKey("alice", "blog"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, PoolPods, PodKey("bob"))
	assert.True(t, ok)
}
