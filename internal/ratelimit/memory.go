package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryBucket struct {
	count int
	start time.Time
	end   time.Time
}

// MemoryLimiter keeps buckets in process memory. Suitable for single-node
// deployments and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	limits  Limits
	buckets map[string]*memoryBucket
	now     func() time.Time
}

func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		limits:  limits,
		buckets: make(map[string]*memoryBucket),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (l *MemoryLimiter) SetClock(now func() time.Time) { l.now = now }

func (l *MemoryLimiter) Allow(_ context.Context, identifier string, action Action) (Result, error) {
	limit := l.limits.For(action)
	if limit <= 0 {
		return Result{Allowed: true, Limit: -1, Remaining: -1}, nil
	}

	now := l.now()
	start, end := Window(now)
	key := fmt.Sprintf("%s|%s", identifier, action)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || !bucket.start.Equal(start) {
		bucket = &memoryBucket{start: start, end: end}
		l.buckets[key] = bucket
		l.sweepLocked(now)
	}
	bucket.count++

	remaining := limit - bucket.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   bucket.count <= limit,
		Limit:     limit,
		Remaining: remaining,
		Reset:     end,
	}, nil
}

// Seed sets an absolute count for the current window. Used by tests.
func (l *MemoryLimiter) Seed(identifier string, action Action, count int) {
	now := l.now()
	start, end := Window(now)
	l.mu.Lock()
	l.buckets[fmt.Sprintf("%s|%s", identifier, action)] = &memoryBucket{
		count: count, start: start, end: end,
	}
	l.mu.Unlock()
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if !bucket.end.After(now) {
			delete(l.buckets, key)
		}
	}
}
