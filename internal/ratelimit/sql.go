package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/webpods/webpods/internal/storage"
)

// SQLLimiter keeps buckets in the rate_limit table so every server
// process debits the same counters. Expired buckets are garbage-collected
// opportunistically on the write path.
type SQLLimiter struct {
	store  *storage.Store
	limits Limits
	calls  atomic.Int64
	now    func() time.Time
}

func NewSQLLimiter(store *storage.Store, limits Limits) *SQLLimiter {
	return &SQLLimiter{store: store, limits: limits, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (l *SQLLimiter) SetClock(now func() time.Time) { l.now = now }

func (l *SQLLimiter) Allow(ctx context.Context, identifier string, action Action) (Result, error) {
	limit := l.limits.For(action)
	if limit <= 0 {
		return Result{Allowed: true, Limit: -1, Remaining: -1}, nil
	}

	now := l.now()
	start, end := Window(now)

	count, err := l.store.IncrementRateBucket(ctx, identifier, string(action), start.Unix(), end.Unix())
	if err != nil {
		return Result{}, fmt.Errorf("rate limit debit: %w", err)
	}

	if l.calls.Add(1)%256 == 0 {
		_ = l.store.DeleteExpiredRateBuckets(ctx, now.Unix())
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		Reset:     end,
	}, nil
}
