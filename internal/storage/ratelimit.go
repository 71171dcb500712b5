package storage

import (
	"context"
	"fmt"
)

// IncrementRateBucket atomically inserts or increments the bucket for
// (identifier, action, windowStart) and returns the post-increment count.
func (s *Store) IncrementRateBucket(ctx context.Context, identifier, action string, windowStart, windowEnd int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO rate_limit (identifier, action, count, window_start, window_end)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (identifier, action, window_start)
		DO UPDATE SET count = rate_limit.count + 1
		RETURNING count`),
		identifier, action, windowStart, windowEnd).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment rate bucket: %w", err)
	}
	return count, nil
}

// SeedRateBucket writes an absolute count for a bucket. Used by tests and
// administrative tooling.
func (s *Store) SeedRateBucket(ctx context.Context, identifier, action string, count int, windowStart, windowEnd int64) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO rate_limit (identifier, action, count, window_start, window_end)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identifier, action, window_start)
		DO UPDATE SET count = excluded.count`),
		identifier, action, count, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("seed rate bucket: %w", err)
	}
	return nil
}

// DeleteExpiredRateBuckets drops buckets whose window closed at or before
// the given epoch second.
func (s *Store) DeleteExpiredRateBuckets(ctx context.Context, nowUnix int64) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM rate_limit WHERE window_end <= ?`), nowUnix)
	if err != nil {
		return fmt.Errorf("gc rate buckets: %w", err)
	}
	return nil
}
