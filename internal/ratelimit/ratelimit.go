// Package ratelimit admits requests against per-identifier hourly windows.
// Windows are aligned on wall-clock hour boundaries; counters grow
// monotonically inside a window and reset across windows.
package ratelimit

import (
	"context"
	"time"
)

type Action string

const (
	ActionRead         Action = "read"
	ActionWrite        Action = "write"
	ActionPodCreate    Action = "pod_create"
	ActionStreamCreate Action = "stream_create"
)

type Limits struct {
	Read         int
	Write        int
	PodCreate    int
	StreamCreate int
}

func (l Limits) For(action Action) int {
	switch action {
	case ActionRead:
		return l.Read
	case ActionWrite:
		return l.Write
	case ActionPodCreate:
		return l.PodCreate
	case ActionStreamCreate:
		return l.StreamCreate
	default:
		return 0
	}
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

type Limiter interface {
	// Allow debits one unit for (identifier, action) in the current
	// window and reports whether the request may proceed.
	Allow(ctx context.Context, identifier string, action Action) (Result, error)
}

// Window returns the hourly bucket containing now.
func Window(now time.Time) (start, end time.Time) {
	start = now.UTC().Truncate(time.Hour)
	return start, start.Add(time.Hour)
}

// NoopLimiter admits everything. Used when rate_limits.adapter is "none".
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string, Action) (Result, error) {
	return Result{Allowed: true, Limit: -1, Remaining: -1}, nil
}
