package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter counts hits per key inside one-second windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

// windowOf returns the window index and the instant it closes.
func windowOf(now time.Time) (int64, time.Time) {
	sec := now.Unix()
	return sec, time.Unix(sec+1, 0).UTC()
}
