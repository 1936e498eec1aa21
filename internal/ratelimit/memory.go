package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often stale counters are dropped.
const sweepEvery = time.Minute

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter is a process-local fixed-window limiter.
type MemoryLimiter struct {
	mu        sync.Mutex
	counters  map[string]*memoryEntry
	lastSweep int64
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: make(map[string]*memoryEntry)}
}

// Allow counts one hit for key in the window of now.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	window, reset := windowOf(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(window)

	entry, ok := l.counters[key]
	if !ok || entry.window != window {
		entry = &memoryEntry{window: window}
		l.counters[key] = entry
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: reset}, nil
}

// sweepLocked drops counters from past windows. Callers hold l.mu.
func (l *MemoryLimiter) sweepLocked(window int64) {
	if window-l.lastSweep < int64(sweepEvery/time.Second) {
		return
	}
	for key, entry := range l.counters {
		if entry.window < window {
			delete(l.counters, key)
		}
	}
	l.lastSweep = window
}
