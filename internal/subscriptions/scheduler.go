package subscriptions

import (
	"context"
	"errors"
	"time"
)

// Start runs the daily loop in the background until ctx is done.
// When today's run time already passed, a catch-up run fires immediately.
func (m *Materializer) Start(ctx context.Context) {
	if m == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
	m.logger.Infof("subscription scheduler started (run-at=%02d:%02d %s)", m.hour, m.minute, m.loc)
}

// Wait blocks until the loop started by Start has returned, including any
// run in flight when ctx was cancelled.
func (m *Materializer) Wait() {
	if m == nil {
		return
	}
	m.wg.Wait()
}

func (m *Materializer) run(ctx context.Context) {
	now := m.now()
	if !m.todayAt(now).After(now) {
		m.fire(ctx)
	}

	for {
		wait := m.nextRun(m.now()).Sub(m.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.fire(ctx)
		}
	}
}

func (m *Materializer) fire(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	if _, err := m.RunOnce(runCtx, m.now()); err != nil && !errors.Is(err, ErrAlreadyRan) {
		m.logger.WithError(err).Warn("subscription scheduler: run failed")
	}
}

func (m *Materializer) todayAt(now time.Time) time.Time {
	local := now.In(m.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), m.hour, m.minute, 0, 0, m.loc)
}

// nextRun returns the first scheduled time strictly after now.
func (m *Materializer) nextRun(now time.Time) time.Time {
	next := m.todayAt(now)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
