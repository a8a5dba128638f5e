package zring

import (
	"sync/atomic"
	"time"
)

// logLimiter allows one event per interval. Safe for concurrent use.
type logLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func newLogLimiter(interval time.Duration) *logLimiter {
	return &logLimiter{interval: interval}
}

// Allow reports whether the caller won the right to log this event.
func (t *logLimiter) Allow() bool {
	now := time.Now().UnixNano()
	last := t.last.Load()
	if now-last < int64(t.interval) {
		return false
	}
	return t.last.CompareAndSwap(last, now)
}
