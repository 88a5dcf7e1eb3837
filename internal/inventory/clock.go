package inventory

import (
	"sync/atomic"
	"time"
)

// Clock supplies the logical tick the refund window is measured in. Ticks
// are monotonically non-decreasing; the ledger only ever reads them.
type Clock interface {
	Tick() uint64
}

// ManualClock is advanced explicitly. Useful in tests and scripted hosts.
type ManualClock struct {
	n atomic.Uint64
}

func (c *ManualClock) Tick() uint64 { return c.n.Load() }

func (c *ManualClock) Advance(d uint64) { c.n.Add(d) }

// IntervalClock derives the tick from wall time elapsed since start: one
// tick per interval. time.Since uses the monotonic reading, so ticks never
// go backwards.
type IntervalClock struct {
	start    time.Time
	interval time.Duration
}

func NewIntervalClock(interval time.Duration) *IntervalClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &IntervalClock{start: time.Now(), interval: interval}
}

func (c *IntervalClock) Tick() uint64 {
	return uint64(time.Since(c.start) / c.interval)
}
