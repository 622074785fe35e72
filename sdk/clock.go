package sdk

import (
	"strconv"
	"sync"
	"time"
)

// Clock supplies unix seconds; every time check in the engine goes through it.
type Clock interface {
	Now() int64
}

// SystemClock reads wall time.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock starts at the given unix second.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps to an absolute time.
func (c *ManualClock) Set(ts int64) {
	c.mu.Lock()
	c.now = ts
	c.mu.Unlock()
}

// Advance moves forward by d (whole seconds).
func (c *ManualClock) Advance(d time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += int64(d / time.Second)
	return c.now
}

// FixedClock pins Now to a parsed timestamp, used by the cli --at flag.
type FixedClock int64

func (c FixedClock) Now() int64 { return int64(c) }

// ParseTimestamp accepts unix seconds or iso-ish strings.
// Example payload: sdk.ParseTimestamp("2025-09-03T00:00:00")
func ParseTimestamp(val string) (int64, bool) {
	if v, err := strconv.ParseInt(val, 10, 64); err == nil {
		return v, true
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.Unix(), true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", val, time.UTC); err == nil {
		return t.Unix(), true
	}
	return 0, false
}
