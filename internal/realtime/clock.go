// Package realtime provides the fixed-rate scheduling class the audio tick
// runs in.
package realtime

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"
)

// Clock calls tick at a fixed rate until ctx is done. Implementations must
// never call tick concurrently with itself.
type Clock interface {
	Run(ctx context.Context, tick func()) error
}

// Period returns the tick period for rate ticks per second.
func Period(rate int) time.Duration {
	return time.Second / time.Duration(rate)
}

// Stats counts a clock's scheduling history.
type Stats struct {
	Ticks    uint64 // ticks delivered
	Overruns uint64 // times the clock fell more than MaxLag behind
	Dropped  uint64 // ticks skipped to recover from overruns
}

// Defaults for HostClock.
const (
	DefaultMaxLag  = 256
	DefaultQuantum = 500 * time.Microsecond
)

// HostClock paces ticks against the wall clock on a general purpose OS. The
// tick goroutine is locked to its OS thread. Between wakeups it runs every
// tick that has come due, so individual ticks jitter by up to Quantum but
// the long-run rate is exact. When more than MaxLag ticks are due at once
// the backlog is dropped and counted as an overrun.
type HostClock struct {
	Rate    int
	MaxLag  int           // DefaultMaxLag when zero
	Quantum time.Duration // DefaultQuantum when zero

	ticks    atomic.Uint64
	overruns atomic.Uint64
	dropped  atomic.Uint64
}

// Run implements Clock.
func (c *HostClock) Run(ctx context.Context, tick func()) error {
	if c.Rate <= 0 {
		return errors.New("realtime: clock rate must be positive")
	}
	maxLag := uint64(c.MaxLag)
	if maxLag == 0 {
		maxLag = DefaultMaxLag
	}
	quantum := c.Quantum
	if quantum <= 0 {
		quantum = DefaultQuantum
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	period := Period(c.Rate)
	start := time.Now()
	var done uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		due := uint64(time.Since(start) / period)
		if lag := due - done; due > done && lag > maxLag {
			c.overruns.Add(1)
			c.dropped.Add(lag)
			done = due
		}
		for done < due {
			tick()
			done++
			c.ticks.Add(1)
		}
		time.Sleep(quantum)
	}
}

// Stats returns a snapshot of the counters. It may be called while Run is
// active.
func (c *HostClock) Stats() Stats {
	return Stats{
		Ticks:    c.ticks.Load(),
		Overruns: c.overruns.Load(),
		Dropped:  c.dropped.Load(),
	}
}

// Counter is a Clock that delivers exactly N ticks back to back, then
// returns nil. It ignores wall time and is meant for offline rendering.
type Counter struct {
	N int
}

// Run implements Clock.
func (c Counter) Run(ctx context.Context, tick func()) error {
	for i := range c.N {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tick()
	}
	return nil
}
