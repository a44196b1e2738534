package crdt

import (
	"sync/atomic"
	"time"
)

// Clock produces the timestamps last-write-wins registers order by.
// A replica owns one clock; See feeds it every remote timestamp the
// replica merges in, so local writes never fall behind writes the
// replica has already observed.
type Clock interface {
	Now() int64
	See(t int64)
}

// WallClock issues unix-millisecond timestamps, bumped past any
// timestamp seen so far. Safe for concurrent use.
type WallClock struct {
	last atomic.Int64
}

func (wc *WallClock) Now() int64 {
	now := time.Now().UnixMilli()
	for {
		last := wc.last.Load()
		if now <= last {
			now = last + 1
		}
		if wc.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

func (wc *WallClock) See(t int64) {
	for {
		last := wc.last.Load()
		if t <= last || wc.last.CompareAndSwap(last, t) {
			return
		}
	}
}

// LogicalClock is a Lamport counter for deterministic tests and for
// deployments that do not trust wall time at all.
type LogicalClock struct {
	last atomic.Int64
}

func (lc *LogicalClock) Now() int64 {
	return lc.last.Add(1)
}

func (lc *LogicalClock) See(t int64) {
	for {
		last := lc.last.Load()
		if t <= last || lc.last.CompareAndSwap(last, t) {
			return
		}
	}
}
