// Package clock is the only impure leaf of the domain: it reads wall-clock
// time in milliseconds and derives day buckets from it.
package clock

import (
	"sync/atomic"
	"time"
)

// MillisPerDay is the width of a day bucket.
const MillisPerDay uint64 = 86_400_000

// Clock returns the current time in milliseconds since the Unix epoch.
type Clock interface {
	NowMillis() uint64
}

// System reads the host wall clock.
type System struct{}

// NowMillis panics when the host clock predates the Unix epoch.
func (System) NowMillis() uint64 {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		panic("clock: system time is before the unix epoch")
	}
	return uint64(ms)
}

// DayOf floors ms to the start of its day bucket.
func DayOf(ms uint64) uint64 {
	return ms - ms%MillisPerDay
}

// IsDay reports whether ms lies on a day boundary.
func IsDay(ms uint64) bool {
	return ms%MillisPerDay == 0
}

// Now takes a single sample from c and returns it along with its day bucket.
func Now(c Clock) (now, day uint64) {
	now = c.NowMillis()
	return now, DayOf(now)
}

// Fixed is a manually driven clock for tests and load generation.
type Fixed struct {
	ms atomic.Uint64
}

// NewFixed returns a Fixed clock set to ms.
func NewFixed(ms uint64) *Fixed {
	f := &Fixed{}
	f.ms.Store(ms)
	return f
}

func (f *Fixed) NowMillis() uint64 { return f.ms.Load() }

// Set moves the clock to ms.
func (f *Fixed) Set(ms uint64) { f.ms.Store(ms) }

// Advance moves the clock forward by d and returns the new reading.
func (f *Fixed) Advance(d time.Duration) uint64 {
	return f.ms.Add(uint64(d.Milliseconds()))
}

// Monotonic wraps a clock so that successive readings strictly increase.
// Two writes landing in the same millisecond get distinct timestamps.
type Monotonic struct {
	base Clock
	last atomic.Uint64
}

// NewMonotonic wraps base. Wrapping a Monotonic returns it unchanged.
func NewMonotonic(base Clock) *Monotonic {
	if m, ok := base.(*Monotonic); ok {
		return m
	}
	return &Monotonic{base: base}
}

func (m *Monotonic) NowMillis() uint64 {
	for {
		now := m.base.NowMillis()
		prev := m.last.Load()
		if now <= prev {
			now = prev + 1
		}
		if m.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}
