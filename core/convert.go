package core

import (
	"math"
	"math/bits"
)

const (
	nsPerSecond = 1000000000
	usPerSecond = 1000000
)

// TimeConversion converts between timer ticks and wall-clock units for one
// tick frequency. Products are computed on 128 bits so the full uint64 tick
// range converts without intermediate overflow; results that do not fit are
// saturated to math.MaxUint64.
//
// A TimeConversion is only valid for the frequency it was built with. Clock
// tree changes require building a new one (see TimerAdapter.Recalibrate).
type TimeConversion struct {
	hz uint64
}

// NewTimeConversion returns the conversion for a tick frequency in Hz
func NewTimeConversion(hz uint32) TimeConversion {
	return TimeConversion{hz: uint64(hz)}
}

// Frequency returns the tick frequency in Hz
func (tc TimeConversion) Frequency() uint32 {
	return uint32(tc.hz)
}

// NsFromTicks converts ticks to nanoseconds, rounding down
func (tc TimeConversion) NsFromTicks(ticks uint64) uint64 {
	q, _ := mulDiv(ticks, nsPerSecond, tc.hz)
	return q
}

// TicksFromNs converts nanoseconds to ticks, rounding down
func (tc TimeConversion) TicksFromNs(ns uint64) uint64 {
	q, _ := mulDiv(ns, tc.hz, nsPerSecond)
	return q
}

// TicksFromNsCeil converts nanoseconds to ticks, rounding up
func (tc TimeConversion) TicksFromNsCeil(ns uint64) uint64 {
	q, rem := mulDiv(ns, tc.hz, nsPerSecond)
	if rem != 0 && q != math.MaxUint64 {
		q++
	}
	return q
}

// USFromTicks converts ticks to microseconds, rounding down
func (tc TimeConversion) USFromTicks(ticks uint64) uint64 {
	q, _ := mulDiv(ticks, usPerSecond, tc.hz)
	return q
}

// TicksFromUS converts microseconds to ticks, rounding down
func (tc TimeConversion) TicksFromUS(us uint64) uint64 {
	q, _ := mulDiv(us, tc.hz, usPerSecond)
	return q
}

// mulDiv returns a*b/d and the remainder. A zero divisor yields zero, an
// overflowing quotient saturates.
func mulDiv(a, b, d uint64) (uint64, uint64) {
	if d == 0 {
		return 0, 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return math.MaxUint64, 0
	}
	return bits.Div64(hi, lo, d)
}
