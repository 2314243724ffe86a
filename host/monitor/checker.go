// Package monitor decodes the timer trace sent by the firmware (or written
// by the simulator) and checks it for the properties the OS timer
// guarantees: virtual time never goes backwards and wakes are never early
// nor later than a configured slack.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ostimer/protocol"
)

var (
	ErrTimeWentBack = errors.New("virtual time went backwards")
	ErrEarlyWake    = errors.New("wake before its deadline")
	ErrLateWake     = errors.New("wake later than allowed")
)

// DefaultMaxLate is the wake slack accepted by default, in ticks
const DefaultMaxLate = 1

// Stats summarizes a checked trace
type Stats struct {
	Events     uint64
	Overflows  uint64
	Deadlines  uint64
	Matches    uint64
	Forced     uint64
	Wakes      uint64
	Dropped    uint64 // events lost in the firmware ring
	Violations uint64
	MaxLate    uint64 // worst wake latency seen, in ticks
}

// Checker validates a sequence of trace events
type Checker struct {
	logger  *slog.Logger
	maxLate uint64

	now      uint64 // latest virtual time observed
	haveNow  bool
	base     uint64 // latest overflow period base
	haveBase bool
	stats    Stats
}

// NewChecker returns a checker allowing wakes up to maxLate ticks after
// their deadline. A nil logger discards output.
func NewChecker(logger *slog.Logger, maxLate uint64) *Checker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checker{
		logger:  logger,
		maxLate: maxLate,
	}
}

// Stats returns the counters accumulated so far
func (c *Checker) Stats() Stats {
	return c.stats
}

// Check processes one event. It returns a wrapped Err* value when the event
// violates a timer property; checking can continue after an error.
func (c *Checker) Check(ev protocol.Event) error {
	c.stats.Events++

	switch ev.Kind {
	case protocol.EventOverflow:
		c.stats.Overflows++
		// Period bases only move forward
		if c.haveBase && ev.Time <= c.base {
			return c.violation(ev, fmt.Errorf("overflow base %d after %d: %w", ev.Time, c.base, ErrTimeWentBack))
		}
		c.base = ev.Time
		c.haveBase = true

	case protocol.EventDeadline:
		c.stats.Deadlines++

	case protocol.EventMatch:
		c.stats.Matches++

	case protocol.EventForced:
		c.stats.Forced++

	case protocol.EventWake:
		c.stats.Wakes++
		if err := c.observe(ev); err != nil {
			return err
		}
		if ev.Time < ev.Value {
			return c.violation(ev, fmt.Errorf("woke at %d for %d: %w", ev.Time, ev.Value, ErrEarlyWake))
		}
		late := ev.Time - ev.Value
		if late > c.stats.MaxLate {
			c.stats.MaxLate = late
		}
		if late > c.maxLate {
			return c.violation(ev, fmt.Errorf("woke %d ticks after %d: %w", late, ev.Value, ErrLateWake))
		}

	case protocol.EventSetTime:
		if err := c.observe(ev); err != nil {
			return err
		}
		// The next overflow opens the period after the new time
		c.base = ev.Time
		c.haveBase = true

	case protocol.EventDropped:
		c.stats.Dropped += ev.Value
		c.logger.Warn("firmware dropped trace events", "count", ev.Value)

	default:
		c.logger.Debug("unknown event kind", "kind", ev.Kind)
	}

	c.logger.Debug("event", "kind", protocol.EventName(ev.Kind), "time", ev.Time, "value", ev.Value)
	return nil
}

// observe advances the latest known time, failing if it would go back
func (c *Checker) observe(ev protocol.Event) error {
	if c.haveNow && ev.Time < c.now {
		return c.violation(ev, fmt.Errorf("%s at %d after %d: %w",
			protocol.EventName(ev.Kind), ev.Time, c.now, ErrTimeWentBack))
	}
	c.now = ev.Time
	c.haveNow = true
	return nil
}

func (c *Checker) violation(ev protocol.Event, err error) error {
	c.stats.Violations++
	c.logger.Error("timer property violated", "event", ev.String(), "err", err)
	return err
}
