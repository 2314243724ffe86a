package core

// TimerState is the run state reported by TimerAdapter.State
type TimerState uint8

const (
	TimerStopped TimerState = iota // counter not clocked
	TimerRunning                   // counting, no deadline pending
	TimerArmed                     // counting, one deadline pending
)

func (s TimerState) String() string {
	switch s {
	case TimerStopped:
		return "stopped"
	case TimerRunning:
		return "running"
	case TimerArmed:
		return "armed"
	}
	return "unknown"
}

// TimerStats counts the events processed by the interrupt handler
type TimerStats struct {
	Overflows uint32 // wraps accounted into virtual time
	Matches   uint32 // compare matches acknowledged while armed
	Forced    uint32 // software-pended interrupts for late deadlines
	Wakes     uint32 // wake callbacks run
}

// TimerAdapter turns a fixed-width wrapping hardware counter into a 64-bit
// monotonic tick count and a single-deadline wake mechanism.
//
// Virtual time is upper + counter, where upper is the number of serviced
// wraps times the counter period. A wrap that the hardware has flagged but
// the handler has not yet serviced is accounted for at read time.
//
// The deadline compare register is only armed while the deadline lies in
// the period accounted by upper; farther deadlines are armed by the overflow
// that opens their period.
//
// A TimerAdapter is meant to be declared as a package-level variable by the
// board package and initialized once at boot with Init.
type TimerAdapter[T TimerHardware] struct {
	hw T

	period uint64 // 1 << counter bits
	mask   uint64 // period - 1

	upper uint64 // virtual time of the last serviced wrap

	deadline   uint64
	pending    bool // a deadline is set and has not fired
	matchArmed bool // compare register holds the deadline and its IRQ is on
	forced     bool // a software-pended interrupt is outstanding

	running bool

	wake func() bool
	tc   TimeConversion

	stats TimerStats
}

// Init binds the adapter to its hardware, brings the peripheral up and starts
// counting from virtual time zero.
func (a *TimerAdapter[T]) Init(hw T) {
	a.hw = hw
	a.period = uint64(1) << hw.CounterBits()
	a.mask = a.period - 1
	a.upper = 0
	a.pending = false
	a.matchArmed = false
	a.forced = false
	a.stats = TimerStats{}

	hw.Init()
	a.tc = NewTimeConversion(hw.Frequency())

	hw.Start()
	a.running = true
}

// SetWakeHandler sets the callback run from the interrupt handler when the
// pending deadline is reached. The callback returns true when it made a
// thread runnable and a context switch is needed.
func (a *TimerAdapter[T]) SetWakeHandler(fn func() bool) {
	state := disableInterrupts()
	a.wake = fn
	restoreInterrupts(state)
}

// Start resumes counting
func (a *TimerAdapter[T]) Start() {
	state := disableInterrupts()
	a.hw.Start()
	a.running = true
	restoreInterrupts(state)
}

// Stop halts counting. Virtual time and any pending deadline are kept.
func (a *TimerAdapter[T]) Stop() {
	state := disableInterrupts()
	a.hw.Stop()
	a.running = false
	restoreInterrupts(state)
}

// State reports the current run state
func (a *TimerAdapter[T]) State() TimerState {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	switch {
	case !a.running:
		return TimerStopped
	case a.pending:
		return TimerArmed
	}
	return TimerRunning
}

// Stats returns a snapshot of the handler counters
func (a *TimerAdapter[T]) Stats() TimerStats {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return a.stats
}

// Period returns the counter wrap period in ticks
func (a *TimerAdapter[T]) Period() uint64 {
	return a.period
}

// GetTime returns the current virtual time in ticks. Safe from any context.
func (a *TimerAdapter[T]) GetTime() uint64 {
	state := disableInterrupts()
	t := a.IRQGetTime()
	restoreInterrupts(state)
	return t
}

// IRQGetTime returns the current virtual time. Interrupts must be disabled
// or the caller must be the timer interrupt itself.
func (a *TimerAdapter[T]) IRQGetTime() uint64 {
	counter := a.hw.Counter()
	if a.hw.OverflowFlag() {
		// A wrap is pending. The counter is read again after the flag so the
		// value belongs to the new period whichever side of the wrap the first
		// read landed on.
		counter = a.hw.Counter()
		return a.upper + a.period + uint64(counter)
	}
	return a.upper + uint64(counter)
}

// SetNextInterrupt requests a wake no later than deadline, replacing any
// deadline already pending.
func (a *TimerAdapter[T]) SetNextInterrupt(deadline uint64) {
	state := disableInterrupts()
	a.IRQSetNextInterrupt(deadline)
	restoreInterrupts(state)
}

// IRQSetNextInterrupt is SetNextInterrupt for callers that already run with
// interrupts disabled, including the wake callback.
func (a *TimerAdapter[T]) IRQSetNextInterrupt(deadline uint64) {
	a.disarm()
	a.deadline = deadline
	a.pending = true
	RecordEvent(EvtDeadline, deadline, a.upper)

	switch {
	case deadline <= a.IRQGetTime():
		a.force()
	case deadline&^a.mask == a.upper:
		a.arm()
	}
	// Otherwise the deadline lies in a later period and is armed by the
	// overflow that opens it.
}

// IRQHandler services one timer interrupt. Overflow is accounted before the
// deadline is compared. Returns whether the wake callback asked for a context
// switch.
func (a *TimerAdapter[T]) IRQHandler() bool {
	hw := a.hw

	// A higher priority interrupt reading the time must not observe the flag
	// cleared with upper not yet advanced.
	state := disableInterrupts()
	if hw.OverflowFlag() {
		hw.ClearOverflowFlag()
		a.upper += a.period
		a.stats.Overflows++
		RecordEvent(EvtOverflow, a.upper, 0)

		if a.pending && !a.matchArmed && a.deadline&^a.mask == a.upper {
			a.arm()
		}
	}
	restoreInterrupts(state)

	if a.matchArmed && hw.MatchFlag() {
		hw.ClearMatchFlag()
		a.stats.Matches++
		RecordEvent(EvtMatch, a.upper|uint64(hw.MatchRegister()), a.deadline)
	}
	a.forced = false

	if !a.pending {
		return false
	}
	now := a.IRQGetTime()
	if now < a.deadline {
		return false
	}

	a.pending = false
	a.disarm()
	a.stats.Wakes++
	RecordEvent(EvtWake, now, a.deadline)

	if a.wake == nil {
		return false
	}
	return a.wake()
}

// IRQSetTime moves virtual time forward to t, for instance after the counter
// was stopped across a low-power period. Requests that would move time
// backwards are refused and false is returned.
func (a *TimerAdapter[T]) IRQSetTime(t uint64) bool {
	if t < a.IRQGetTime() {
		return false
	}
	hw := a.hw
	if a.running {
		hw.Stop()
	}
	if hw.OverflowFlag() {
		hw.ClearOverflowFlag()
	}
	a.upper = t &^ a.mask
	hw.SetCounter(uint32(t & a.mask))
	RecordEvent(EvtSetTime, t, 0)

	if a.pending {
		a.IRQSetNextInterrupt(a.deadline)
	}
	if a.running {
		hw.Start()
	}
	return true
}

// SetTime is IRQSetTime with interrupts disabled around it
func (a *TimerAdapter[T]) SetTime(t uint64) bool {
	state := disableInterrupts()
	ok := a.IRQSetTime(t)
	restoreInterrupts(state)
	return ok
}

// Frequency returns the tick frequency as currently configured in hardware
func (a *TimerAdapter[T]) Frequency() uint32 {
	return a.hw.Frequency()
}

// Conversion returns the tick/time conversion computed at Init or at the
// last Recalibrate
func (a *TimerAdapter[T]) Conversion() TimeConversion {
	return a.tc
}

// Recalibrate re-reads the tick frequency. Call it after any clock tree or
// prescaler change.
func (a *TimerAdapter[T]) Recalibrate() {
	tc := NewTimeConversion(a.hw.Frequency())
	state := disableInterrupts()
	a.tc = tc
	restoreInterrupts(state)
}

// GetTimeNs returns virtual time converted to nanoseconds
func (a *TimerAdapter[T]) GetTimeNs() uint64 {
	return a.tc.NsFromTicks(a.GetTime())
}

// SetNextInterruptNs sets the deadline in nanoseconds, rounding up so the
// wake is never early
func (a *TimerAdapter[T]) SetNextInterruptNs(ns uint64) {
	a.SetNextInterrupt(a.tc.TicksFromNsCeil(ns))
}

// arm loads the deadline into the compare register and enables the match
// interrupt. The deadline must lie in the period accounted by upper.
func (a *TimerAdapter[T]) arm() {
	hw := a.hw
	hw.SetMatchRegister(uint32(a.deadline & a.mask))
	// A flag left over from an earlier period would fire as soon as the
	// interrupt is enabled.
	if hw.MatchFlag() {
		hw.ClearMatchFlag()
	}
	hw.SetMatchInterrupt(true)
	a.matchArmed = true

	// The counter may have passed the target while it was being written, in
	// which case the match will not happen until the next period.
	if a.IRQGetTime() >= a.deadline {
		a.force()
	}
}

func (a *TimerAdapter[T]) disarm() {
	if a.matchArmed {
		a.hw.SetMatchInterrupt(false)
		a.matchArmed = false
	}
}

func (a *TimerAdapter[T]) force() {
	if a.forced {
		return
	}
	a.forced = true
	a.stats.Forced++
	RecordEvent(EvtForced, a.deadline, 0)
	a.hw.ForcePendingInterrupt()
}
