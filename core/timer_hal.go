package core

// TimerHardware is the register-level capability set a timer peripheral must
// expose to be driven by TimerAdapter. Implementations are thin register
// translations with no logic of their own; every method may be called from
// interrupt context and none of them can fail.
//
// Implementations are passed to TimerAdapter as a type argument rather than
// stored behind an interface value, so the interrupt handler calls the
// accessors directly.
type TimerHardware interface {
	// CounterBits returns the width of the free-running counter (16 for a
	// FlexTimer). The counter wraps to zero after 1<<CounterBits ticks.
	CounterBits() uint

	// Counter returns the live counter value
	Counter() uint32

	// SetCounter loads the live counter. Peripherals that can only load the
	// counter through a staging register must perform the full sequence here.
	SetCounter(v uint32)

	// MatchRegister returns the compare target
	MatchRegister() uint32

	// SetMatchRegister writes the compare target
	SetMatchRegister(v uint32)

	// SetMatchInterrupt enables or disables the interrupt raised on a
	// compare match. The match flag itself is set by hardware regardless.
	SetMatchInterrupt(enabled bool)

	// OverflowFlag reports whether the counter wrapped since the flag was
	// last cleared
	OverflowFlag() bool

	// ClearOverflowFlag acknowledges a wrap. It must read the status register
	// and write it back with the flag cleared, in that order.
	ClearOverflowFlag()

	// MatchFlag reports whether a compare match happened since the flag was
	// last cleared
	MatchFlag() bool

	// ClearMatchFlag acknowledges a compare match, read-then-write like
	// ClearOverflowFlag
	ClearMatchFlag()

	// ForcePendingInterrupt raises the timer interrupt in software
	ForcePendingInterrupt()

	// Start enables counting without touching the configuration
	Start()

	// Stop disables counting without touching the configuration
	Stop()

	// Frequency returns the current tick frequency in Hz. It is computed from
	// the clock tree and prescaler on every call.
	Frequency() uint32

	// Init performs the one-time bring-up and leaves the counter stopped
	Init()
}
