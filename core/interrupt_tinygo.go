//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// The ISR prologue generated by TinyGo already saved the context; nothing to
// track beyond what interrupt.In reports.
func enterISR() {}

func exitISR() {}

// InISR reports whether the caller runs inside an interrupt handler
func InISR() bool {
	return interrupt.In()
}
