//go:build !tinygo

package core

// State is the saved interrupt mask on regular Go
type State uint32

// irqMaskDepth emulates PRIMASK for host builds: it is non-zero while a
// critical section is open. Host code is single threaded, so a plain counter
// is enough.
var irqMaskDepth uint32

// irqNesting counts handler activations entered through ServiceInterrupt
var irqNesting uint32

// disableInterrupts opens a critical section and returns the previous state
func disableInterrupts() State {
	s := State(irqMaskDepth)
	irqMaskDepth++
	return s
}

// restoreInterrupts closes the critical section opened by disableInterrupts
func restoreInterrupts(state State) {
	irqMaskDepth = uint32(state)
}

// InterruptsMasked reports whether a critical section is open. Host builds
// only; the simulator uses it to hold back interrupt delivery the way
// PRIMASK does on the target.
func InterruptsMasked() bool {
	return irqMaskDepth != 0
}

func enterISR() {
	irqNesting++
}

func exitISR() {
	irqNesting--
}

// InISR reports whether the caller runs inside the timer interrupt
func InISR() bool {
	return irqNesting != 0
}
