package core

// contextSwitchHook is run on interrupt exit when a wake made a thread
// runnable. The kernel port installs it; on Cortex-M it pends PendSV so the
// switch happens when the exception returns.
var contextSwitchHook func()

// SetContextSwitchHook is called by the kernel port to register the switch
// request used by ServiceInterrupt.
func SetContextSwitchHook(fn func()) {
	contextSwitchHook = fn
}

// ServiceInterrupt is the body of the timer interrupt vector. The board binds
// it to the timer IRQ line; the compiler-generated prologue and epilogue save
// and restore the interrupted context around it. If the adapter's wake
// callback asks for a context switch, the switch is requested before
// returning so the epilogue resumes the newly selected thread.
func ServiceInterrupt[T TimerHardware](a *TimerAdapter[T]) {
	enterISR()
	switchNeeded := a.IRQHandler()
	if switchNeeded && contextSwitchHook != nil {
		contextSwitchHook()
	}
	exitISR()
}
