package core

// OSTimer is what the kernel sees of the hardware timer: a monotonic tick
// source and a single next-wake deadline. *TimerAdapter implements it.
type OSTimer interface {
	GetTime() uint64
	IRQGetTime() uint64
	SetNextInterrupt(deadline uint64)
	IRQSetNextInterrupt(deadline uint64)
	SetWakeHandler(fn func() bool)
	Frequency() uint32
	Conversion() TimeConversion
}

// Global singleton used by kernel code.
var osTimer OSTimer

// RegisterOSTimer is called once by board code after the timer was
// initialized.
func RegisterOSTimer(t OSTimer) {
	osTimer = t
}

// MustOSTimer returns the registered timer or panics if missing.
func MustOSTimer() OSTimer {
	if osTimer == nil {
		panic("OS timer not registered")
	}
	return osTimer
}

// GetTime returns the current system time in timer ticks
func GetTime() uint64 {
	return MustOSTimer().GetTime()
}

// GetTimeNs returns the current system time in nanoseconds
func GetTimeNs() uint64 {
	t := MustOSTimer()
	return t.Conversion().NsFromTicks(t.GetTime())
}

// SetNextInterrupt programs the next wake, in ticks
func SetNextInterrupt(deadline uint64) {
	MustOSTimer().SetNextInterrupt(deadline)
}

// SetNextInterruptNs programs the next wake, in nanoseconds
func SetNextInterruptNs(ns uint64) {
	t := MustOSTimer()
	t.SetNextInterrupt(t.Conversion().TicksFromNsCeil(ns))
}

// SetWakeHandler installs the kernel wake callback on the registered timer.
// InitSleepQueue uses it to take over the single deadline.
func SetWakeHandler(fn func() bool) {
	MustOSTimer().SetWakeHandler(fn)
}

// TimerFrequency returns the tick frequency as the hardware is configured
// right now. Do not cache it across clock changes.
func TimerFrequency() uint32 {
	return MustOSTimer().Frequency()
}
