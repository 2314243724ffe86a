package mk22

// DefaultCoreClock is the core clock set up by the board: 119.808 MHz, so
// that a 59.904 MHz bus clock divided by 4 gives a whole number of FlexTimer
// ticks per millisecond (14976).
const DefaultCoreClock = 119808000

// SystemCoreClock is the CPU clock in Hz, kept up to date by the code that
// reprograms the MCG (boot, low-power transitions). Everything else in the
// clock tree is read back from the SIM dividers.
var SystemCoreClock uint32 = DefaultCoreClock

// ClockTree derives the internal clocks from SystemCoreClock and
// SIM_CLKDIV1. Nothing is cached: every call reads the dividers.
type ClockTree[B Bus] struct {
	bus B
}

// NewClockTree returns the clock tree view for a bus
func NewClockTree[B Bus](bus B) ClockTree[B] {
	return ClockTree[B]{bus: bus}
}

// MCGOutClock is the clock feeding the OUTDIV dividers. The core clock is
// MCGOUTCLK / (OUTDIV1+1), so it is recovered by multiplying back.
func (c ClockTree[B]) MCGOutClock() uint32 {
	div := c.bus.Load32(SIMBase + SIMCLKDIV1)
	outdiv1 := (div&SIM_CLKDIV1_OUTDIV1_MASK)>>SIM_CLKDIV1_OUTDIV1_SHIFT + 1
	return SystemCoreClock * outdiv1
}

// BusClock is the peripheral bus clock, MCGOUTCLK / (OUTDIV2+1). The
// FlexTimers are clocked from it.
func (c ClockTree[B]) BusClock() uint32 {
	div := c.bus.Load32(SIMBase + SIMCLKDIV1)
	outdiv2 := (div&SIM_CLKDIV1_OUTDIV2_MASK)>>SIM_CLKDIV1_OUTDIV2_SHIFT + 1
	return c.MCGOutClock() / outdiv2
}

// SetDividers programs OUTDIV1, OUTDIV2 and OUTDIV4 (each is divide-by n+1).
// Callers changing the core divider must update SystemCoreClock and
// recalibrate timers afterwards.
func (c ClockTree[B]) SetDividers(outdiv1, outdiv2, outdiv4 uint32) {
	c.bus.Store32(SIMBase+SIMCLKDIV1,
		(outdiv1<<SIM_CLKDIV1_OUTDIV1_SHIFT)&SIM_CLKDIV1_OUTDIV1_MASK|
			(outdiv2<<SIM_CLKDIV1_OUTDIV2_SHIFT)&SIM_CLKDIV1_OUTDIV2_MASK|
			(outdiv4<<SIM_CLKDIV1_OUTDIV4_SHIFT)&SIM_CLKDIV1_OUTDIV4_MASK)
}
