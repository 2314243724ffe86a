package mk22

// FlexTimer prescaler chosen at init: 59.904 MHz bus clock / 4 = 14.976 MHz,
// a whole number of ticks per millisecond. The counter overflows every
// 65536 / 14976000 s = 4.38 ms.
const (
	FlexTimerPrescaler   = 2 // divide by 1 << 2
	FlexTimerIRQPriority = 3 // 0 highest, 15 lowest
)

// FlexTimer is the OS timer access layer for FlexTimer 0 used as a 16-bit
// free-running counter with channel 0 in software output compare mode. It
// implements core.TimerHardware.
//
// Status flags follow the FTM clearing protocol: a flag is cleared by
// writing 0 to it after the register was read with the flag set. Each clear
// therefore performs its own read immediately before the write.
type FlexTimer[B Bus] struct {
	bus  B
	base uintptr
	irq  IRQ
}

// NewFlexTimer0 returns the access layer for FTM0 on the given bus
func NewFlexTimer0[B Bus](bus B) FlexTimer[B] {
	return FlexTimer[B]{
		bus:  bus,
		base: FTM0Base,
		irq:  FTM0_IRQn,
	}
}

// IRQ returns the interrupt line of the timer
func (t FlexTimer[B]) IRQ() IRQ {
	return t.irq
}

func (t FlexTimer[B]) CounterBits() uint {
	return FTMCounterBits
}

func (t FlexTimer[B]) Counter() uint32 {
	return t.bus.Load32(t.base + FTMCNT)
}

// SetCounter loads the counter. A write to CNT does not store the written
// value: it reloads the counter from CNTIN. CNTIN is updated on the next
// bus cycle, hence the nop before the CNT write. CNTIN goes back to 0 so the
// counter keeps wrapping to 0.
func (t FlexTimer[B]) SetCounter(v uint32) {
	t.bus.Store32(t.base+FTMCNTIN, v)
	t.bus.Nop()
	t.bus.Store32(t.base+FTMCNT, v)
	t.bus.Store32(t.base+FTMCNTIN, 0)
}

func (t FlexTimer[B]) MatchRegister() uint32 {
	return t.bus.Load32(t.base + FTMC0V)
}

func (t FlexTimer[B]) SetMatchRegister(v uint32) {
	t.bus.Store32(t.base+FTMC0V, v)
}

func (t FlexTimer[B]) SetMatchInterrupt(enabled bool) {
	// CHF is written back as read: a 1 is ignored by the hardware, a 0 was
	// not observed set and does not clear anything.
	csc := t.bus.Load32(t.base + FTMC0SC)
	if enabled {
		csc |= FTM_CnSC_CHIE
	} else {
		csc &^= FTM_CnSC_CHIE
	}
	t.bus.Store32(t.base+FTMC0SC, csc)
}

func (t FlexTimer[B]) OverflowFlag() bool {
	return t.bus.Load32(t.base+FTMSC)&FTM_SC_TOF != 0
}

func (t FlexTimer[B]) ClearOverflowFlag() {
	sc := t.bus.Load32(t.base + FTMSC)
	t.bus.Store32(t.base+FTMSC, sc&^FTM_SC_TOF)
}

func (t FlexTimer[B]) MatchFlag() bool {
	return t.bus.Load32(t.base+FTMC0SC)&FTM_CnSC_CHF != 0
}

func (t FlexTimer[B]) ClearMatchFlag() {
	csc := t.bus.Load32(t.base + FTMC0SC)
	t.bus.Store32(t.base+FTMC0SC, csc&^FTM_CnSC_CHF)
}

func (t FlexTimer[B]) ForcePendingInterrupt() {
	NewNVIC(t.bus).SetPendingIRQ(t.irq)
}

func (t FlexTimer[B]) Stop() {
	sc := t.bus.Load32(t.base + FTMSC)
	t.bus.Store32(t.base+FTMSC, sc&^FTM_SC_CLKS_MASK)
}

func (t FlexTimer[B]) Start() {
	sc := t.bus.Load32(t.base + FTMSC)
	t.bus.Store32(t.base+FTMSC, sc|FTM_SC_CLKS_SYS)
}

// Prescaler returns the divide-by exponent currently in SC.PS
func (t FlexTimer[B]) Prescaler() uint32 {
	return t.bus.Load32(t.base+FTMSC) & FTM_SC_PS_MASK
}

// SetPrescaler changes SC.PS. The timer frequency changes with it; callers
// must recalibrate any tick conversion.
func (t FlexTimer[B]) SetPrescaler(ps uint32) {
	sc := t.bus.Load32(t.base + FTMSC)
	t.bus.Store32(t.base+FTMSC, sc&^FTM_SC_PS_MASK|ps&FTM_SC_PS_MASK)
}

// Frequency is the bus clock divided by the prescaler, read back from the
// hardware on every call.
func (t FlexTimer[B]) Frequency() uint32 {
	return NewClockTree(t.bus).BusClock() >> t.Prescaler()
}

// Init brings FTM0 up as a free-running 16-bit counter with the overflow
// interrupt enabled and leaves it stopped. The channel interrupt stays off
// until a deadline is armed.
func (t FlexTimer[B]) Init() {
	setBits(t.bus, SIMBase+SIMSCGC6, SIM_SCGC6_FTM0)

	// Count up to the maximum value, starting from 0
	t.bus.Store32(t.base+FTMCNTIN, 0)
	t.bus.Store32(t.base+FTMMOD, 0xFFFF)

	// Software output compare: no pin output
	t.bus.Store32(t.base+FTMC0SC, FTM_CnSC_MSA)

	// Overflow interrupt on, clock off, prescaler set
	t.bus.Store32(t.base+FTMSC, FTM_SC_TOIE|FlexTimerPrescaler)

	nvic := NewNVIC(t.bus)
	nvic.SetPriority(t.irq, FlexTimerIRQPriority)
	nvic.EnableIRQ(t.irq)

	// FTMEN=0: CNTIN updates on the next clock, MOD on the next wrap, CnV
	// on the next counter update
	t.bus.Store32(t.base+FTMMODE, 0)
}
