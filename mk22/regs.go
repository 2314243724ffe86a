// Package mk22 is the NXP MK22F51212 support for the OS timer and GPIO:
// register layout, the FlexTimer access layer, the clock tree, the NVIC and
// the PORT/GPIO pin encoding.
//
// All register access goes through a Bus so the same code runs on the chip
// (MMIO, TinyGo builds) and against the simulator in package sim.
package mk22

// FlexTimer 0
const (
	FTM0Base uintptr = 0x40038000

	FTMSC    = 0x00 // status and control
	FTMCNT   = 0x04 // counter
	FTMMOD   = 0x08 // modulo
	FTMC0SC  = 0x0C // channel 0 status and control
	FTMC0V   = 0x10 // channel 0 value
	FTMCNTIN = 0x4C // counter initial value
	FTMMODE  = 0x54 // features mode selection
)

// FTM SC fields
const (
	FTM_SC_PS_MASK    = 0x7      // prescaler: divide by 1 << PS
	FTM_SC_CLKS_SHIFT = 3        // clock source selection
	FTM_SC_CLKS_MASK  = 0x3 << 3
	FTM_SC_CLKS_SYS   = 0x1 << 3 // system (bus) clock
	FTM_SC_CPWMS      = 1 << 5   // center-aligned PWM
	FTM_SC_TOIE       = 1 << 6   // overflow interrupt enable
	FTM_SC_TOF        = 1 << 7   // overflow flag
)

// FTM CnSC fields
const (
	FTM_CnSC_DMA  = 1 << 0
	FTM_CnSC_ELSA = 1 << 2
	FTM_CnSC_ELSB = 1 << 3
	FTM_CnSC_MSA  = 1 << 4
	FTM_CnSC_MSB  = 1 << 5
	FTM_CnSC_CHIE = 1 << 6 // channel interrupt enable
	FTM_CnSC_CHF  = 1 << 7 // channel flag
)

// FTM MODE fields
const (
	FTM_MODE_FTMEN   = 1 << 0
	FTM_MODE_INIT    = 1 << 1
	FTM_MODE_WPDIS   = 1 << 2
	FTM_MODE_PWMSYNC = 1 << 3
	FTM_MODE_CAPTEST = 1 << 4
	FTM_MODE_FAULTIE = 1 << 7
)

// FTMCounterBits is the width of the FlexTimer counter
const FTMCounterBits = 16

// System integration module
const (
	SIMBase uintptr = 0x40047000

	SIMSCGC5   = 0x1038 // clock gating 5 (ports)
	SIMSCGC6   = 0x103C // clock gating 6 (FTM0)
	SIMCLKDIV1 = 0x1044 // system clock divider 1
)

// SIM fields
const (
	SIM_SCGC5_PORTA = 1 << 9 // PORTB..PORTE follow at bits 10..13
	SIM_SCGC6_FTM0  = 1 << 24

	SIM_CLKDIV1_OUTDIV1_SHIFT = 28 // core/system clock divider
	SIM_CLKDIV1_OUTDIV1_MASK  = 0xF << 28
	SIM_CLKDIV1_OUTDIV2_SHIFT = 24 // bus clock divider
	SIM_CLKDIV1_OUTDIV2_MASK  = 0xF << 24
	SIM_CLKDIV1_OUTDIV4_SHIFT = 16 // flash clock divider
	SIM_CLKDIV1_OUTDIV4_MASK  = 0xF << 16
)

// Cortex-M4 NVIC and SCB
const (
	NVICISER uintptr = 0xE000E100 // set-enable
	NVICICER uintptr = 0xE000E180 // clear-enable
	NVICISPR uintptr = 0xE000E200 // set-pending
	NVICICPR uintptr = 0xE000E280 // clear-pending
	NVICIPR  uintptr = 0xE000E400 // priority, one byte per line

	SCBICSR uintptr = 0xE000ED04 // interrupt control and state

	SCB_ICSR_PENDSVSET = 1 << 28

	// NVICPrioBits is the number of implemented priority bits
	NVICPrioBits = 4
)

// FTM0_IRQn is the FlexTimer 0 interrupt line
const FTM0_IRQn IRQ = 42

// PORT (pin control) and GPIO
const (
	PORTABase uintptr = 0x40049000
	PORTStride        = 0x1000

	GPIOABase  uintptr = 0x400FF000
	GPIOStride         = 0x40

	GPIOPDOR = 0x00 // data output
	GPIOPSOR = 0x04 // set output
	GPIOPCOR = 0x08 // clear output
	GPIOPTOR = 0x0C // toggle output
	GPIOPDIR = 0x10 // data input
	GPIOPDDR = 0x14 // data direction
)

// PORT PCR fields
const (
	PORT_PCR_PS        = 1 << 0 // pull select: 1 = up
	PORT_PCR_PE        = 1 << 1 // pull enable
	PORT_PCR_SRE       = 1 << 2 // slow slew rate
	PORT_PCR_PFE       = 1 << 4 // passive filter
	PORT_PCR_ODE       = 1 << 5 // open drain
	PORT_PCR_DSE       = 1 << 6 // drive strength
	PORT_PCR_MUX_SHIFT = 8
	PORT_PCR_MUX_MASK  = 0x7 << 8
)

// PORT_PCR_MUX encodes a pin mux selection
func PORT_PCR_MUX(af uint32) uint32 {
	return (af << PORT_PCR_MUX_SHIFT) & PORT_PCR_MUX_MASK
}
