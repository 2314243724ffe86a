//go:build tinygo && mk22

package main

import "ostimer/mk22"

// Board clock setup. The bootloader leaves the MCG in PEE mode at
// 119.808 MHz from the 12.288 MHz crystal; only the SIM dividers are set
// here.
const (
	outdiv1 = 0 // core/system 119.808 MHz
	outdiv2 = 1 // bus 59.904 MHz, FlexTimers tick at 14.976 MHz with PS=2
	outdiv4 = 3 // flash 29.952 MHz
)

// InitClock programs the clock dividers and records the core clock
func InitClock() {
	mk22.SystemCoreClock = mk22.DefaultCoreClock
	mk22.NewClockTree(mk22.MMIO{}).SetDividers(outdiv1, outdiv2, outdiv4)
}
