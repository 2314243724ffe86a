//go:build tinygo && mk22

package main

import (
	"runtime/volatile"
	"unsafe"

	"ostimer/core"
	"ostimer/mk22"
)

// UART0 on PTB16 (RX) / PTB17 (TX), ALT3. UART0 is clocked from the core
// clock.
const (
	uart0Base = 0x4006A000

	simSCGC4       = 0x1034
	simSCGC4UART0  = 1 << 10
	uartC2TE       = 1 << 3
	uartS1TDRE     = 1 << 7
	uartC4BRFAMask = 0x1F

	uartPinMux = 3

	// Must match serial.DefaultBaud on the host
	traceBaud = 115200
)

var (
	uartBDH = (*volatile.Register8)(unsafe.Pointer(uintptr(uart0Base + 0x00)))
	uartBDL = (*volatile.Register8)(unsafe.Pointer(uintptr(uart0Base + 0x01)))
	uartC2  = (*volatile.Register8)(unsafe.Pointer(uintptr(uart0Base + 0x03)))
	uartS1  = (*volatile.Register8)(unsafe.Pointer(uintptr(uart0Base + 0x04)))
	uartD   = (*volatile.Register8)(unsafe.Pointer(uintptr(uart0Base + 0x07)))
	uartC4  = (*volatile.Register8)(unsafe.Pointer(uintptr(uart0Base + 0x0A)))

	debugEnabled bool
)

// InitDebugUART sets up UART0 transmit at the rate the host tools expect
func InitDebugUART() {
	bus := mk22.MMIO{}
	bus.Store32(mk22.SIMBase+simSCGC4, bus.Load32(mk22.SIMBase+simSCGC4)|simSCGC4UART0)

	tx := mk22.NewPin(bus, mk22.PortB, 17)
	tx.Mode(core.GPIOAlternate)
	tx.AlternateFunction(uartPinMux)

	// Baud = clock / (16 * (SBR + BRFA/32))
	div32 := 2 * mk22.SystemCoreClock / traceBaud
	sbr := div32 / 32
	uartC2.Set(0)
	uartBDH.Set(uint8(sbr>>8) & 0x1F)
	uartBDL.Set(uint8(sbr))
	uartC4.Set(uint8(div32 % 32 & uartC4BRFAMask))
	uartC2.Set(uartC2TE)

	debugEnabled = true
}

// WriteTrace sends raw bytes, polling for room in the transmit buffer
func WriteTrace(data []byte) {
	if !debugEnabled {
		return
	}
	for _, b := range data {
		for uartS1.Get()&uartS1TDRE == 0 {
		}
		uartD.Set(b)
	}
}

// DebugPrintln writes a text line. Text and trace frames share the UART, so
// the host counts any text as bad frames; core only calls this with debug
// output enabled.
func DebugPrintln(s string) {
	WriteTrace([]byte(s))
	WriteTrace([]byte("\r\n"))
}
