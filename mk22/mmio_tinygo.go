//go:build tinygo && mk22

package mk22

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"
)

// MMIO is the on-chip Bus: volatile loads and stores at physical addresses
type MMIO struct{}

func (MMIO) Load32(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

func (MMIO) Store32(addr uintptr, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr)), v)
}

func (MMIO) Nop() {
	arm.Asm("nop")
}
