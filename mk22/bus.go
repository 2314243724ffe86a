package mk22

// Bus is 32-bit register access to the peripheral address space. The
// hardware implementation is MMIO; the simulator in package sim models the
// same registers. Drivers take the bus as a type parameter so the MMIO
// accessors are called directly.
type Bus interface {
	Load32(addr uintptr) uint32
	Store32(addr uintptr, v uint32)

	// Nop lets one bus clock cycle elapse. Some register writes only take
	// effect on the following cycle.
	Nop()
}

// IRQ is an NVIC interrupt line number
type IRQ uint32

func setBits[B Bus](bus B, addr uintptr, bits uint32) {
	bus.Store32(addr, bus.Load32(addr)|bits)
}

func clearBits[B Bus](bus B, addr uintptr, bits uint32) {
	bus.Store32(addr, bus.Load32(addr)&^bits)
}
