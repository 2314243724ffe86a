package mk22

// NVIC is the Cortex-M interrupt controller
type NVIC[B Bus] struct {
	bus B
}

// NewNVIC returns the interrupt controller view for a bus
func NewNVIC[B Bus](bus B) NVIC[B] {
	return NVIC[B]{bus: bus}
}

func irqWord(base uintptr, irq IRQ) (uintptr, uint32) {
	return base + uintptr(irq/32)*4, 1 << (irq % 32)
}

// EnableIRQ enables an interrupt line
func (n NVIC[B]) EnableIRQ(irq IRQ) {
	addr, bit := irqWord(NVICISER, irq)
	n.bus.Store32(addr, bit)
}

// DisableIRQ disables an interrupt line
func (n NVIC[B]) DisableIRQ(irq IRQ) {
	addr, bit := irqWord(NVICICER, irq)
	n.bus.Store32(addr, bit)
}

// IsEnabled reports whether an interrupt line is enabled
func (n NVIC[B]) IsEnabled(irq IRQ) bool {
	addr, bit := irqWord(NVICISER, irq)
	return n.bus.Load32(addr)&bit != 0
}

// SetPendingIRQ pends an interrupt line in software
func (n NVIC[B]) SetPendingIRQ(irq IRQ) {
	addr, bit := irqWord(NVICISPR, irq)
	n.bus.Store32(addr, bit)
}

// ClearPendingIRQ removes a pending request
func (n NVIC[B]) ClearPendingIRQ(irq IRQ) {
	addr, bit := irqWord(NVICICPR, irq)
	n.bus.Store32(addr, bit)
}

// IsPending reports whether an interrupt line is pending
func (n NVIC[B]) IsPending(irq IRQ) bool {
	addr, bit := irqWord(NVICISPR, irq)
	return n.bus.Load32(addr)&bit != 0
}

// SetPriority sets the priority of a line, 0 (highest) to 15 (lowest)
func (n NVIC[B]) SetPriority(irq IRQ, priority uint8) {
	addr := NVICIPR + uintptr(irq&^3)
	shift := (irq % 4) * 8
	v := n.bus.Load32(addr)
	v &^= 0xFF << shift
	v |= uint32(priority<<(8-NVICPrioBits)) << shift
	n.bus.Store32(addr, v)
}

// Priority returns the priority of a line
func (n NVIC[B]) Priority(irq IRQ) uint8 {
	addr := NVICIPR + uintptr(irq&^3)
	shift := (irq % 4) * 8
	return uint8(n.bus.Load32(addr)>>shift) >> (8 - NVICPrioBits)
}

// RequestContextSwitch pends PendSV. The kernel's PendSV handler performs
// the switch once every active interrupt has returned.
func RequestContextSwitch[B Bus](bus B) {
	bus.Store32(SCBICSR, SCB_ICSR_PENDSVSET)
}
