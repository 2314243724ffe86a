package sim

import "ostimer/mk22"

const (
	simWindow = 0x2000

	// OUTDIV4 = 1, everything else divide by one
	simCLKDIV1Reset = 0x00010000
)

type simRegs struct {
	scgc5, scgc6, clkdiv1 uint32
}

func (s *simRegs) load(off uintptr) (uint32, bool) {
	switch off {
	case mk22.SIMSCGC5:
		return s.scgc5, true
	case mk22.SIMSCGC6:
		return s.scgc6, true
	case mk22.SIMCLKDIV1:
		return s.clkdiv1, true
	}
	return 0, false
}

func (s *simRegs) store(off uintptr, v uint32) bool {
	switch off {
	case mk22.SIMSCGC5:
		s.scgc5 = v
	case mk22.SIMSCGC6:
		s.scgc6 = v
	case mk22.SIMCLKDIV1:
		s.clkdiv1 = v
	default:
		return false
	}
	return true
}

const (
	nvicBase   = mk22.NVICISER
	nvicWindow = 0x400
	nvicWords  = 8  // 256 lines
	iprWords   = 64 // one byte per line
)

// nvic holds the enable, pending and priority state of every line plus the
// PendSV request counter of the SCB
type nvic struct {
	enabled [nvicWords]uint32
	pending [nvicWords]uint32
	ipr     [iprWords]uint32

	pendSV uint32
}

func (n *nvic) load(addr uintptr) (uint32, bool) {
	switch {
	case addr == mk22.SCBICSR:
		return 0, true
	case inWindow(addr, mk22.NVICISER, nvicWords*4):
		return n.enabled[(addr-mk22.NVICISER)/4], true
	case inWindow(addr, mk22.NVICICER, nvicWords*4):
		return n.enabled[(addr-mk22.NVICICER)/4], true
	case inWindow(addr, mk22.NVICISPR, nvicWords*4):
		return n.pending[(addr-mk22.NVICISPR)/4], true
	case inWindow(addr, mk22.NVICICPR, nvicWords*4):
		return n.pending[(addr-mk22.NVICICPR)/4], true
	case inWindow(addr, mk22.NVICIPR, iprWords*4):
		return n.ipr[(addr-mk22.NVICIPR)/4], true
	}
	return 0, false
}

func (n *nvic) store(addr uintptr, v uint32) bool {
	switch {
	case addr == mk22.SCBICSR:
		if v&mk22.SCB_ICSR_PENDSVSET != 0 {
			n.pendSV++
		}
	case inWindow(addr, mk22.NVICISER, nvicWords*4):
		n.enabled[(addr-mk22.NVICISER)/4] |= v
	case inWindow(addr, mk22.NVICICER, nvicWords*4):
		n.enabled[(addr-mk22.NVICICER)/4] &^= v
	case inWindow(addr, mk22.NVICISPR, nvicWords*4):
		n.pending[(addr-mk22.NVICISPR)/4] |= v
	case inWindow(addr, mk22.NVICICPR, nvicWords*4):
		n.pending[(addr-mk22.NVICICPR)/4] &^= v
	case inWindow(addr, mk22.NVICIPR, iprWords*4):
		// Only the implemented high bits of each byte stick
		n.ipr[(addr-mk22.NVICIPR)/4] = v & 0xF0F0F0F0
	default:
		return false
	}
	return true
}

func (n *nvic) isEnabled(irq mk22.IRQ) bool {
	return n.enabled[irq/32]&(1<<(irq%32)) != 0
}

func (n *nvic) isPending(irq mk22.IRQ) bool {
	return n.pending[irq/32]&(1<<(irq%32)) != 0
}

func (n *nvic) setPending(irq mk22.IRQ, on bool) {
	if on {
		n.pending[irq/32] |= 1 << (irq % 32)
	} else {
		n.pending[irq/32] &^= 1 << (irq % 32)
	}
}

// PendSVCount returns how many times PendSV was requested through ICSR
func (d *Device) PendSVCount() uint32 {
	return d.nvic.pendSV
}
