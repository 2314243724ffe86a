package sim

import "ostimer/mk22"

const numPorts = 5

// port is one PORT pin control block and its GPIO data block
type port struct {
	pcr   [mk22.PinsPerPort]uint32
	pdor  uint32
	pddr  uint32
	input uint32 // level driven onto the pins from outside
}

func portIndex(addr, base, stride uintptr) (int, uintptr) {
	off := addr - base
	return int(off / stride), off % stride
}

func (d *Device) portGated(p int) bool {
	return d.sim.scgc5&(mk22.SIM_SCGC5_PORTA<<p) != 0
}

// pcrMask keeps the PCR fields that are implemented
const pcrMask = mk22.PORT_PCR_PS | mk22.PORT_PCR_PE | mk22.PORT_PCR_SRE |
	mk22.PORT_PCR_PFE | mk22.PORT_PCR_ODE | mk22.PORT_PCR_DSE | mk22.PORT_PCR_MUX_MASK

func (p *port) loadPCR(off uintptr) (uint32, bool) {
	if off >= mk22.PinsPerPort*4 {
		return 0, false
	}
	return p.pcr[off/4], true
}

func (p *port) storePCR(off uintptr, v uint32) bool {
	if off >= mk22.PinsPerPort*4 {
		return false
	}
	p.pcr[off/4] = v & pcrMask
	return true
}

// pdir is what the input register reads: outputs read back their own level,
// inputs the external one
func (p *port) pdir() uint32 {
	return p.pdor&p.pddr | p.input&^p.pddr
}

func (p *port) loadGPIO(off uintptr) (uint32, bool) {
	switch off {
	case mk22.GPIOPDOR:
		return p.pdor, true
	case mk22.GPIOPSOR, mk22.GPIOPCOR, mk22.GPIOPTOR:
		return 0, true
	case mk22.GPIOPDIR:
		return p.pdir(), true
	case mk22.GPIOPDDR:
		return p.pddr, true
	}
	return 0, false
}

func (p *port) storeGPIO(off uintptr, v uint32) bool {
	switch off {
	case mk22.GPIOPDOR:
		p.pdor = v
	case mk22.GPIOPSOR:
		p.pdor |= v
	case mk22.GPIOPCOR:
		p.pdor &^= v
	case mk22.GPIOPTOR:
		p.pdor ^= v
	case mk22.GPIOPDIR:
		// read only
	case mk22.GPIOPDDR:
		p.pddr = v
	default:
		return false
	}
	return true
}

// SetInput drives an external level onto a pin
func (d *Device) SetInput(pt mk22.Port, pin uint8, high bool) {
	p := &d.port[pt]
	if high {
		p.input |= 1 << pin
	} else {
		p.input &^= 1 << pin
	}
}

// Output returns the level a pin drives, and whether it is an output at all
func (d *Device) Output(pt mk22.Port, pin uint8) (high, isOutput bool) {
	p := &d.port[pt]
	return p.pdor&(1<<pin) != 0, p.pddr&(1<<pin) != 0
}

// PCR returns the raw pin control register of a pin
func (d *Device) PCR(pt mk22.Port, pin uint8) uint32 {
	return d.port[pt].pcr[pin]
}
