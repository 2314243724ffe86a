// Package sim is a register-level model of the MK22 peripherals used by the
// OS timer and GPIO code: FlexTimer 0, the SIM clock gating and dividers, the
// NVIC, the SCB ICSR and the PORT/GPIO blocks.
//
// A Device implements mk22.Bus, so the real access layer and adapter run
// against it unchanged. Time only moves when the caller advances it, one
// timer tick at a time, and interrupts are delivered synchronously to an
// attached handler between ticks. The model is single threaded: the handler
// re-enters the device from inside Advance.
package sim

import (
	"fmt"

	"ostimer/mk22"
)

// AccessKind tells reads, writes and bus idle cycles apart in the log
type AccessKind uint8

const (
	Read AccessKind = iota
	Write
	Nop
)

func (k AccessKind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case Nop:
		return "nop"
	}
	return "unknown"
}

// Access is one bus operation
type Access struct {
	Kind  AccessKind
	Addr  uintptr
	Value uint32
}

func (a Access) String() string {
	if a.Kind == Nop {
		return "nop"
	}
	return fmt.Sprintf("%s %#08x %#08x", a.Kind, a.Addr, a.Value)
}

// DefaultStormLimit is the number of back-to-back handler entries after
// which Advance gives up on a level that is never acknowledged
const DefaultStormLimit = 1000

// Device is the simulated chip. The zero value is not usable; call New.
type Device struct {
	ftm  ftm
	sim  simRegs
	nvic nvic
	port [numPorts]port

	ticks uint64 // timer ticks since New

	handler    func()
	masked     func() bool
	inHandler  bool
	entries    []Entry
	stormLimit int

	logging bool
	log     []Access

	// OnAccess, if set, is called after every bus operation. It may advance
	// the device; accesses it makes itself are not reported again.
	OnAccess func(Access)
	inHook   bool
}

// New returns a device in its reset state
func New() *Device {
	d := &Device{
		stormLimit: DefaultStormLimit,
	}
	d.reset()
	return d
}

func (d *Device) reset() {
	d.ftm = ftm{mod: 0xFFFF}
	d.sim = simRegs{clkdiv1: simCLKDIV1Reset}
	d.nvic = nvic{}
	for i := range d.port {
		d.port[i] = port{}
	}
	d.ticks = 0
	d.entries = nil
	d.log = nil
}

// Reset puts every register back to its reset value. The attached handler,
// mask function and hooks are kept.
func (d *Device) Reset() {
	d.reset()
}

// Load32 implements mk22.Bus
func (d *Device) Load32(addr uintptr) uint32 {
	v := d.load(addr)
	d.trace(Access{Kind: Read, Addr: addr, Value: v})
	return v
}

// Store32 implements mk22.Bus
func (d *Device) Store32(addr uintptr, v uint32) {
	d.store(addr, v)
	d.trace(Access{Kind: Write, Addr: addr, Value: v})
}

// Nop implements mk22.Bus. Staged register updates land on the idle cycle.
func (d *Device) Nop() {
	d.ftm.commit()
	d.trace(Access{Kind: Nop})
}

func (d *Device) trace(a Access) {
	if d.logging {
		d.log = append(d.log, a)
	}
	if d.OnAccess != nil && !d.inHook {
		d.inHook = true
		d.OnAccess(a)
		d.inHook = false
	}
}

func (d *Device) load(addr uintptr) uint32 {
	switch {
	case inWindow(addr, mk22.FTM0Base, ftmWindow):
		d.checkGate(d.sim.scgc6&mk22.SIM_SCGC6_FTM0 != 0, addr)
		if v, ok := d.ftm.load(addr - mk22.FTM0Base); ok {
			return v
		}
	case inWindow(addr, mk22.SIMBase, simWindow):
		if v, ok := d.sim.load(addr - mk22.SIMBase); ok {
			return v
		}
	case inWindow(addr, nvicBase, nvicWindow), addr == mk22.SCBICSR:
		if v, ok := d.nvic.load(addr); ok {
			return v
		}
	case inWindow(addr, mk22.PORTABase, numPorts*mk22.PORTStride):
		p, off := portIndex(addr, mk22.PORTABase, mk22.PORTStride)
		d.checkGate(d.portGated(p), addr)
		if v, ok := d.port[p].loadPCR(off); ok {
			return v
		}
	case inWindow(addr, mk22.GPIOABase, numPorts*mk22.GPIOStride):
		p, off := portIndex(addr, mk22.GPIOABase, mk22.GPIOStride)
		if v, ok := d.port[p].loadGPIO(off); ok {
			return v
		}
	}
	panic(fmt.Sprintf("sim: read from unmapped address %#08x", addr))
}

func (d *Device) store(addr uintptr, v uint32) {
	switch {
	case inWindow(addr, mk22.FTM0Base, ftmWindow):
		d.checkGate(d.sim.scgc6&mk22.SIM_SCGC6_FTM0 != 0, addr)
		if d.ftm.store(addr-mk22.FTM0Base, v) {
			return
		}
	case inWindow(addr, mk22.SIMBase, simWindow):
		if d.sim.store(addr-mk22.SIMBase, v) {
			return
		}
	case inWindow(addr, nvicBase, nvicWindow), addr == mk22.SCBICSR:
		if d.nvic.store(addr, v) {
			return
		}
	case inWindow(addr, mk22.PORTABase, numPorts*mk22.PORTStride):
		p, off := portIndex(addr, mk22.PORTABase, mk22.PORTStride)
		d.checkGate(d.portGated(p), addr)
		if d.port[p].storePCR(off, v) {
			return
		}
	case inWindow(addr, mk22.GPIOABase, numPorts*mk22.GPIOStride):
		p, off := portIndex(addr, mk22.GPIOABase, mk22.GPIOStride)
		if d.port[p].storeGPIO(off, v) {
			return
		}
	}
	panic(fmt.Sprintf("sim: write %#08x to unmapped address %#08x", v, addr))
}

// checkGate models the bus fault raised by a peripheral whose clock is off
func (d *Device) checkGate(on bool, addr uintptr) {
	if !on {
		panic(fmt.Sprintf("sim: access to %#08x with its clock gate off", addr))
	}
}

func inWindow(addr, base, size uintptr) bool {
	return addr >= base && addr < base+size
}

// StartLog clears the access log and starts recording
func (d *Device) StartLog() {
	d.log = d.log[:0]
	d.logging = true
}

// StopLog stops recording and returns what was logged
func (d *Device) StopLog() []Access {
	d.logging = false
	out := make([]Access, len(d.log))
	copy(out, d.log)
	return out
}

// Ticks returns the number of timer ticks simulated since New or Reset
func (d *Device) Ticks() uint64 {
	return d.ticks
}
