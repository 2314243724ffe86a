package sim

import (
	"fmt"

	"ostimer/mk22"
)

// Source tells what asserted the timer interrupt on a handler entry
type Source uint8

const (
	SourceOverflow Source = 1 << iota // TOF with TOIE
	SourceMatch                       // CHF with CHIE
)

// Entry records one entry into the timer interrupt handler, with the state
// of the timer flags as the handler found them
type Entry struct {
	Tick    uint64 // Ticks() at entry
	Counter uint32
	TOF     bool
	CHF     bool
	Sources Source // zero when the line was only pended in software
}

// Overflow reports whether the overflow interrupt was asserted
func (e Entry) Overflow() bool { return e.Sources&SourceOverflow != 0 }

// Match reports whether the channel interrupt was asserted
func (e Entry) Match() bool { return e.Sources&SourceMatch != 0 }

// Forced reports whether the entry came from a software pend alone
func (e Entry) Forced() bool { return e.Sources == 0 }

func (e Entry) String() string {
	return fmt.Sprintf("tick=%d cnt=%d tof=%v chf=%v src=%d", e.Tick, e.Counter, e.TOF, e.CHF, e.Sources)
}

// Attach sets the function run as the FTM0 interrupt handler
func (d *Device) Attach(handler func()) {
	d.handler = handler
}

// SetMaskFunc sets the function that reports whether the CPU currently has
// interrupts masked. Delivery is held back while it returns true.
func (d *Device) SetMaskFunc(masked func() bool) {
	d.masked = masked
}

// SetStormLimit sets the number of consecutive handler entries within one
// delivery after which the device panics
func (d *Device) SetStormLimit(n int) {
	d.stormLimit = n
}

// Entries returns the handler entries recorded so far
func (d *Device) Entries() []Entry {
	return d.entries
}

// ClearEntries forgets the recorded handler entries
func (d *Device) ClearEntries() {
	d.entries = d.entries[:0]
}

// Advance runs the timer for n ticks, delivering interrupts after each one
func (d *Device) Advance(n uint64) {
	for i := uint64(0); i < n; i++ {
		d.ftm.tick()
		d.ticks++
		d.Poll()
	}
}

// AdvanceTo runs the timer until Ticks() reaches t
func (d *Device) AdvanceTo(t uint64) {
	if t > d.ticks {
		d.Advance(t - d.ticks)
	}
}

// Poll samples the interrupt request and runs the handler as long as the
// line is pending, enabled and not masked. It is what happens on the chip
// when interrupts are unmasked.
func (d *Device) Poll() {
	if d.inHandler {
		return
	}
	for n := 0; ; n++ {
		d.sample()
		if !d.deliverable() {
			return
		}
		if n >= d.stormLimit {
			panic(fmt.Sprintf("sim: interrupt storm, %d entries without the request going away", n))
		}
		d.enter()
	}
}

// sample latches the peripheral request level into the NVIC pending bit
func (d *Device) sample() {
	if d.ftm.overflowRequest() || d.ftm.matchRequest() {
		d.nvic.setPending(mk22.FTM0_IRQn, true)
	}
}

func (d *Device) deliverable() bool {
	if d.handler == nil {
		return false
	}
	if d.masked != nil && d.masked() {
		return false
	}
	return d.nvic.isEnabled(mk22.FTM0_IRQn) && d.nvic.isPending(mk22.FTM0_IRQn)
}

func (d *Device) enter() {
	var src Source
	if d.ftm.overflowRequest() {
		src |= SourceOverflow
	}
	if d.ftm.matchRequest() {
		src |= SourceMatch
	}
	d.entries = append(d.entries, Entry{
		Tick:    d.ticks,
		Counter: d.ftm.cnt,
		TOF:     d.ftm.sc&mk22.FTM_SC_TOF != 0,
		CHF:     d.ftm.c0sc&mk22.FTM_CnSC_CHF != 0,
		Sources: src,
	})

	// Pending is cleared on exception entry; a level still asserted on exit
	// pends the line again
	d.nvic.setPending(mk22.FTM0_IRQn, false)
	d.inHandler = true
	d.handler()
	d.inHandler = false
}

// Pending reports whether the timer interrupt is pending in the NVIC
func (d *Device) Pending() bool {
	return d.nvic.isPending(mk22.FTM0_IRQn)
}
