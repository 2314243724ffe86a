package sim

import "ostimer/mk22"

const ftmWindow = 0x100

// ftm models FlexTimer 0 in up-counting mode with channel 0 as output
// compare. MOD and CnV updates take effect immediately; CNTIN is staged
// until the next bus cycle or timer tick.
type ftm struct {
	sc, cnt, mod, c0sc, c0v, mode uint32

	cntin        uint32 // value the counter reloads from
	cntinStaged  uint32 // last written, effective after one cycle
	cntinPending bool

	// A flag is cleared by writing 0 only if it was read as 1 since it was
	// last set
	tofArmed bool
	chfArmed bool
}

func (f *ftm) commit() {
	if f.cntinPending {
		f.cntin = f.cntinStaged
		f.cntinPending = false
	}
}

func (f *ftm) load(off uintptr) (uint32, bool) {
	switch off {
	case mk22.FTMSC:
		if f.sc&mk22.FTM_SC_TOF != 0 {
			f.tofArmed = true
		}
		return f.sc, true
	case mk22.FTMCNT:
		return f.cnt, true
	case mk22.FTMMOD:
		return f.mod, true
	case mk22.FTMC0SC:
		if f.c0sc&mk22.FTM_CnSC_CHF != 0 {
			f.chfArmed = true
		}
		return f.c0sc, true
	case mk22.FTMC0V:
		return f.c0v, true
	case mk22.FTMCNTIN:
		if f.cntinPending {
			return f.cntinStaged, true
		}
		return f.cntin, true
	case mk22.FTMMODE:
		return f.mode, true
	}
	return 0, false
}

func (f *ftm) store(off uintptr, v uint32) bool {
	switch off {
	case mk22.FTMSC:
		f.sc = writeFlag(f.sc, v, mk22.FTM_SC_TOF, &f.tofArmed)
	case mk22.FTMCNT:
		// Any write reloads the counter from CNTIN
		f.cnt = f.cntin
	case mk22.FTMMOD:
		f.mod = v & 0xFFFF
	case mk22.FTMC0SC:
		f.c0sc = writeFlag(f.c0sc, v, mk22.FTM_CnSC_CHF, &f.chfArmed)
	case mk22.FTMC0V:
		f.c0v = v & 0xFFFF
	case mk22.FTMCNTIN:
		f.cntinStaged = v & 0xFFFF
		f.cntinPending = true
	case mk22.FTMMODE:
		f.mode = v
	default:
		return false
	}
	return true
}

// writeFlag applies a register write to a status register holding a
// write-0-to-clear flag
func writeFlag(old, v, flag uint32, armed *bool) uint32 {
	next := v&^flag | old&flag
	if old&flag != 0 && v&flag == 0 && *armed {
		next &^= flag
	}
	*armed = false
	return next
}

func (f *ftm) running() bool {
	return f.sc&mk22.FTM_SC_CLKS_MASK != 0
}

// tick advances the counter by one timer clock
func (f *ftm) tick() {
	f.commit()
	if !f.running() {
		return
	}
	if f.cnt == f.mod {
		f.cnt = f.cntin
		f.sc |= mk22.FTM_SC_TOF
		// A new overflow between the read and the write of a clear sequence
		// makes the write ineffective
		f.tofArmed = false
	} else {
		f.cnt = (f.cnt + 1) & 0xFFFF
	}
	if f.cnt == f.c0v && f.c0sc&mk22.FTM_CnSC_MSA != 0 {
		f.c0sc |= mk22.FTM_CnSC_CHF
		f.chfArmed = false
	}
}

// overflowRequest and matchRequest are the interrupt request levels
func (f *ftm) overflowRequest() bool {
	return f.sc&mk22.FTM_SC_TOF != 0 && f.sc&mk22.FTM_SC_TOIE != 0
}

func (f *ftm) matchRequest() bool {
	return f.c0sc&mk22.FTM_CnSC_CHF != 0 && f.c0sc&mk22.FTM_CnSC_CHIE != 0
}
