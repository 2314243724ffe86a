package sim

import (
	"testing"

	"ostimer/mk22"
)

func newRunningFTM() *Device {
	d := New()
	d.Store32(mk22.SIMBase+mk22.SIMSCGC6, mk22.SIM_SCGC6_FTM0)
	d.Store32(mk22.FTM0Base+mk22.FTMC0SC, mk22.FTM_CnSC_MSA)
	d.Store32(mk22.FTM0Base+mk22.FTMSC, mk22.FTM_SC_TOIE|mk22.FTM_SC_CLKS_SYS)
	return d
}

func TestCounterWrapSetsTOF(t *testing.T) {
	d := newRunningFTM()
	d.Store32(mk22.FTM0Base+mk22.FTMC0V, 0x8000)

	d.Advance(0xFFFF)
	if got := d.Load32(mk22.FTM0Base + mk22.FTMCNT); got != 0xFFFF {
		t.Fatalf("CNT = %#x, want 0xFFFF", got)
	}
	if d.Load32(mk22.FTM0Base+mk22.FTMSC)&mk22.FTM_SC_TOF != 0 {
		t.Errorf("TOF set before the wrap")
	}

	d.Advance(1)
	if got := d.Load32(mk22.FTM0Base + mk22.FTMCNT); got != 0 {
		t.Errorf("CNT after wrap = %#x, want 0", got)
	}
	if d.Load32(mk22.FTM0Base+mk22.FTMSC)&mk22.FTM_SC_TOF == 0 {
		t.Errorf("TOF not set after the wrap")
	}
}

func TestStoppedCounterHolds(t *testing.T) {
	d := New()
	d.Store32(mk22.SIMBase+mk22.SIMSCGC6, mk22.SIM_SCGC6_FTM0)
	d.Advance(100)
	if got := d.Load32(mk22.FTM0Base + mk22.FTMCNT); got != 0 {
		t.Errorf("CNT = %d with the clock off, want 0", got)
	}
	if d.Ticks() != 100 {
		t.Errorf("Ticks() = %d, want 100", d.Ticks())
	}
}

func TestFlagClearProtocol(t *testing.T) {
	sc := mk22.FTM0Base + mk22.FTMSC

	tests := []struct {
		name    string
		clear   func(d *Device)
		wantTOF bool
	}{
		{
			name: "read then write zero",
			clear: func(d *Device) {
				v := d.Load32(sc)
				d.Store32(sc, v&^mk22.FTM_SC_TOF)
			},
			wantTOF: false,
		},
		{
			name: "write zero without read",
			clear: func(d *Device) {
				d.Store32(sc, mk22.FTM_SC_TOIE|mk22.FTM_SC_CLKS_SYS)
			},
			wantTOF: true,
		},
		{
			name: "write one",
			clear: func(d *Device) {
				v := d.Load32(sc)
				d.Store32(sc, v|mk22.FTM_SC_TOF)
			},
			wantTOF: true,
		},
		{
			name: "overflow between read and write",
			clear: func(d *Device) {
				v := d.Load32(sc)
				d.Advance(0x10000)
				d.Store32(sc, v&^mk22.FTM_SC_TOF)
			},
			wantTOF: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newRunningFTM()
			d.Advance(0x10000)
			tt.clear(d)
			got := d.Load32(sc)&mk22.FTM_SC_TOF != 0
			if got != tt.wantTOF {
				t.Errorf("TOF = %v, want %v", got, tt.wantTOF)
			}
		})
	}
}

func TestMatchSetsCHF(t *testing.T) {
	d := newRunningFTM()
	d.Store32(mk22.FTM0Base+mk22.FTMC0V, 10)

	d.Advance(9)
	if d.Load32(mk22.FTM0Base+mk22.FTMC0SC)&mk22.FTM_CnSC_CHF != 0 {
		t.Fatalf("CHF set at CNT=9")
	}
	d.Advance(1)
	if d.Load32(mk22.FTM0Base+mk22.FTMC0SC)&mk22.FTM_CnSC_CHF == 0 {
		t.Errorf("CHF not set at CNT=10")
	}
}

func TestCNTINStaging(t *testing.T) {
	base := mk22.FTM0Base

	t.Run("with nop", func(t *testing.T) {
		d := newRunningFTM()
		d.Store32(base+mk22.FTMSC, 0) // stop
		d.Store32(base+mk22.FTMCNTIN, 1234)
		d.Nop()
		d.Store32(base+mk22.FTMCNT, 1234)
		if got := d.Load32(base + mk22.FTMCNT); got != 1234 {
			t.Errorf("CNT = %d, want 1234", got)
		}
	})

	t.Run("without nop", func(t *testing.T) {
		d := newRunningFTM()
		d.Store32(base+mk22.FTMSC, 0)
		d.Store32(base+mk22.FTMCNTIN, 1234)
		d.Store32(base+mk22.FTMCNT, 1234)
		if got := d.Load32(base + mk22.FTMCNT); got != 0 {
			t.Errorf("CNT = %d, want the old CNTIN 0", got)
		}
	})
}

func TestInterruptDelivery(t *testing.T) {
	d := newRunningFTM()
	d.Store32(mk22.NVICISER+4, 1<<(mk22.FTM0_IRQn%32))

	calls := 0
	d.Attach(func() {
		calls++
		v := d.Load32(mk22.FTM0Base + mk22.FTMSC)
		d.Store32(mk22.FTM0Base+mk22.FTMSC, v&^mk22.FTM_SC_TOF)
	})

	d.Advance(3 * 0x10000)
	if calls != 3 {
		t.Errorf("handler ran %d times, want 3", calls)
	}
	for i, e := range d.Entries() {
		if !e.Overflow() || e.Match() {
			t.Errorf("entry %d = %v, want overflow only", i, e)
		}
	}
}

func TestMaskedDeliveryIsDeferred(t *testing.T) {
	d := newRunningFTM()
	d.Store32(mk22.NVICISER+4, 1<<(mk22.FTM0_IRQn%32))

	masked := true
	d.SetMaskFunc(func() bool { return masked })
	calls := 0
	d.Attach(func() {
		calls++
		d.Store32(mk22.NVICICPR+4, 1<<(mk22.FTM0_IRQn%32))
	})

	d.Store32(mk22.NVICISPR+4, 1<<(mk22.FTM0_IRQn%32))
	d.Poll()
	if calls != 0 {
		t.Fatalf("handler ran while masked")
	}

	masked = false
	d.Poll()
	if calls != 1 {
		t.Errorf("handler ran %d times after unmasking, want 1", calls)
	}
	if !d.Entries()[0].Forced() {
		t.Errorf("entry %v, want software pend", d.Entries()[0])
	}
}

func TestInterruptStormPanics(t *testing.T) {
	d := newRunningFTM()
	d.Store32(mk22.NVICISER+4, 1<<(mk22.FTM0_IRQn%32))
	d.SetStormLimit(10)
	d.Attach(func() {}) // never clears TOF

	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	d.Advance(0x10000)
}

func TestUnmappedAccessPanics(t *testing.T) {
	d := New()
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	d.Load32(0x20000000)
}

func TestClockGate(t *testing.T) {
	d := New()
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic for FTM access with the gate off")
		}
	}()
	d.Load32(mk22.FTM0Base + mk22.FTMCNT)
}

func TestGPIORegisters(t *testing.T) {
	d := New()
	gpio := mk22.PortC.GPIOBase()

	d.Store32(gpio+mk22.GPIOPDDR, 1<<5)
	d.Store32(gpio+mk22.GPIOPSOR, 1<<5|1<<6)
	d.SetInput(mk22.PortC, 6, false)
	d.SetInput(mk22.PortC, 7, true)

	pdir := d.Load32(gpio + mk22.GPIOPDIR)
	if pdir != 1<<5|1<<7 {
		t.Errorf("PDIR = %#x, want %#x", pdir, 1<<5|1<<7)
	}

	d.Store32(gpio+mk22.GPIOPTOR, 1<<5)
	if high, out := d.Output(mk22.PortC, 5); high || !out {
		t.Errorf("Output(C5) = %v, %v after toggle, want false, true", high, out)
	}
}

func TestAccessLog(t *testing.T) {
	d := New()
	d.StartLog()
	d.Store32(mk22.SIMBase+mk22.SIMSCGC6, mk22.SIM_SCGC6_FTM0)
	d.Nop()
	d.Load32(mk22.SIMBase + mk22.SIMSCGC6)
	log := d.StopLog()

	want := []Access{
		{Kind: Write, Addr: mk22.SIMBase + mk22.SIMSCGC6, Value: mk22.SIM_SCGC6_FTM0},
		{Kind: Nop},
		{Kind: Read, Addr: mk22.SIMBase + mk22.SIMSCGC6, Value: mk22.SIM_SCGC6_FTM0},
	}
	if len(log) != len(want) {
		t.Fatalf("log has %d entries, want %d: %v", len(log), len(want), log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %v, want %v", i, log[i], want[i])
		}
	}
}
