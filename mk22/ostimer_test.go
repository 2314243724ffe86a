package mk22_test

import (
	"testing"

	"ostimer/core"
	"ostimer/mk22"
	"ostimer/sim"
)

const period = 1 << mk22.FTMCounterBits

type osTimer = core.TimerAdapter[mk22.FlexTimer[*sim.Device]]

// board wires the adapter to FTM0 on a simulated chip the way the firmware
// does: the handler is ServiceInterrupt and delivery respects the critical
// sections of package core. Counting starts at tick 0 of the device, so
// virtual time always equals dev.Ticks().
type board struct {
	dev   *sim.Device
	timer *osTimer
	wakes []uint64 // virtual time seen by each wake callback
}

func newBoard(t *testing.T) *board {
	t.Helper()

	b := &board{dev: sim.New()}
	mk22.NewClockTree(b.dev).SetDividers(0, 1, 3)

	b.timer = &osTimer{}
	b.timer.Init(mk22.NewFlexTimer0(b.dev))
	b.timer.SetWakeHandler(func() bool {
		b.wakes = append(b.wakes, b.timer.IRQGetTime())
		return false
	})

	b.dev.SetMaskFunc(core.InterruptsMasked)
	b.dev.Attach(func() { core.ServiceInterrupt(b.timer) })
	return b
}

func TestGetTimeMonotonic(t *testing.T) {
	b := newBoard(t)

	last := b.timer.GetTime()
	for b.dev.Ticks() < 5*period {
		b.dev.Advance(997)
		now := b.timer.GetTime()
		if now < last {
			t.Fatalf("time went backwards: %d after %d", now, last)
		}
		if now != b.dev.Ticks() {
			t.Fatalf("GetTime() = %d, want %d", now, b.dev.Ticks())
		}
		last = now
	}
}

func TestGetTimeWrapDuringMaskedRead(t *testing.T) {
	b := newBoard(t)
	b.dev.Advance(period - 1)

	// Let the counter wrap right after the adapter sampled it. Interrupts
	// are masked, so the overflow stays unserviced during the read.
	cnt := mk22.FTM0Base + mk22.FTMCNT
	fired := false
	b.dev.OnAccess = func(a sim.Access) {
		if a.Kind == sim.Read && a.Addr == cnt && !fired {
			fired = true
			b.dev.Advance(1)
		}
	}

	before := b.timer.Stats().Overflows
	got := b.timer.GetTime()
	b.dev.OnAccess = nil

	if !fired {
		t.Fatalf("hook never ran")
	}
	if got != period {
		t.Errorf("GetTime() across the wrap = %d, want %d", got, period)
	}
	if b.timer.Stats().Overflows != before {
		t.Errorf("overflow serviced inside the critical section")
	}

	// The overflow is taken once interrupts are unmasked
	b.dev.Poll()
	if b.timer.Stats().Overflows != before+1 {
		t.Errorf("Overflows = %d, want %d", b.timer.Stats().Overflows, before+1)
	}
	if now := b.timer.GetTime(); now != period {
		t.Errorf("GetTime() after servicing = %d, want %d", now, period)
	}
}

func TestOverflowAccounting(t *testing.T) {
	for _, n := range []uint64{1, 2, 7} {
		b := newBoard(t)
		b.dev.Advance(n*period + 123)

		if got := b.timer.GetTime(); got != n*period+123 {
			t.Errorf("%d overflows: GetTime() = %d, want %d", n, got, n*period+123)
		}
		if got := b.timer.Stats().Overflows; uint64(got) != n {
			t.Errorf("%d overflows: Stats().Overflows = %d", n, got)
		}
	}
}

func TestFarDeadlineArmsInItsWindow(t *testing.T) {
	b := newBoard(t)
	deadline := uint64(3*period + 1000)

	b.timer.SetNextInterrupt(deadline)
	if b.timer.State() != core.TimerArmed {
		t.Errorf("State() = %v, want armed", b.timer.State())
	}
	b.dev.Advance(deadline)

	entries := b.dev.Entries()
	if len(entries) != 4 {
		t.Fatalf("%d handler entries, want 4: %v", len(entries), entries)
	}
	for i := 0; i < 3; i++ {
		if !entries[i].Overflow() || entries[i].Match() {
			t.Errorf("entry %d = %v, want overflow only", i, entries[i])
		}
	}
	if !entries[3].Match() || entries[3].Overflow() {
		t.Errorf("entry 3 = %v, want match only", entries[3])
	}
	if entries[3].Counter != 1000 {
		t.Errorf("match entry at counter %d, want 1000", entries[3].Counter)
	}

	if len(b.wakes) != 1 || b.wakes[0] != deadline {
		t.Fatalf("wakes = %v, want [%d]", b.wakes, deadline)
	}
	if b.timer.State() != core.TimerRunning {
		t.Errorf("State() after the wake = %v, want running", b.timer.State())
	}

	// Nothing but overflows afterwards
	b.dev.ClearEntries()
	b.dev.Advance(2 * period)
	for i, e := range b.dev.Entries() {
		if !e.Overflow() || e.Match() {
			t.Errorf("later entry %d = %v, want overflow only", i, e)
		}
	}
	if len(b.wakes) != 1 {
		t.Errorf("deadline fired %d times", len(b.wakes))
	}
}

func TestDeadlineFiresOnTime(t *testing.T) {
	deadlines := []uint64{
		1,
		1000,
		period - 1,
		period,
		period + 1,
		2*period - 1,
		200000,
	}

	for _, d := range deadlines {
		b := newBoard(t)
		b.timer.SetNextInterrupt(d)
		b.dev.Advance(d + 5)

		if len(b.wakes) != 1 {
			t.Errorf("deadline %d: %d wakes, want 1", d, len(b.wakes))
			continue
		}
		// Fired at the first observed time >= d, no more than one tick late
		if b.wakes[0] < d || b.wakes[0] > d+1 {
			t.Errorf("deadline %d: woke at %d", d, b.wakes[0])
		}
	}
}

func TestLateDeadlineForcesInterrupt(t *testing.T) {
	b := newBoard(t)
	b.dev.Advance(5000)

	b.timer.SetNextInterrupt(4000)
	if !b.dev.Pending() {
		t.Fatalf("late deadline did not pend the interrupt")
	}
	if got := b.timer.Stats().Forced; got != 1 {
		t.Errorf("Stats().Forced = %d, want 1", got)
	}
	if len(b.wakes) != 0 {
		t.Fatalf("wake ran inside the critical section")
	}

	b.dev.ClearEntries()
	b.dev.Poll()

	if len(b.wakes) != 1 || b.wakes[0] != 5000 {
		t.Errorf("wakes = %v, want [5000]", b.wakes)
	}
	entries := b.dev.Entries()
	if len(entries) != 1 || !entries[0].Forced() {
		t.Errorf("entries = %v, want one software-pended entry", entries)
	}
}

func TestDeadlineEqualToNowFires(t *testing.T) {
	b := newBoard(t)
	b.dev.Advance(300)

	b.timer.SetNextInterrupt(300)
	b.dev.Poll()
	if len(b.wakes) != 1 || b.wakes[0] != 300 {
		t.Errorf("wakes = %v, want [300]", b.wakes)
	}
}

func TestDeadlineReplaced(t *testing.T) {
	b := newBoard(t)

	b.timer.SetNextInterrupt(20000)
	b.timer.SetNextInterrupt(10000)
	b.dev.Advance(3 * period)

	if len(b.wakes) != 1 || b.wakes[0] != 10000 {
		t.Errorf("wakes = %v, want [10000]", b.wakes)
	}

	// A later replacement across windows behaves the same
	b = newBoard(t)
	b.timer.SetNextInterrupt(period + 10)
	b.timer.SetNextInterrupt(2*period + 10)
	b.dev.Advance(3 * period)
	if len(b.wakes) != 1 || b.wakes[0] != 2*period+10 {
		t.Errorf("wakes = %v, want [%d]", b.wakes, 2*period+10)
	}
}

func TestWakeCanRearm(t *testing.T) {
	b := newBoard(t)
	step := uint64(period/2 + 77)

	var next uint64 = step
	b.timer.SetWakeHandler(func() bool {
		b.wakes = append(b.wakes, b.timer.IRQGetTime())
		next += step
		b.timer.IRQSetNextInterrupt(next)
		return false
	})
	b.timer.SetNextInterrupt(next)
	b.dev.Advance(10 * step)

	if len(b.wakes) != 10 {
		t.Fatalf("%d wakes, want 10", len(b.wakes))
	}
	for i, w := range b.wakes {
		if want := uint64(i+1) * step; w != want {
			t.Errorf("wake %d at %d, want %d", i, w, want)
		}
	}
}

func TestSetTime(t *testing.T) {
	b := newBoard(t)
	b.dev.Advance(100)

	target := uint64(1000000)
	b.timer.SetNextInterrupt(target + 50)

	if !b.timer.SetTime(target) {
		t.Fatalf("SetTime(%d) refused", target)
	}
	if got := b.timer.GetTime(); got != target {
		t.Errorf("GetTime() = %d, want %d", got, target)
	}
	if got := mk22.NewFlexTimer0(b.dev).Counter(); got != uint32(target%period) {
		t.Errorf("counter = %d, want %d", got, target%period)
	}

	if b.timer.SetTime(target - 1) {
		t.Errorf("SetTime moved time backwards")
	}

	// The pending deadline now lies in the current window
	b.dev.Advance(100)
	if got := b.timer.GetTime(); got != target+100 {
		t.Errorf("GetTime() = %d, want %d", got, target+100)
	}
	if len(b.wakes) != 1 || b.wakes[0] != target+50 {
		t.Errorf("wakes = %v, want [%d]", b.wakes, target+50)
	}
}

func TestStopHoldsTime(t *testing.T) {
	b := newBoard(t)
	b.dev.Advance(1234)

	b.timer.Stop()
	if b.timer.State() != core.TimerStopped {
		t.Errorf("State() = %v, want stopped", b.timer.State())
	}
	b.dev.Advance(period)
	if got := b.timer.GetTime(); got != 1234 {
		t.Errorf("GetTime() while stopped = %d, want 1234", got)
	}

	b.timer.Start()
	b.dev.Advance(10)
	if got := b.timer.GetTime(); got != 1244 {
		t.Errorf("GetTime() = %d, want 1244", got)
	}
}

func TestContextSwitchOnWake(t *testing.T) {
	b := newBoard(t)
	core.SetContextSwitchHook(func() { mk22.RequestContextSwitch(b.dev) })
	t.Cleanup(func() { core.SetContextSwitchHook(nil) })

	wantSwitch := false
	b.timer.SetWakeHandler(func() bool { return wantSwitch })

	b.timer.SetNextInterrupt(100)
	b.dev.Advance(100)
	if got := b.dev.PendSVCount(); got != 0 {
		t.Errorf("PendSV requested %d times for a wake without a switch", got)
	}

	wantSwitch = true
	b.timer.SetNextInterrupt(200)
	b.dev.Advance(100)
	if got := b.dev.PendSVCount(); got != 1 {
		t.Errorf("PendSVCount() = %d, want 1", got)
	}
}

func TestNanosecondDeadline(t *testing.T) {
	b := newBoard(t)
	if got := b.timer.Conversion().Frequency(); got != 14976000 {
		t.Fatalf("conversion built for %d Hz", got)
	}

	// 1 ms is exactly 14976 ticks
	b.timer.SetNextInterruptNs(1000000)
	b.dev.Advance(20000)
	if len(b.wakes) != 1 || b.wakes[0] != 14976 {
		t.Errorf("wakes = %v, want [14976]", b.wakes)
	}
	if got := b.timer.GetTimeNs(); got != b.timer.Conversion().NsFromTicks(20000) {
		t.Errorf("GetTimeNs() = %d", got)
	}
}

func TestRecalibrate(t *testing.T) {
	b := newBoard(t)
	mk22.NewFlexTimer0(b.dev).SetPrescaler(0)

	if got := b.timer.Frequency(); got != 59904000 {
		t.Errorf("Frequency() = %d, want 59904000", got)
	}
	if got := b.timer.Conversion().Frequency(); got != 14976000 {
		t.Errorf("conversion changed before Recalibrate: %d", got)
	}
	b.timer.Recalibrate()
	if got := b.timer.Conversion().Frequency(); got != 59904000 {
		t.Errorf("conversion after Recalibrate = %d, want 59904000", got)
	}
}

func TestSleepQueueOnFlexTimer(t *testing.T) {
	b := newBoard(t)
	core.RegisterOSTimer(b.timer)
	t.Cleanup(func() { core.RegisterOSTimer(nil) })
	core.InitSleepQueue()

	var fired []uint64
	handler := func(s *core.Sleeper) uint8 {
		fired = append(fired, b.timer.IRQGetTime())
		return core.SF_DONE
	}

	times := []uint64{300000, 1000, 70000, 70000}
	sleepers := make([]core.Sleeper, len(times))
	for i := range sleepers {
		sleepers[i] = core.Sleeper{WakeTime: times[i], Handler: handler}
		core.ScheduleSleeper(&sleepers[i])
	}

	b.dev.Advance(400000)

	want := []uint64{1000, 70000, 70000, 300000}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("sleeper %d fired at %d, want %d", i, fired[i], want[i])
		}
	}
	if _, ok := core.NextWake(); ok {
		t.Errorf("sleep queue not empty")
	}
}
