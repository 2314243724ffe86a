package core

// fakeTimer is a small counter model used to drive TimerAdapter in unit
// tests. It uses an 8-bit counter so wraps happen every 256 ticks.
type fakeTimer struct {
	bits    uint
	counter uint32
	match   uint32

	overflow  bool
	matchFlag bool
	matchIE   bool
	swPending bool
	running   bool
	inited    bool

	hz uint32

	forceCalls int
	setCounter []uint32
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{bits: 8, hz: 1000000}
}

func (f *fakeTimer) CounterBits() uint { return f.bits }
func (f *fakeTimer) Counter() uint32 { return f.counter }
func (f *fakeTimer) MatchRegister() uint32 { return f.match }
func (f *fakeTimer) SetMatchRegister(v uint32) { f.match = v }
func (f *fakeTimer) SetMatchInterrupt(on bool) { f.matchIE = on }
func (f *fakeTimer) OverflowFlag() bool { return f.overflow }
func (f *fakeTimer) ClearOverflowFlag() { f.overflow = false }
func (f *fakeTimer) MatchFlag() bool { return f.matchFlag }
func (f *fakeTimer) ClearMatchFlag() { f.matchFlag = false }
func (f *fakeTimer) Start() { f.running = true }
func (f *fakeTimer) Stop() { f.running = false }
func (f *fakeTimer) Frequency() uint32 { return f.hz }
func (f *fakeTimer) Init() { f.inited = true }

func (f *fakeTimer) SetCounter(v uint32) {
	f.counter = v
	f.setCounter = append(f.setCounter, v)
}

func (f *fakeTimer) ForcePendingInterrupt() {
	f.forceCalls++
	f.swPending = true
}

func (f *fakeTimer) mask() uint32 {
	return 1<<f.bits - 1
}

func (f *fakeTimer) tick() {
	if !f.running {
		return
	}
	f.counter = (f.counter + 1) & f.mask()
	if f.counter == 0 {
		f.overflow = true
	}
	if f.counter == f.match {
		f.matchFlag = true
	}
}

func (f *fakeTimer) requested() bool {
	return f.overflow || (f.matchFlag && f.matchIE) || f.swPending
}

// run advances n ticks and services the adapter whenever the interrupt is
// requested. It returns the number of handler entries.
func run(a *TimerAdapter[*fakeTimer], f *fakeTimer, n int) int {
	entries := 0
	for i := 0; i < n; i++ {
		f.tick()
		for f.requested() {
			f.swPending = false
			ServiceInterrupt(a)
			entries++
		}
	}
	return entries
}

func newFakeAdapter() (*TimerAdapter[*fakeTimer], *fakeTimer) {
	f := newFakeTimer()
	a := &TimerAdapter[*fakeTimer]{}
	a.Init(f)
	return a, f
}
