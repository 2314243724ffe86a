package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ostimer/core"
	"ostimer/mk22"
	"ostimer/protocol"
	"ostimer/sim"
)

// ErrExpectation wraps every failed check of a run
var ErrExpectation = errors.New("expectation failed")

// chunkTicks is how far the device advances between trace flushes and
// cancellation checks. It keeps the trace ring from overrunning under
// normal wake rates.
const chunkTicks = 1024

type osTimer = core.TimerAdapter[mk22.FlexTimer[*sim.Device]]

// Options control a run
type Options struct {
	// Trace receives the framed event trace, as the board would send it
	Trace io.Writer

	// Progress, if set, is called after every chunk with the ticks
	// advanced so far and the total of all advance steps
	Progress func(done, total uint64)

	Logger *slog.Logger
}

// Wake is a sleeper wake seen during a run
type Wake struct {
	Deadline uint64
	At       uint64
}

// Result is the outcome of a run
type Result struct {
	Name     string
	Time     uint64 // virtual time at the end
	Ticks    uint64 // device ticks simulated
	Wakes    []Wake
	Timer    core.TimerStats
	Switches uint32 // context switches requested through PendSV
	Frames   int    // trace frames written
	Failures []error
}

// OK reports whether every expectation held
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

type runner struct {
	sc   *Scenario
	opts Options
	log  *slog.Logger

	dev   *sim.Device
	ftm   mk22.FlexTimer[*sim.Device]
	timer *osTimer
	outs  map[core.GPIOPin]*core.DigitalOut

	scratch *protocol.ScratchOutput
	enc     *protocol.Encoder

	done, total uint64
	res         Result
}

// Run plays a scenario on a fresh simulated chip. The OS timer, sleep
// queue and GPIO driver of package core are process globals, so runs must
// not overlap. A hardware model fault (such as an interrupt storm) ends
// the run with an error.
func Run(ctx context.Context, sc *Scenario, opts Options) (res *Result, err error) {
	r := &runner{
		sc:   sc,
		opts: opts,
		log:  opts.Logger,
		outs: make(map[core.GPIOPin]*core.DigitalOut),
		res:  Result{Name: sc.Name},
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	savedCore := mk22.SystemCoreClock
	defer func() {
		mk22.SystemCoreClock = savedCore
		core.SetContextSwitchHook(nil)
		core.SetGPIODriver(nil)
		core.RegisterOSTimer(nil)
		core.ClearTraceRing()

		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("%s: simulation fault: %v", sc.Name, p)
		}
	}()

	r.setup()
	r.log.Info("scenario start", "name", sc.Name, "hz", r.timer.Frequency(), "steps", len(sc.Steps))

	for i, st := range sc.Steps {
		if err := r.step(ctx, i+1, st); err != nil {
			return nil, fmt.Errorf("%s: step %d (%s): %w", sc.Name, i+1, st.Kind(), err)
		}
	}
	r.flush()
	r.finish()

	r.log.Info("scenario done", "name", sc.Name, "time", r.res.Time,
		"wakes", len(r.res.Wakes), "failures", len(r.res.Failures))
	return &r.res, nil
}

// setup brings the chip up the way the firmware does
func (r *runner) setup() {
	clk := r.sc.Clock
	mk22.SystemCoreClock = clk.CoreHz

	r.dev = sim.New()
	mk22.NewClockTree(r.dev).SetDividers(*clk.OutDiv1, *clk.OutDiv2, *clk.OutDiv4)
	mk22.EnablePortClocks(r.dev)

	core.ClearTraceRing()
	if r.opts.Trace != nil {
		r.scratch = protocol.NewScratchOutput()
		r.enc = protocol.NewEncoder(r.scratch)
	}

	r.ftm = mk22.NewFlexTimer0(r.dev)
	r.timer = &osTimer{}
	r.timer.Init(r.ftm)
	if *clk.Prescaler != r.ftm.Prescaler() {
		r.ftm.SetPrescaler(*clk.Prescaler)
		r.timer.Recalibrate()
	}

	r.dev.SetMaskFunc(core.InterruptsMasked)
	r.dev.Attach(func() { core.ServiceInterrupt(r.timer) })

	core.SetContextSwitchHook(func() { mk22.RequestContextSwitch(r.dev) })
	core.SetGPIODriver(mk22.NewGPIODriver(r.dev))
	core.RegisterOSTimer(r.timer)
	core.InitSleepQueue()

	tc := r.timer.Conversion()
	for _, st := range r.sc.Steps {
		if st.Advance != nil {
			r.total += st.Advance.TicksAt(tc)
		}
	}
}

func (r *runner) step(ctx context.Context, n int, st Step) error {
	tc := r.timer.Conversion()
	now := r.timer.GetTime()
	r.log.Debug("step", "n", n, "kind", st.Kind(), "time", now)

	switch {
	case st.Advance != nil:
		return r.advance(ctx, st.Advance.TicksAt(tc))

	case st.WakeAt != nil:
		r.sleep(*st.WakeAt)

	case st.WakeIn != nil:
		r.sleep(now + st.WakeIn.TicksAt(tc))

	case st.SetTime != nil:
		if !r.timer.SetTime(*st.SetTime) {
			r.fail("step %d: set_time %d refused at %d", n, *st.SetTime, now)
		}

	case st.Stop:
		r.timer.Stop()

	case st.Start:
		r.timer.Start()

	case st.Toggle != nil:
		d, err := r.output(st.Toggle.Pin)
		if err != nil {
			return err
		}
		d.Toggle(now+st.Toggle.At.TicksAt(tc), st.Toggle.On.TicksAt(tc), st.Toggle.Cycle.TicksAt(tc))

	case st.SetPin != nil:
		d, err := r.output(st.SetPin.Pin)
		if err != nil {
			return err
		}
		return d.Set(st.SetPin.High)

	case st.ExpectTime != nil:
		if now != *st.ExpectTime {
			r.fail("step %d: time %d, want %d", n, now, *st.ExpectTime)
		}

	case st.ExpectWakes != nil:
		if len(r.res.Wakes) != *st.ExpectWakes {
			r.fail("step %d: %d wakes, want %d", n, len(r.res.Wakes), *st.ExpectWakes)
		}

	case st.ExpectPin != nil:
		port, pin, err := ParsePin(st.ExpectPin.Pin)
		if err != nil {
			return err
		}
		high, isOutput := r.dev.Output(port, pin)
		if !isOutput {
			r.fail("step %d: pin %s is not an output", n, st.ExpectPin.Pin)
		} else if high != st.ExpectPin.High {
			r.fail("step %d: pin %s high=%v, want %v", n, st.ExpectPin.Pin, high, st.ExpectPin.High)
		}
	}
	return nil
}

// advance runs the device for n ticks, flushing the trace between chunks
func (r *runner) advance(ctx context.Context, n uint64) error {
	for n > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := min(n, chunkTicks)
		r.dev.Advance(chunk)
		n -= chunk
		r.done += chunk

		r.flush()
		if r.opts.Progress != nil {
			r.opts.Progress(r.done, r.total)
		}
	}
	return nil
}

// sleep queues a sleeper recording when it fires. It asks for a context
// switch like a sleeper waking a thread would.
func (r *runner) sleep(at uint64) {
	s := &core.Sleeper{
		WakeTime: at,
		Handler: func(s *core.Sleeper) uint8 {
			r.res.Wakes = append(r.res.Wakes, Wake{Deadline: s.WakeTime, At: r.timer.IRQGetTime()})
			return core.SF_SWITCH
		},
	}
	core.ScheduleSleeper(s)
}

// output returns the timed output of a pin, configuring it on first use
func (r *runner) output(name string) (*core.DigitalOut, error) {
	port, n, err := ParsePin(name)
	if err != nil {
		return nil, err
	}
	pin := mk22.PinNumber(port, n)
	if d, ok := r.outs[pin]; ok {
		return d, nil
	}
	d, err := core.NewDigitalOut(pin, false)
	if err != nil {
		return nil, fmt.Errorf("configuring %s: %w", name, err)
	}
	r.outs[pin] = d
	return d, nil
}

func (r *runner) flush() {
	if r.enc == nil {
		return
	}
	r.scratch.Reset()
	r.res.Frames += core.FlushTrace(r.enc)
	if _, err := r.opts.Trace.Write(r.scratch.Result()); err != nil {
		r.log.Warn("trace write failed, disabling trace", "err", err)
		r.enc = nil
	}
}

// finish collects the end state and checks the final expectations
func (r *runner) finish() {
	r.res.Time = r.timer.GetTime()
	r.res.Ticks = r.dev.Ticks()
	r.res.Timer = r.timer.Stats()
	r.res.Switches = r.dev.PendSVCount()

	maxLate := *r.sc.Expect.MaxLate
	for _, w := range r.res.Wakes {
		switch {
		case w.At < w.Deadline:
			r.fail("wake for %d ran early at %d", w.Deadline, w.At)
		case w.At-w.Deadline > maxLate:
			r.fail("wake for %d ran %d ticks late", w.Deadline, w.At-w.Deadline)
		}
	}
	if want := r.sc.Expect.Wakes; want != nil && len(r.res.Wakes) != *want {
		r.fail("%d wakes, want %d", len(r.res.Wakes), *want)
	}
}

func (r *runner) fail(format string, args ...any) {
	err := fmt.Errorf(format+": %w", append(args, ErrExpectation)...)
	r.log.Warn("check failed", "err", err)
	r.res.Failures = append(r.res.Failures, err)
}
