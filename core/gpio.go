// Timed digital outputs driven by the sleep queue
package core

// DigitalOut flags
const (
	DF_ON       = 1 << 0 // Current pin state (1=high, 0=low)
	DF_TOGGLING = 1 << 1 // Periodic toggling active
)

// DigitalOut is a GPIO output whose changes are scheduled on the OS timer.
// With a cycle configured it toggles between OnTicks high and the rest of the
// cycle low, which is how boards blink their heartbeat LED.
type DigitalOut struct {
	Pin   GPIOPin
	Flags uint8

	sleeper Sleeper

	// Handlers bound once at creation so scheduling never allocates
	onHigh, onLow, onToggle func(*Sleeper) uint8

	OnTicks   uint64 // high time per cycle
	OffTicks  uint64 // low time per cycle
	CycleTime uint64 // OnTicks + OffTicks
}

// NewDigitalOut configures pin as an output at the given initial level
func NewDigitalOut(pin GPIOPin, initial bool) (*DigitalOut, error) {
	d := &DigitalOut{Pin: pin}
	d.onHigh = d.setHighEvent
	d.onLow = d.setLowEvent
	d.onToggle = d.toggleEvent

	if err := MustGPIO().ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := d.write(initial); err != nil {
		return nil, err
	}
	return d, nil
}

// Set changes the pin level immediately and stops any toggling
func (d *DigitalOut) Set(on bool) error {
	CancelSleeper(&d.sleeper)
	d.Flags &^= DF_TOGGLING
	return d.write(on)
}

// ScheduleSet changes the pin level at the given tick time
func (d *DigitalOut) ScheduleSet(clock uint64, on bool) {
	CancelSleeper(&d.sleeper)
	d.Flags &^= DF_TOGGLING
	if on {
		d.sleeper.Handler = d.onHigh
	} else {
		d.sleeper.Handler = d.onLow
	}
	d.sleeper.WakeTime = clock
	ScheduleSleeper(&d.sleeper)
}

// Toggle starts periodic toggling: the pin flips at clock, then stays high
// for onTicks and low for the remainder of cycleTicks. An onTicks of zero or
// at least cycleTicks degenerates to a constant level.
func (d *DigitalOut) Toggle(clock, onTicks, cycleTicks uint64) {
	CancelSleeper(&d.sleeper)

	if onTicks > cycleTicks {
		onTicks = cycleTicks
	}
	d.CycleTime = cycleTicks
	d.OnTicks = onTicks
	d.OffTicks = cycleTicks - onTicks

	if d.OnTicks == 0 || d.OffTicks == 0 {
		d.ScheduleSet(clock, d.OnTicks != 0)
		return
	}

	d.Flags |= DF_TOGGLING
	d.sleeper.WakeTime = clock
	d.sleeper.Handler = d.onToggle
	ScheduleSleeper(&d.sleeper)
}

// IsOn returns the last level written
func (d *DigitalOut) IsOn() bool {
	return d.Flags&DF_ON != 0
}

func (d *DigitalOut) write(on bool) error {
	if err := MustGPIO().SetPin(d.Pin, on); err != nil {
		return err
	}
	if on {
		d.Flags |= DF_ON
	} else {
		d.Flags &^= DF_ON
	}
	return nil
}

func (d *DigitalOut) setHighEvent(*Sleeper) uint8 {
	_ = d.write(true)
	return SF_DONE
}

func (d *DigitalOut) setLowEvent(*Sleeper) uint8 {
	_ = d.write(false)
	return SF_DONE
}

// toggleEvent flips the pin and schedules the next edge
func (d *DigitalOut) toggleEvent(s *Sleeper) uint8 {
	if d.Flags&DF_TOGGLING == 0 {
		return SF_DONE
	}
	on := !d.IsOn()
	_ = d.write(on)
	if on {
		s.WakeTime += d.OnTicks
	} else {
		s.WakeTime += d.OffTicks
	}
	return SF_RESCHEDULE
}
