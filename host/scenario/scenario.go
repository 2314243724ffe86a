// Package scenario describes OS timer test runs in YAML and plays them
// against the MK22 timer adapter on the simulated chip.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ostimer/core"
	"ostimer/host/monitor"
	"ostimer/mk22"
)

var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrInvalidPin      = errors.New("invalid pin name")
)

// Scenario is one simulated run: a clock setup, a list of steps played in
// order and the expectations checked at the end.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Clock       Clock  `yaml:"clock"`
	Steps       []Step `yaml:"steps"`
	Expect      Expect `yaml:"expect"`
}

// Clock configures the simulated clock tree. Dividers are divide-by n+1 as
// in SIM_CLKDIV1.
type Clock struct {
	CoreHz    uint32  `yaml:"core_hz"`
	OutDiv1   *uint32 `yaml:"outdiv1"`
	OutDiv2   *uint32 `yaml:"outdiv2"`
	OutDiv4   *uint32 `yaml:"outdiv4"`
	Prescaler *uint32 `yaml:"prescaler"`
}

// Expect holds the checks made once all steps ran
type Expect struct {
	Wakes   *int    `yaml:"wakes"`
	MaxLate *uint64 `yaml:"max_late"` // ticks a wake may trail its deadline
}

// Step is a single action or check. Exactly one field is set.
type Step struct {
	Advance     *Span     `yaml:"advance"`
	WakeAt      *uint64   `yaml:"wake_at"`
	WakeIn      *Span     `yaml:"wake_in"`
	SetTime     *uint64   `yaml:"set_time"`
	Stop        bool      `yaml:"stop"`
	Start       bool      `yaml:"start"`
	Toggle      *Toggle   `yaml:"toggle"`
	SetPin      *PinLevel `yaml:"set_pin"`
	ExpectTime  *uint64   `yaml:"expect_time"`
	ExpectWakes *int      `yaml:"expect_wakes"`
	ExpectPin   *PinLevel `yaml:"expect_pin"`
}

// Toggle starts periodic toggling of an output pin
type Toggle struct {
	Pin   string `yaml:"pin"`
	At    Span   `yaml:"at"` // delay from the current time
	On    Span   `yaml:"on"`
	Cycle Span   `yaml:"cycle"`
}

// PinLevel names a pin and a level
type PinLevel struct {
	Pin  string `yaml:"pin"`
	High bool   `yaml:"high"`
}

// Span is an amount of simulated time, written either as a tick count or
// as a duration string ("1ms", "250us").
type Span struct {
	Ticks    uint64
	Duration time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Span.
func (s *Span) UnmarshalYAML(value *yaml.Node) error {
	var ticks uint64
	if err := value.Decode(&ticks); err == nil {
		*s = Span{Ticks: ticks}
		return nil
	}

	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid span %q: %w", str, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative span %q: %w", str, ErrInvalidScenario)
	}
	*s = Span{Duration: parsed}
	return nil
}

// TicksAt converts the span using the timer's tick conversion. Durations
// round up so a wait is never shorter than written.
func (s Span) TicksAt(tc core.TimeConversion) uint64 {
	if s.Duration != 0 {
		return tc.TicksFromNsCeil(uint64(s.Duration.Nanoseconds()))
	}
	return s.Ticks
}

func (s Span) String() string {
	if s.Duration != 0 {
		return s.Duration.String()
	}
	return strconv.FormatUint(s.Ticks, 10) + " ticks"
}

// Kind names the action of a step
func (s Step) Kind() string {
	switch {
	case s.Advance != nil:
		return "advance"
	case s.WakeAt != nil:
		return "wake_at"
	case s.WakeIn != nil:
		return "wake_in"
	case s.SetTime != nil:
		return "set_time"
	case s.Stop:
		return "stop"
	case s.Start:
		return "start"
	case s.Toggle != nil:
		return "toggle"
	case s.SetPin != nil:
		return "set_pin"
	case s.ExpectTime != nil:
		return "expect_time"
	case s.ExpectWakes != nil:
		return "expect_wakes"
	case s.ExpectPin != nil:
		return "expect_pin"
	}
	return ""
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Advance != nil, s.WakeAt != nil, s.WakeIn != nil, s.SetTime != nil,
		s.Stop, s.Start, s.Toggle != nil, s.SetPin != nil,
		s.ExpectTime != nil, s.ExpectWakes != nil, s.ExpectPin != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// ParsePin parses a pin name such as "B21" or "PTB21"
func ParsePin(name string) (mk22.Port, uint8, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "PT")
	if len(s) < 2 || s[0] < 'A' || s[0] > 'E' {
		return 0, 0, fmt.Errorf("%q: %w", name, ErrInvalidPin)
	}
	n, err := strconv.ParseUint(s[1:], 10, 8)
	if err != nil || n >= mk22.PinsPerPort {
		return 0, 0, fmt.Errorf("%q: %w", name, ErrInvalidPin)
	}
	return mk22.PortA + mk22.Port(s[0]-'A'), uint8(n), nil
}

func u32(v uint32) *uint32 { return &v }

// applyDefaults fills in missing values with the board's setup
func applyDefaults(sc *Scenario) {
	if sc.Clock.CoreHz == 0 {
		sc.Clock.CoreHz = mk22.DefaultCoreClock
	}
	if sc.Clock.OutDiv1 == nil {
		sc.Clock.OutDiv1 = u32(0)
	}
	if sc.Clock.OutDiv2 == nil {
		sc.Clock.OutDiv2 = u32(1)
	}
	if sc.Clock.OutDiv4 == nil {
		sc.Clock.OutDiv4 = u32(3)
	}
	if sc.Clock.Prescaler == nil {
		sc.Clock.Prescaler = u32(mk22.FlexTimerPrescaler)
	}
	if sc.Expect.MaxLate == nil {
		late := uint64(monitor.DefaultMaxLate)
		sc.Expect.MaxLate = &late
	}
}

// Validate checks the scenario for steps that cannot be run
func (sc *Scenario) Validate() error {
	if *sc.Clock.OutDiv1 > 15 || *sc.Clock.OutDiv2 > 15 || *sc.Clock.OutDiv4 > 15 {
		return fmt.Errorf("clock dividers must be 0..15: %w", ErrInvalidScenario)
	}
	if *sc.Clock.Prescaler > 7 {
		return fmt.Errorf("prescaler %d out of range 0..7: %w", *sc.Clock.Prescaler, ErrInvalidScenario)
	}

	for i, st := range sc.Steps {
		if n := st.actions(); n != 1 {
			return fmt.Errorf("step %d has %d actions, want 1: %w", i+1, n, ErrInvalidScenario)
		}
		var pin string
		switch {
		case st.Toggle != nil:
			pin = st.Toggle.Pin
			if st.Toggle.Cycle.Ticks == 0 && st.Toggle.Cycle.Duration == 0 {
				return fmt.Errorf("step %d: toggle needs a cycle: %w", i+1, ErrInvalidScenario)
			}
		case st.SetPin != nil:
			pin = st.SetPin.Pin
		case st.ExpectPin != nil:
			pin = st.ExpectPin.Pin
		default:
			continue
		}
		if _, _, err := ParsePin(pin); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Parse decodes and validates a YAML scenario
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	applyDefaults(&sc)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile loads a scenario from a YAML file. An unnamed scenario is named
// after its file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}
