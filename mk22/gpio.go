package mk22

import (
	"errors"

	"ostimer/core"
)

// Port selects one of the five pin ports
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE

	numPorts = 5
)

// PinsPerPort is the number of pins addressable in one port
const PinsPerPort = 32

var ErrInvalidPin = errors.New("invalid pin")

// PortBase returns the PORT (pin control) block address of a port
func (p Port) PortBase() uintptr {
	return PORTABase + uintptr(p)*PORTStride
}

// GPIOBase returns the GPIO (data) block address of a port
func (p Port) GPIOBase() uintptr {
	return GPIOABase + uintptr(p)*GPIOStride
}

// Pin is one GPIO pin. It is a small value meant to be passed around and
// stored in board tables.
type Pin[B Bus] struct {
	bus  B
	port Port
	n    uint8
}

// NewPin returns pin n of a port
func NewPin[B Bus](bus B, port Port, n uint8) Pin[B] {
	return Pin[B]{bus: bus, port: port, n: n}
}

func (p Pin[B]) pcr() uintptr {
	return p.port.PortBase() + uintptr(p.n)*4
}

func (p Pin[B]) mask() uint32 {
	return 1 << p.n
}

// Mode sets the pin configuration. The whole PCR is rewritten, so drive
// strength, filter and slew rate go back to their defaults.
func (p Pin[B]) Mode(m core.GPIOMode) {
	gpio := p.port.GPIOBase()

	switch m {
	case core.GPIOInput:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1))
		clearBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOInputPullUp:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1)|PORT_PCR_PS|PORT_PCR_PE)
		clearBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOInputPullDown:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1)|PORT_PCR_PE)
		clearBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOInputAnalog:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(0))
		clearBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOOutput:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1))
		setBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOOpenDrain:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1)|PORT_PCR_ODE)
		setBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOOpenDrainPullUp:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1)|PORT_PCR_ODE|PORT_PCR_PS|PORT_PCR_PE)
		setBits(p.bus, gpio+GPIOPDDR, p.mask())
	case core.GPIOAlternate:
		// Pull, open drain and mux all reset; AlternateFunction picks the mux
		p.bus.Store32(p.pcr(), 0)
	case core.GPIOAlternateOpenDrain:
		p.bus.Store32(p.pcr(), PORT_PCR_ODE)
	case core.GPIOAlternateOpenDrainPullUp:
		p.bus.Store32(p.pcr(), PORT_PCR_ODE|PORT_PCR_PS|PORT_PCR_PE)
	default:
		p.bus.Store32(p.pcr(), PORT_PCR_MUX(1))
		clearBits(p.bus, gpio+GPIOPDDR, p.mask())
	}
}

// Speed sets the slew rate. The port only has slow and fast: anything from
// Medium up selects fast.
func (p Pin[B]) Speed(s core.GPIOSpeed) {
	if s < core.GPIOSpeedMedium {
		setBits(p.bus, p.pcr(), PORT_PCR_SRE)
	} else {
		clearBits(p.bus, p.pcr(), PORT_PCR_SRE)
	}
}

// AlternateFunction selects the pin mux, 2 to 7. Values 0 and 1 are the
// analog and GPIO functions chosen through Mode and are ignored here.
func (p Pin[B]) AlternateFunction(af uint8) {
	if af > 1 {
		pcr := p.bus.Load32(p.pcr()) &^ PORT_PCR_MUX_MASK
		p.bus.Store32(p.pcr(), pcr|PORT_PCR_MUX(uint32(af)))
	}
}

// High drives the pin high, if it is an output
func (p Pin[B]) High() {
	p.bus.Store32(p.port.GPIOBase()+GPIOPSOR, p.mask())
}

// Low drives the pin low, if it is an output
func (p Pin[B]) Low() {
	p.bus.Store32(p.port.GPIOBase()+GPIOPCOR, p.mask())
}

// Toggle inverts the output level
func (p Pin[B]) Toggle() {
	p.bus.Store32(p.port.GPIOBase()+GPIOPTOR, p.mask())
}

// Value reads the pin, 0 or 1
func (p Pin[B]) Value() int {
	if p.bus.Load32(p.port.GPIOBase()+GPIOPDIR)&p.mask() != 0 {
		return 1
	}
	return 0
}

// Port returns the pin port
func (p Pin[B]) Port() Port { return p.port }

// Number returns the pin number within its port
func (p Pin[B]) Number() uint8 { return p.n }

// EnablePortClocks gates the clock of every PORT block on. Pin control
// registers fault if accessed with their port clock off.
func EnablePortClocks[B Bus](bus B) {
	var gates uint32
	for p := 0; p < numPorts; p++ {
		gates |= SIM_SCGC5_PORTA << p
	}
	setBits(bus, SIMBase+SIMSCGC5, gates)
}

// GPIODriver implements core.GPIODriver for board-independent code. Pins are
// numbered port*32 + bit.
type GPIODriver[B Bus] struct {
	bus     B
	outputs [numPorts]uint32 // pins configured as outputs
}

// NewGPIODriver creates the driver; port clocks must already be on
func NewGPIODriver[B Bus](bus B) *GPIODriver[B] {
	return &GPIODriver[B]{bus: bus}
}

// PinNumber returns the driver numbering of a port pin
func PinNumber(port Port, n uint8) core.GPIOPin {
	return core.GPIOPin(uint32(port)*PinsPerPort + uint32(n))
}

func (d *GPIODriver[B]) pin(pin core.GPIOPin) (Pin[B], error) {
	port := Port(pin / PinsPerPort)
	if port >= numPorts {
		return Pin[B]{}, ErrInvalidPin
	}
	return NewPin(d.bus, port, uint8(pin%PinsPerPort)), nil
}

func (d *GPIODriver[B]) Configure(pin core.GPIOPin, mode core.GPIOMode) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	p.Mode(mode)

	switch mode {
	case core.GPIOOutput, core.GPIOOpenDrain, core.GPIOOpenDrainPullUp:
		d.outputs[p.port] |= p.mask()
	default:
		d.outputs[p.port] &^= p.mask()
	}
	return nil
}

func (d *GPIODriver[B]) ConfigureOutput(pin core.GPIOPin) error {
	return d.Configure(pin, core.GPIOOutput)
}

func (d *GPIODriver[B]) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.Configure(pin, core.GPIOInputPullUp)
}

func (d *GPIODriver[B]) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.Configure(pin, core.GPIOInputPullDown)
}

// SetPin drives a pin previously configured as an output
func (d *GPIODriver[B]) SetPin(pin core.GPIOPin, value bool) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	if d.outputs[p.port]&p.mask() == 0 {
		return ErrInvalidPin
	}
	if value {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (d *GPIODriver[B]) GetPin(pin core.GPIOPin) (bool, error) {
	p, err := d.pin(pin)
	if err != nil {
		return false, err
	}
	return p.Value() != 0, nil
}

func (d *GPIODriver[B]) ReadPin(pin core.GPIOPin) bool {
	// ReadPin is a convenience wrapper around GetPin that returns just the bool value
	value, _ := d.GetPin(pin)
	return value
}
