package core

// GPIOPin identifies a hardware GPIO pin number. Board packages define the
// numbering (on Kinetis parts: port*32 + bit).
type GPIOPin uint32

// GPIOMode selects the electrical configuration of a pin
type GPIOMode uint8

const (
	GPIOInput              GPIOMode = iota // floating input
	GPIOInputPullUp                        // input with pull-up
	GPIOInputPullDown                      // input with pull-down
	GPIOInputAnalog                        // analog function, digital path off
	GPIOOutput                             // push-pull output
	GPIOOpenDrain                          // open-drain output
	GPIOOpenDrainPullUp                    // open-drain output with pull-up
	GPIOAlternate                          // peripheral function
	GPIOAlternateOpenDrain                 // peripheral function, open drain
	GPIOAlternateOpenDrainPullUp           // peripheral function, open drain, pull-up
)

// GPIOSpeed selects the output slew rate
type GPIOSpeed uint8

const (
	GPIOSpeedLow GPIOSpeed = iota
	GPIOSpeedMedium
	GPIOSpeedHigh
	GPIOSpeedVeryHigh
)

// GPIODriver is the abstract GPIO interface that board-independent code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// Configure sets the pin mode
	// Returns error if pin is invalid
	Configure(pin GPIOPin, mode GPIOMode) error

	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)

	// ReadPin reads the current pin state (alias for GetPin for convenience)
	ReadPin(pin GPIOPin) bool
}

// Global singleton used by board-independent code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
