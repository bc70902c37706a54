// Package gpio provides panel control reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the panel's controls.
type Reader interface {
	// Read returns the current control positions.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Sample is one reading of every control, already in logical form
// (true = switch closed).
type Sample struct {
	Switches []bool
	// Levels holds potentiometer readings in 0..1023. The GPIO reader
	// has no ADC and leaves it empty.
	Levels []int
}

// Config selects the lines to read (BCM numbering).
type Config struct {
	Chip string
	// Switches are wired directly, closed to ground.
	Switches []int
	// MuxSelect are the address lines of a 74HC4067-style multiplexer,
	// least significant first. Empty disables the multiplexer.
	MuxSelect []int
	// MuxSignal is the multiplexer's common line.
	MuxSignal int
	// MuxChannels is how many multiplexer inputs are populated.
	MuxChannels int
}

// DefaultConfig is the wiring of the reference panel.
func DefaultConfig() Config {
	return Config{
		Chip:        "gpiochip0",
		Switches:    []int{17, 27, 22},
		MuxSelect:   []int{5, 6, 13, 19},
		MuxSignal:   26,
		MuxChannels: 16,
	}
}
