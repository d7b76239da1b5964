package filter

import "fmt"

// Channel identifies one of the nine filtered IMU channels.
type Channel int

const (
	AccelX Channel = iota
	AccelY
	AccelZ
	GyroX
	GyroY
	GyroZ
	Pitch
	Roll
	Yaw

	numChannels
)

var channelNames = [numChannels]string{
	"accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z",
	"pitch", "roll", "yaw",
}

func (c Channel) String() string {
	if c < 0 || c >= numChannels {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// Channels lists every channel in bank order.
func Channels() []Channel {
	out := make([]Channel, 0, numChannels)
	for c := Channel(0); c < numChannels; c++ {
		out = append(out, c)
	}
	return out
}

// BankConfig selects the window size and the table used by each channel
// family.
type BankConfig struct {
	WindowSize  int
	Accel       *CoefficientTable
	Gyro        *CoefficientTable
	Orientation *CoefficientTable
}

// DefaultBankConfig returns the compiled-in 101-tap low-pass configuration.
func DefaultBankConfig() BankConfig {
	return BankConfig{
		WindowSize:  DefaultWindowSize,
		Accel:       AccelLowPass,
		Gyro:        GyroLowPass,
		Orientation: OrientationLowPass,
	}
}

// UniformBankConfig uses the same table for every channel family.
func UniformBankConfig(table *CoefficientTable) BankConfig {
	return BankConfig{
		WindowSize:  table.Len(),
		Accel:       table,
		Gyro:        table,
		Orientation: table,
	}
}

func (c BankConfig) tableFor(ch Channel) *CoefficientTable {
	switch ch {
	case AccelX, AccelY, AccelZ:
		return c.Accel
	case GyroX, GyroY, GyroZ:
		return c.Gyro
	default:
		return c.Orientation
	}
}

// Bank holds one independent FIR per channel. Filters of the same family share
// a table but never share history.
type Bank struct {
	windowSize int
	filters    [numChannels]*FIR
}

// NewBank validates every table against cfg.WindowSize and builds the nine
// filters. A mismatch is reported as ErrFilterConfigMismatch.
func NewBank(cfg BankConfig) (*Bank, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size %d: %w", cfg.WindowSize, ErrFilterConfigMismatch)
	}
	b := &Bank{windowSize: cfg.WindowSize}
	for _, ch := range Channels() {
		f, err := NewFIR(cfg.tableFor(ch), cfg.WindowSize)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch, err)
		}
		b.filters[ch] = f
	}
	return b, nil
}

// Process runs x through the channel's filter and returns the filtered value.
func (b *Bank) Process(ch Channel, x float32) float32 {
	return b.filters[ch].Process(x)
}

// Filter returns the channel's filter, mainly for inspection in tests and
// debug output.
func (b *Bank) Filter(ch Channel) *FIR {
	return b.filters[ch]
}

// WindowSize returns the history length shared by every filter in the bank.
func (b *Bank) WindowSize() int { return b.windowSize }

// Reset clears all histories.
func (b *Bank) Reset() {
	for _, f := range b.filters {
		f.Reset()
	}
}
