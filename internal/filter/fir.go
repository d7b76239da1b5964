// Package filter implements the direct-form FIR low-pass filters applied to
// every IMU channel before the readings are packed into a telemetry frame.
package filter

import (
	"errors"
	"fmt"
)

// ErrFilterConfigMismatch is returned when a coefficient table does not have
// exactly one tap per history slot.
var ErrFilterConfigMismatch = errors.New("coefficient table length does not match window size")

// DefaultWindowSize is the number of taps in the compiled-in tables.
const DefaultWindowSize = 101

// CoefficientTable is an immutable, ordered set of FIR tap weights. A single
// table is shared by pointer between all filters of one channel family.
type CoefficientTable struct {
	name string
	taps []float32
}

// NewCoefficientTable copies taps into a new read-only table.
func NewCoefficientTable(name string, taps []float32) (*CoefficientTable, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("coefficient table %q: %w: no taps", name, ErrFilterConfigMismatch)
	}
	t := &CoefficientTable{name: name, taps: make([]float32, len(taps))}
	copy(t.taps, taps)
	return t, nil
}

// mustTable is used for the compiled-in tables only.
func mustTable(name string, taps []float32) *CoefficientTable {
	t, err := NewCoefficientTable(name, taps)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the table's family name, e.g. "accel".
func (t *CoefficientTable) Name() string { return t.name }

// Len returns the number of taps.
func (t *CoefficientTable) Len() int { return len(t.taps) }

// At returns tap i.
func (t *CoefficientTable) At(i int) float32 { return t.taps[i] }

// Taps returns a copy of the tap weights.
func (t *CoefficientTable) Taps() []float32 {
	out := make([]float32, len(t.taps))
	copy(out, t.taps)
	return out
}

// DCGain is the sum of the taps, i.e. the value a unit step settles to once
// the history window is full.
func (t *CoefficientTable) DCGain() float32 {
	var sum float32
	for _, c := range t.taps {
		sum += c
	}
	return sum
}

var (
	// AccelLowPass is the shared table for the three accelerometer axes.
	AccelLowPass = mustTable("accel", accelLowPassTaps[:])
	// GyroLowPass is the shared table for the three gyroscope axes.
	GyroLowPass = mustTable("gyro", gyroLowPassTaps[:])
	// OrientationLowPass is the shared table for pitch, roll and yaw.
	OrientationLowPass = mustTable("orientation", orientationLowPassTaps[:])
)

// FIR is a single channel's filter state: a zero-filled history of exactly
// Len() samples, most recent first, convolved with a borrowed table.
//
// The first Len() outputs are a warm-up period: the zero padding still in the
// window pulls the output towards zero and the response may overshoot. Callers
// are expected to tolerate this rather than clamp it.
type FIR struct {
	coeffs  *CoefficientTable
	history []float32
}

// NewFIR creates a filter over table. windowSize must equal table.Len().
func NewFIR(table *CoefficientTable, windowSize int) (*FIR, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrFilterConfigMismatch)
	}
	if table.Len() != windowSize {
		return nil, fmt.Errorf("%s table has %d taps, window is %d: %w",
			table.Name(), table.Len(), windowSize, ErrFilterConfigMismatch)
	}
	return &FIR{
		coeffs:  table,
		history: make([]float32, windowSize),
	}, nil
}

// Process pushes x into the history, evicting the oldest sample, and returns
// the convolution of the history with the coefficient table.
func (f *FIR) Process(x float32) float32 {
	copy(f.history[1:], f.history[:len(f.history)-1])
	f.history[0] = x

	var out float32
	for i, h := range f.history {
		out += f.coeffs.taps[i] * h
	}
	return out
}

// History returns a copy of the sample window, most recent sample first.
func (f *FIR) History() []float32 {
	out := make([]float32, len(f.history))
	copy(out, f.history)
	return out
}

// Table returns the coefficient table the filter borrows.
func (f *FIR) Table() *CoefficientTable { return f.coeffs }

// Reset zeroes the history, restarting the warm-up period.
func (f *FIR) Reset() {
	for i := range f.history {
		f.history[i] = 0
	}
}
