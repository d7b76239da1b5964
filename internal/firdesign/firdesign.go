// Package firdesign designs and inspects the low-pass FIR tables compiled
// into the filter package. It is an offline tool; nothing here runs on the
// device.
package firdesign

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

var ErrInvalidDesign = errors.New("invalid filter design")

// Point is one bin of a magnitude response.
type Point struct {
	FreqHz    float64 `json:"freq_hz"`
	Magnitude float64 `json:"magnitude"`
	DB        float64 `json:"db"`
}

// LowPass returns a Hamming-windowed sinc low-pass filter with numTaps
// coefficients, normalised to unit DC gain.
func LowPass(numTaps int, cutoffHz, sampleHz float64) ([]float64, error) {
	if numTaps < 1 {
		return nil, fmt.Errorf("%w: %d taps", ErrInvalidDesign, numTaps)
	}
	if sampleHz <= 0 || cutoffHz <= 0 || cutoffHz >= sampleHz/2 {
		return nil, fmt.Errorf("%w: cutoff %gHz must be inside (0, %gHz)", ErrInvalidDesign, cutoffHz, sampleHz/2)
	}
	if numTaps == 1 {
		return []float64{1}, nil
	}

	fc := cutoffHz / sampleHz
	mid := float64(numTaps-1) / 2
	taps := make([]float64, numTaps)
	for i := range taps {
		taps[i] = 2 * fc * sinc(2*fc*(float64(i)-mid))
	}
	window.Hamming(taps)

	sum := floats.Sum(taps)
	if sum == 0 {
		return nil, fmt.Errorf("%w: zero DC gain", ErrInvalidDesign)
	}
	floats.Scale(1/sum, taps)
	return taps, nil
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// Response evaluates the magnitude response of taps at nfft/2+1 evenly
// spaced frequencies from DC to Nyquist. nfft is raised to len(taps) if
// smaller.
func Response(taps []float64, nfft int, sampleHz float64) []Point {
	if len(taps) == 0 {
		return nil
	}
	if nfft < len(taps) {
		nfft = len(taps)
	}
	seq := make([]float64, nfft)
	copy(seq, taps)

	fft := fourier.NewFFT(nfft)
	coeffs := fft.Coefficients(nil, seq)

	points := make([]Point, len(coeffs))
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		points[i] = Point{
			FreqHz:    fft.Freq(i) * sampleHz,
			Magnitude: mag,
			DB:        20 * math.Log10(math.Max(mag, 1e-12)),
		}
	}
	return points
}

// CutoffHz returns the first frequency at which the response falls below
// -3dB, or 0 if it never does.
func CutoffHz(points []Point) float64 {
	for _, p := range points {
		if p.DB < -3 {
			return p.FreqHz
		}
	}
	return 0
}

// ToFloat32 converts designed taps to the precision used on the device.
func ToFloat32(taps []float64) []float32 {
	out := make([]float32, len(taps))
	for i, v := range taps {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32 widens compiled taps for analysis.
func FromFloat32(taps []float32) []float64 {
	out := make([]float64, len(taps))
	for i, v := range taps {
		out[i] = float64(v)
	}
	return out
}

// IsSymmetric reports whether taps is linear-phase to within tol.
func IsSymmetric(taps []float64, tol float64) bool {
	for i, j := 0, len(taps)-1; i < j; i, j = i+1, j-1 {
		if math.Abs(taps[i]-taps[j]) > tol {
			return false
		}
	}
	return true
}
