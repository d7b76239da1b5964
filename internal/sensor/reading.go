// Package sensor describes the per-tick readings supplied by the glove's
// sensor co-processor and the sources that produce them.
package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoSample is returned by a Source when no new sample has arrived since
	// the previous Read.
	ErrNoSample = errors.New("no new sensor sample")
	// ErrParse is returned for a malformed sample line.
	ErrParse = errors.New("malformed sensor line")
)

// Reading is one tick's worth of resolved sensor output: orientation in
// degrees, acceleration and angular velocity in raw driver units, and the
// three digitised flex readings (thumb, index, ring).
type Reading struct {
	Pitch, Roll, Yaw       float32
	AccelX, AccelY, AccelZ float32
	GyroX, GyroY, GyroZ    float32
	Flex                   [3]int32
}

// Source yields the latest reading each tick.
type Source interface {
	Read() (Reading, error)
}

// numFields is the number of comma-separated values in a sample line:
// pitch,roll,yaw,ax,ay,az,gx,gy,gz,flex0,flex1,flex2
const numFields = 12

// ParseLine parses one sample line emitted by the co-processor.
func ParseLine(line string) (Reading, error) {
	segments := strings.Split(strings.TrimSpace(line), ",")
	if len(segments) != numFields {
		return Reading{}, fmt.Errorf("%w: %d fields, expected %d", ErrParse, len(segments), numFields)
	}

	var floats [9]float32
	for i := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(segments[i]), 32)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: field %d: %v", ErrParse, i, err)
		}
		floats[i] = float32(v)
	}

	var flex [3]int32
	for i := range flex {
		v, err := strconv.ParseInt(strings.TrimSpace(segments[9+i]), 10, 32)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: flex%d: %v", ErrParse, i, err)
		}
		flex[i] = int32(v)
	}

	return Reading{
		Pitch: floats[0], Roll: floats[1], Yaw: floats[2],
		AccelX: floats[3], AccelY: floats[4], AccelZ: floats[5],
		GyroX: floats[6], GyroY: floats[7], GyroZ: floats[8],
		Flex: flex,
	}, nil
}

// FormatLine is the inverse of ParseLine.
func FormatLine(r Reading) string {
	f := func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
	return strings.Join([]string{
		f(r.Pitch), f(r.Roll), f(r.Yaw),
		f(r.AccelX), f(r.AccelY), f(r.AccelZ),
		f(r.GyroX), f(r.GyroY), f(r.GyroZ),
		strconv.Itoa(int(r.Flex[0])), strconv.Itoa(int(r.Flex[1])), strconv.Itoa(int(r.Flex[2])),
	}, ",")
}
