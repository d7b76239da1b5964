package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/lume-glove/controller/internal/sensor"
)

// syntheticGlove produces plausible sample lines for dev mode: a slow wrist
// rotation with sensor noise and fingers that bend in turn.
type syntheticGlove struct {
	start time.Time
	now   func() time.Time
	rng   *rand.Rand
}

func newSyntheticGlove(start time.Time) *syntheticGlove {
	return &syntheticGlove{
		start: start,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(start.UnixNano())),
	}
}

func (g *syntheticGlove) reading() sensor.Reading {
	t := g.now().Sub(g.start).Seconds()
	noise := func(scale float64) float32 { return float32(g.rng.NormFloat64() * scale) }

	r := sensor.Reading{
		Pitch:  float32(30*math.Sin(2*math.Pi*0.2*t)) + noise(0.5),
		Roll:   float32(45*math.Sin(2*math.Pi*0.1*t)) + noise(0.5),
		Yaw:    float32(math.Mod(20*t, 360)) + noise(0.5),
		AccelX: noise(20),
		AccelY: noise(20),
		AccelZ: 16384 + noise(20),
		GyroX:  noise(5),
		GyroY:  noise(5),
		GyroZ:  noise(5),
	}
	// One finger bent at a time, two seconds each.
	bent := int(t/2) % 4
	for i := range r.Flex {
		r.Flex[i] = 2600 + int32(g.rng.Intn(100))
		if i == bent {
			r.Flex[i] = 1200 + int32(g.rng.Intn(100))
		}
	}
	return r
}

// Line returns the next sample in co-processor wire format.
func (g *syntheticGlove) Line() string {
	return sensor.FormatLine(g.reading())
}
