package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lume-glove/controller/internal/filter"
	"github.com/lume-glove/controller/internal/flex"
	"github.com/lume-glove/controller/internal/sensor"
)

// newIdentityAggregator uses a one-tap unit-gain filter so filtered values
// equal the raw input.
func newIdentityAggregator(t *testing.T) *Aggregator {
	t.Helper()
	identity, err := filter.NewCoefficientTable("identity", []float32{1})
	require.NoError(t, err)
	bank, err := filter.NewBank(filter.UniformBankConfig(identity))
	require.NoError(t, err)
	return NewAggregator(bank, flex.NewClassifier(1500))
}

func TestAggregator_OrientationIdentityScenario(t *testing.T) {
	agg := newIdentityAggregator(t)

	var filtered, deltas []float32
	for _, raw := range []float32{0, 10, 10} {
		agg.UpdateOrientation(raw, raw, raw)
		p := agg.Packet()
		filtered = append(filtered, p.Pitch)
		deltas = append(deltas, p.DPitch)

		assert.Equal(t, p.Pitch, p.Roll)
		assert.Equal(t, p.Pitch, p.Yaw)
		assert.Equal(t, p.DPitch, p.DRoll)
		assert.Equal(t, p.DPitch, p.DYaw)
	}

	assert.Equal(t, []float32{0, 10, 10}, filtered)
	assert.Equal(t, []float32{0, 10, 0}, deltas)
}

func TestAggregator_DeltaIsSingleTick(t *testing.T) {
	// A two-tap averaging filter makes the filtered values differ from the
	// raw input, so this checks f3-f2 rather than raw differences.
	avg, err := filter.NewCoefficientTable("avg", []float32{0.5, 0.5})
	require.NoError(t, err)
	bank, err := filter.NewBank(filter.UniformBankConfig(avg))
	require.NoError(t, err)
	agg := NewAggregator(bank, flex.NewClassifier(flex.DefaultThreshold))

	var f []float32
	for _, raw := range []float32{4, 8, 20} {
		agg.UpdateOrientation(raw, -raw, 2*raw)
		f = append(f, agg.Packet().Pitch)
	}
	require.Equal(t, []float32{2, 6, 14}, f)

	p := agg.Packet()
	assert.Equal(t, f[2]-f[1], p.DPitch)
	assert.NotEqual(t, f[2]-f[0], p.DPitch)
	assert.Equal(t, float32(-8), p.DRoll)
	assert.Equal(t, float32(16), p.DYaw)
}

func TestAggregator_AccelGyroFlex(t *testing.T) {
	agg := newIdentityAggregator(t)

	agg.UpdateAccel(1, 2, 3)
	agg.UpdateGyro(-4, -5, -6)
	agg.UpdateFlex(1499, 1500, 1501)

	p := agg.Packet()
	assert.Equal(t, DataPacket{
		AccelX: 1, AccelY: 2, AccelZ: 3,
		GyroX: -4, GyroY: -5, GyroZ: -6,
		Flex0: true, Flex1: true, Flex2: false,
	}, p)

	// Flex flags carry no history.
	agg.UpdateFlex(4000, 4000, 0)
	p = agg.Packet()
	assert.False(t, p.Flex0)
	assert.False(t, p.Flex1)
	assert.True(t, p.Flex2)
}

func TestAggregator_PacketIsCopy(t *testing.T) {
	agg := newIdentityAggregator(t)
	agg.UpdateAccel(1, 1, 1)

	p := agg.Packet()
	p.AccelX = 99
	assert.Equal(t, float32(1), agg.Packet().AccelX)
}

func TestAggregator_Apply(t *testing.T) {
	agg := newIdentityAggregator(t)

	r := sensor.Reading{
		Pitch: 1, Roll: 2, Yaw: 3,
		AccelX: 4, AccelY: 5, AccelZ: 6,
		GyroX: 7, GyroY: 8, GyroZ: 9,
		Flex: [3]int32{100, 2000, 1500},
	}
	got := agg.Apply(r)
	assert.Equal(t, DataPacket{
		Pitch: 1, Roll: 2, Yaw: 3,
		DPitch: 1, DRoll: 2, DYaw: 3,
		AccelX: 4, AccelY: 5, AccelZ: 6,
		GyroX: 7, GyroY: 8, GyroZ: 9,
		Flex0: true, Flex1: false, Flex2: true,
	}, got)
	assert.Equal(t, got, agg.Packet())
}
