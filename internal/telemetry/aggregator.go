// Package telemetry holds the controller's latest filtered sensor state and
// its fixed 49-byte wire encoding.
package telemetry

import (
	"sync"

	"github.com/lume-glove/controller/internal/filter"
	"github.com/lume-glove/controller/internal/flex"
	"github.com/lume-glove/controller/internal/sensor"
)

// DataPacket is the filtered, differenced sensor state sent every tick.
type DataPacket struct {
	Pitch float32 `json:"pitch"`
	Roll  float32 `json:"roll"`
	Yaw   float32 `json:"yaw"`

	// Deltas are this tick's filtered orientation minus the previous tick's.
	DPitch float32 `json:"d_pitch"`
	DRoll  float32 `json:"d_roll"`
	DYaw   float32 `json:"d_yaw"`

	AccelX float32 `json:"acc_x"`
	AccelY float32 `json:"acc_y"`
	AccelZ float32 `json:"acc_z"`

	GyroX float32 `json:"gy_x"`
	GyroY float32 `json:"gy_y"`
	GyroZ float32 `json:"gy_z"`

	Flex0 bool `json:"flex0"`
	Flex1 bool `json:"flex1"`
	Flex2 bool `json:"flex2"`
}

// Aggregator owns the single DataPacket and the filters feeding it. The tick
// loop is the only writer; Packet hands out copies so readers on other
// goroutines (the debug page) never see a half-updated packet.
type Aggregator struct {
	bank       *filter.Bank
	classifier flex.Classifier

	mu     sync.Mutex
	packet DataPacket
}

// NewAggregator creates an aggregator over bank. The bank must not be shared
// with another aggregator.
func NewAggregator(bank *filter.Bank, classifier flex.Classifier) *Aggregator {
	return &Aggregator{bank: bank, classifier: classifier}
}

// UpdateOrientation filters the new orientation and records the change since
// the previous tick. The delta is taken before the stored value is replaced.
func (a *Aggregator) UpdateOrientation(pitch, roll, yaw float32) {
	p := a.bank.Process(filter.Pitch, pitch)
	r := a.bank.Process(filter.Roll, roll)
	y := a.bank.Process(filter.Yaw, yaw)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.packet.DPitch = p - a.packet.Pitch
	a.packet.DRoll = r - a.packet.Roll
	a.packet.DYaw = y - a.packet.Yaw
	a.packet.Pitch = p
	a.packet.Roll = r
	a.packet.Yaw = y
}

// UpdateAccel filters a new acceleration triple.
func (a *Aggregator) UpdateAccel(x, y, z float32) {
	fx := a.bank.Process(filter.AccelX, x)
	fy := a.bank.Process(filter.AccelY, y)
	fz := a.bank.Process(filter.AccelZ, z)

	a.mu.Lock()
	a.packet.AccelX, a.packet.AccelY, a.packet.AccelZ = fx, fy, fz
	a.mu.Unlock()
}

// UpdateGyro filters a new angular-velocity triple.
func (a *Aggregator) UpdateGyro(x, y, z float32) {
	fx := a.bank.Process(filter.GyroX, x)
	fy := a.bank.Process(filter.GyroY, y)
	fz := a.bank.Process(filter.GyroZ, z)

	a.mu.Lock()
	a.packet.GyroX, a.packet.GyroY, a.packet.GyroZ = fx, fy, fz
	a.mu.Unlock()
}

// UpdateFlex reclassifies the three flex sensors from raw readings.
func (a *Aggregator) UpdateFlex(f0, f1, f2 int32) {
	bent := a.classifier.ClassifyAll([flex.NumSensors]int32{f0, f1, f2})

	a.mu.Lock()
	a.packet.Flex0, a.packet.Flex1, a.packet.Flex2 = bent[0], bent[1], bent[2]
	a.mu.Unlock()
}

// Apply runs a full tick's updates for r and returns the resulting packet.
func (a *Aggregator) Apply(r sensor.Reading) DataPacket {
	a.UpdateFlex(r.Flex[0], r.Flex[1], r.Flex[2])
	a.UpdateAccel(r.AccelX, r.AccelY, r.AccelZ)
	a.UpdateGyro(r.GyroX, r.GyroY, r.GyroZ)
	a.UpdateOrientation(r.Pitch, r.Roll, r.Yaw)
	return a.Packet()
}

// Packet returns a copy of the current packet.
func (a *Aggregator) Packet() DataPacket {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packet
}
