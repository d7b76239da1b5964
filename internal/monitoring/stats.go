package monitoring

import (
	"sync/atomic"
	"time"
)

// TelemetryStats counts pipeline events. All methods are safe for concurrent
// use; the tick loop writes while the debug page reads.
type TelemetryStats struct {
	ticks             atomic.Int64
	framesSent        atomic.Int64
	bytesSent         atomic.Int64
	sendErrors        atomic.Int64
	sensorErrors      atomic.Int64
	discoveryRuns     atomic.Int64
	discoveryTimeouts atomic.Int64
	controlsSent      atomic.Int64

	// interval counters, reset by LogStats
	intervalFrames atomic.Int64
	intervalBytes  atomic.Int64
	lastLog        atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Ticks             int64 `json:"ticks"`
	FramesSent        int64 `json:"frames_sent"`
	BytesSent         int64 `json:"bytes_sent"`
	SendErrors        int64 `json:"send_errors"`
	SensorErrors      int64 `json:"sensor_errors"`
	DiscoveryRuns     int64 `json:"discovery_runs"`
	DiscoveryTimeouts int64 `json:"discovery_timeouts"`
	ControlsSent      int64 `json:"controls_sent"`
}

// NewTelemetryStats creates a zeroed stats collector.
func NewTelemetryStats() *TelemetryStats {
	s := &TelemetryStats{}
	s.lastLog.Store(time.Now().UnixNano())
	return s
}

func (s *TelemetryStats) AddTick() { s.ticks.Add(1) }

// AddFrame records a frame of n bytes handed to the socket.
func (s *TelemetryStats) AddFrame(n int) {
	s.framesSent.Add(1)
	s.bytesSent.Add(int64(n))
	s.intervalFrames.Add(1)
	s.intervalBytes.Add(int64(n))
}

func (s *TelemetryStats) AddSendError()   { s.sendErrors.Add(1) }
func (s *TelemetryStats) AddSensorError() { s.sensorErrors.Add(1) }
func (s *TelemetryStats) AddControl()     { s.controlsSent.Add(1) }

// AddDiscovery records one discovery run and whether it timed out.
func (s *TelemetryStats) AddDiscovery(timedOut bool) {
	s.discoveryRuns.Add(1)
	if timedOut {
		s.discoveryTimeouts.Add(1)
	}
}

// Snapshot returns the current totals.
func (s *TelemetryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Ticks:             s.ticks.Load(),
		FramesSent:        s.framesSent.Load(),
		BytesSent:         s.bytesSent.Load(),
		SendErrors:        s.sendErrors.Load(),
		SensorErrors:      s.sensorErrors.Load(),
		DiscoveryRuns:     s.discoveryRuns.Load(),
		DiscoveryTimeouts: s.discoveryTimeouts.Load(),
		ControlsSent:      s.controlsSent.Load(),
	}
}

// LogStats logs the frame rate since the previous call plus running error
// totals, then resets the interval counters.
func (s *TelemetryStats) LogStats() {
	now := time.Now().UnixNano()
	elapsed := time.Duration(now - s.lastLog.Swap(now))
	frames := s.intervalFrames.Swap(0)
	bytes := s.intervalBytes.Swap(0)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(frames) / elapsed.Seconds()
	}
	snap := s.Snapshot()
	Logf("telemetry: %d frames (%.1f Hz, %d bytes) in %v; totals sent=%d send_errors=%d sensor_errors=%d discovery_timeouts=%d",
		frames, rate, bytes, elapsed.Round(time.Millisecond),
		snap.FramesSent, snap.SendErrors, snap.SensorErrors, snap.DiscoveryTimeouts)
}
