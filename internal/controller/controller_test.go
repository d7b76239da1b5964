package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lume-glove/controller/internal/filter"
	"github.com/lume-glove/controller/internal/flex"
	"github.com/lume-glove/controller/internal/monitoring"
	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/sensor"
	"github.com/lume-glove/controller/internal/telemetry"
	"github.com/lume-glove/controller/internal/timeutil"
)

var (
	peerA = &net.UDPAddr{IP: net.IPv4(192, 168, 4, 2), Port: 40000}
	peerB = &net.UDPAddr{IP: net.IPv4(192, 168, 4, 3), Port: 40001}
)

// funcSource returns readFn(i) for the i-th Read call.
type funcSource struct {
	mu     sync.Mutex
	calls  int
	readFn func(i int) (sensor.Reading, error)
}

func (s *funcSource) Read() (sensor.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	return s.readFn(i)
}

func constantSource(r sensor.Reading) *funcSource {
	return &funcSource{readFn: func(int) (sensor.Reading, error) { return r, nil }}
}

type harness struct {
	ctrl    *Controller
	sock    *network.MockUDPSocket
	factory *network.MockUDPSocketFactory
	session *network.Session
	disc    *network.Discovery
	clock   *timeutil.MockClock
	agg     *telemetry.Aggregator
}

func newHarness(t *testing.T, cfg Config, src sensor.Source, discCfg network.DiscoveryConfig, packets ...network.MockUDPPacket) *harness {
	t.Helper()
	sock := network.NewMockUDPSocket(packets)
	return newHarnessWithFactory(t, cfg, src, discCfg, sock, network.NewMockUDPSocketFactory(sock))
}

func newHarnessWithFactory(t *testing.T, cfg Config, src sensor.Source, discCfg network.DiscoveryConfig, sock *network.MockUDPSocket, factory network.UDPSocketFactory) *harness {
	t.Helper()
	identity, err := filter.NewCoefficientTable("identity", []float32{1})
	require.NoError(t, err)
	bank, err := filter.NewBank(filter.UniformBankConfig(identity))
	require.NoError(t, err)

	h := &harness{
		sock:  sock,
		clock: timeutil.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		agg:   telemetry.NewAggregator(bank, flex.NewClassifier(flex.DefaultThreshold)),
	}
	h.factory, _ = factory.(*network.MockUDPSocketFactory)
	h.session = network.NewSession(network.SessionConfig{Address: ":8888", Factory: factory})
	if discCfg.PollInterval == 0 {
		discCfg.PollInterval = time.Millisecond
	}
	discCfg.Clock = h.clock
	h.disc = network.NewDiscovery(h.session, discCfg)

	h.ctrl, err = New(cfg, Deps{
		Source:     src,
		Aggregator: h.agg,
		Session:    h.session,
		Discovery:  h.disc,
		Clock:      h.clock,
	})
	require.NoError(t, err)
	return h
}

// unreachablePeer fails every write addressed to one peer.
type unreachablePeer struct {
	*network.MockUDPSocket
	bad *net.UDPAddr
}

func (u unreachablePeer) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	if addr.String() == u.bad.String() {
		return 0, errors.New("host unreachable")
	}
	return u.MockUDPSocket.WriteToUDP(b, addr)
}

type socketFactory struct{ sock network.UDPSocket }

func (f socketFactory) ListenUDP(string, *net.UDPAddr) (network.UDPSocket, error) { return f.sock, nil }

func (h *harness) frames(t *testing.T) []telemetry.DataPacket {
	t.Helper()
	var out []telemetry.DataPacket
	for _, w := range h.sock.Written() {
		if _, ok := network.ParseControl(w.Data); ok {
			continue
		}
		p, err := telemetry.DecodeFrame(w.Data)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	h := newHarness(t, Config{}, constantSource(sensor.Reading{}), network.DiscoveryConfig{})
	assert.Equal(t, 15*time.Millisecond, h.ctrl.cfg.TickInterval)
	assert.Equal(t, time.Minute, h.ctrl.cfg.StatsInterval)
	assert.Len(t, h.ctrl.ID(), 36)
}

func TestTick_BeforeDiscoveryDoesNoIO(t *testing.T) {
	h := newHarness(t, Config{}, constantSource(sensor.Reading{Pitch: 1}), network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())

	err := h.ctrl.Tick()
	assert.ErrorIs(t, err, network.ErrSendBeforeDiscovery)
	assert.Empty(t, h.sock.Written())
	assert.Equal(t, int64(1), h.ctrl.Stats().Snapshot().SendErrors)
}

func TestTick_SendsOneFrame(t *testing.T) {
	r := sensor.Reading{
		Pitch: 5, Roll: 6, Yaw: 7,
		AccelX: 1, AccelY: 2, AccelZ: 3,
		GyroX: -1, GyroY: -2, GyroZ: -3,
		Flex: [3]int32{100, 4000, 1700},
	}
	h := newHarness(t, Config{}, constantSource(r), network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())
	h.session.SetPeer(peerA)

	require.NoError(t, h.ctrl.Tick())

	w := h.sock.Written()
	require.Len(t, w, 1)
	assert.Len(t, w[0].Data, telemetry.FrameSize)
	assert.Equal(t, peerA.String(), w[0].Addr.String())

	got := h.frames(t)[0]
	assert.Equal(t, telemetry.DataPacket{
		Pitch: 5, Roll: 6, Yaw: 7, DPitch: 5, DRoll: 6, DYaw: 7,
		AccelX: 1, AccelY: 2, AccelZ: 3,
		GyroX: -1, GyroY: -2, GyroZ: -3,
		Flex0: true, Flex1: false, Flex2: true,
	}, got)

	s := h.ctrl.Stats().Snapshot()
	assert.Equal(t, int64(1), s.FramesSent)
	assert.Equal(t, int64(telemetry.FrameSize), s.BytesSent)
}

func TestTick_OrientationScenario(t *testing.T) {
	pitches := []float32{0, 10, 10}
	src := &funcSource{readFn: func(i int) (sensor.Reading, error) {
		return sensor.Reading{Pitch: pitches[i], Roll: pitches[i], Yaw: pitches[i]}, nil
	}}
	h := newHarness(t, Config{}, src, network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())
	h.session.SetPeer(peerA)

	for range pitches {
		require.NoError(t, h.ctrl.Tick())
	}

	var filtered, deltas []float32
	for _, p := range h.frames(t) {
		filtered = append(filtered, p.Pitch)
		deltas = append(deltas, p.DYaw)
	}
	assert.Equal(t, []float32{0, 10, 10}, filtered)
	assert.Equal(t, []float32{0, 10, 0}, deltas)
}

func TestTick_SensorErrorSkipsSend(t *testing.T) {
	src := &funcSource{readFn: func(i int) (sensor.Reading, error) {
		if i == 1 {
			return sensor.Reading{}, sensor.ErrNoSample
		}
		return sensor.Reading{AccelX: float32(i)}, nil
	}}
	h := newHarness(t, Config{}, src, network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())
	h.session.SetPeer(peerA)

	require.NoError(t, h.ctrl.Tick())
	assert.ErrorIs(t, h.ctrl.Tick(), sensor.ErrNoSample)
	require.NoError(t, h.ctrl.Tick())

	frames := h.frames(t)
	require.Len(t, frames, 2)
	assert.Equal(t, float32(0), frames[0].AccelX)
	assert.Equal(t, float32(2), frames[1].AccelX)
	assert.Equal(t, int64(1), h.ctrl.Stats().Snapshot().SensorErrors)
	assert.Equal(t, int64(3), h.ctrl.Stats().Snapshot().Ticks)
}

func TestLogTickError_LevelFollowsErrorKind(t *testing.T) {
	var (
		mu       sync.Mutex
		warnings []string
	)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasPrefix(format, "Warning:") {
			warnings = append(warnings, fmt.Sprintf(format, v...))
		}
	})
	monitoring.SetVerbose(false)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	// One failed send, then the sensor goes quiet.
	src := &funcSource{readFn: func(i int) (sensor.Reading, error) {
		if i == 0 {
			return sensor.Reading{}, nil
		}
		return sensor.Reading{}, sensor.ErrNoSample
	}}
	sock := network.NewMockUDPSocket(nil)
	h := newHarnessWithFactory(t, Config{}, src, network.DiscoveryConfig{}, sock, socketFactory{unreachablePeer{sock, peerA}})
	require.NoError(t, h.session.Open())
	h.session.SetPeer(peerA)

	for i := 0; i < 5; i++ {
		if err := h.ctrl.Tick(); err != nil {
			h.ctrl.logTickError(err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "send frame")
	assert.Contains(t, warnings[1], "read sensor")
}

func TestSendControl_ConcurrentWithTicks(t *testing.T) {
	h := newHarness(t, Config{}, constantSource(sensor.Reading{Pitch: 1}), network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())
	h.session.SetPeer(peerA)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, h.ctrl.SendControl(network.ControlGestureMode))
		}
	}()
	for i := 0; i < 50; i++ {
		require.NoError(t, h.ctrl.Tick())
	}
	wg.Wait()

	assert.Len(t, h.frames(t), 50)
	assert.Len(t, h.sock.Written(), 100)
	assert.Equal(t, int64(50), h.ctrl.Stats().Snapshot().ControlsSent)
}

func TestTick_ReportsHardwareFailureOnce(t *testing.T) {
	failing := true
	src := &funcSource{readFn: func(int) (sensor.Reading, error) {
		if failing {
			return sensor.Reading{}, errors.New("i2c nack")
		}
		return sensor.Reading{}, nil
	}}
	h := newHarness(t, Config{HardwareFailureThreshold: 3}, src, network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())
	h.session.SetPeer(peerA)

	controls := func() []network.ControlCommand {
		var out []network.ControlCommand
		for _, w := range h.sock.Written() {
			if c, ok := network.ParseControl(w.Data); ok {
				out = append(out, c)
			}
		}
		return out
	}

	for i := 0; i < 2; i++ {
		assert.Error(t, h.ctrl.Tick())
	}
	assert.Empty(t, controls())

	for i := 0; i < 5; i++ {
		assert.Error(t, h.ctrl.Tick())
	}
	assert.Equal(t, []network.ControlCommand{network.ControlHardwareFailure}, controls())

	// Recovery re-arms the report.
	failing = false
	require.NoError(t, h.ctrl.Tick())
	failing = true
	for i := 0; i < 3; i++ {
		assert.Error(t, h.ctrl.Tick())
	}
	assert.Len(t, controls(), 2)
	assert.Equal(t, int64(2), h.ctrl.Stats().Snapshot().ControlsSent)
}

func TestDiscover_RetriesWithBackoff(t *testing.T) {
	h := newHarness(t, Config{DiscoveryBackoff: 500 * time.Millisecond}, constantSource(sensor.Reading{}),
		network.DiscoveryConfig{MaxAttempts: 2},
		network.MockUDPPacket{Data: nil, Addr: peerB},
		network.MockUDPPacket{Data: nil, Addr: peerB},
		network.MockUDPPacket{Data: []byte("P"), Addr: peerA},
	)

	require.NoError(t, h.ctrl.Discover(context.Background()))

	assert.Equal(t, peerA.String(), h.session.Peer().String())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, h.clock.Waits())
	s := h.ctrl.Stats().Snapshot()
	assert.Equal(t, int64(2), s.DiscoveryRuns)
	assert.Equal(t, int64(1), s.DiscoveryTimeouts)
}

func TestDiscover_Cancelled(t *testing.T) {
	h := newHarness(t, Config{}, constantSource(sensor.Reading{}), network.DiscoveryConfig{MaxAttempts: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.ctrl.Discover(ctx), context.Canceled)
	assert.Nil(t, h.session.Peer())
}

func TestDiscover_BindFailureIsFatal(t *testing.T) {
	h := newHarness(t, Config{}, constantSource(sensor.Reading{}), network.DiscoveryConfig{MaxAttempts: 1})
	h.factory.Error = errors.New("address in use")

	err := h.ctrl.Discover(context.Background())
	assert.ErrorContains(t, err, "address in use")
	assert.Empty(t, h.clock.Waits())
}

func TestRun_StreamsAfterDiscovery(t *testing.T) {
	h := newHarness(t, Config{TickInterval: 15 * time.Millisecond}, constantSource(sensor.Reading{Yaw: 3}),
		network.DiscoveryConfig{MaxAttempts: 10},
		network.MockUDPPacket{Data: []byte("hello"), Addr: peerA},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.clock.Tickers()) == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		h.clock.Advance(15 * time.Millisecond)
		return len(h.sock.Written()) >= 3
	}, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	for _, w := range h.sock.Written() {
		assert.Equal(t, peerA.String(), w.Addr.String())
		assert.Len(t, w.Data, telemetry.FrameSize)
	}
	for _, tk := range h.clock.Tickers() {
		assert.True(t, tk.Stopped())
	}
}

func TestRun_RediscoversAfterSendFailures(t *testing.T) {
	sock := network.NewMockUDPSocket([]network.MockUDPPacket{
		{Data: []byte("P"), Addr: peerA},
		{Data: []byte("P"), Addr: peerB},
	})
	h := newHarnessWithFactory(t, Config{RediscoverAfter: 2}, constantSource(sensor.Reading{}),
		network.DiscoveryConfig{MaxAttempts: 10}, sock, socketFactory{unreachablePeer{sock, peerA}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.clock.Tickers()) == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		h.clock.Advance(15 * time.Millisecond)
		return len(h.sock.Written()) > 0
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, peerB.String(), h.session.Peer().String())
	assert.Equal(t, peerB.String(), h.sock.Written()[0].Addr.String())

	cancel()
	assert.NoError(t, <-done)
	s := h.ctrl.Stats().Snapshot()
	assert.Equal(t, int64(2), s.DiscoveryRuns)
	assert.Equal(t, int64(2), s.SendErrors)
}

func TestRun_CancelledDuringDiscovery(t *testing.T) {
	h := newHarness(t, Config{}, constantSource(sensor.Reading{}), network.DiscoveryConfig{MaxAttempts: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, h.ctrl.Run(ctx))
}
