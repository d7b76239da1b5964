package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lume-glove/controller/internal/timeutil"
)

func TestDiscovery_FirstDatagramWins(t *testing.T) {
	other := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 1}
	s, _, _ := newMockSession(t,
		MockUDPPacket{Data: []byte("hello"), Addr: testPeer},
		MockUDPPacket{Data: []byte("late"), Addr: other},
	)
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 5, PollInterval: time.Millisecond})
	assert.Equal(t, DiscoveryIdle, d.State())

	peer, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testPeer.String(), peer.String())
	assert.Equal(t, testPeer.String(), s.Peer().String())
	assert.Equal(t, DiscoveryDiscovered, d.State())
	assert.Equal(t, 1, d.Attempts())
}

func TestDiscovery_BoundedByAttempts(t *testing.T) {
	s, sock, _ := newMockSession(t)
	s.SetPeer(testPeer)
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 7, PollInterval: time.Millisecond})

	peer, err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrDiscoveryTimedOut)
	assert.Nil(t, peer)
	assert.Nil(t, s.Peer(), "a previous peer must not survive a failed run")
	assert.Equal(t, DiscoveryTimedOut, d.State())
	assert.Equal(t, 7, d.Attempts())
	assert.Equal(t, 7, sock.Reads())
}

func TestDiscovery_EmptyDatagramCountsAsAttempt(t *testing.T) {
	s, sock, _ := newMockSession(t,
		MockUDPPacket{Data: []byte{}, Addr: testPeer},
		MockUDPPacket{Data: []byte{0}, Addr: testPeer},
	)
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 3, PollInterval: time.Millisecond})

	peer, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, peer)
	assert.Equal(t, 2, d.Attempts())
	assert.Equal(t, 2, sock.Reads())
}

func TestDiscovery_EmptyDatagramsExhaustBudget(t *testing.T) {
	s, _, _ := newMockSession(t,
		MockUDPPacket{Data: nil, Addr: testPeer},
		MockUDPPacket{Data: nil, Addr: testPeer},
	)
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 2, PollInterval: time.Millisecond})

	_, err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrDiscoveryTimedOut)
	assert.Nil(t, s.Peer())
}

func TestDiscovery_CancelledContext(t *testing.T) {
	s, sock, _ := newMockSession(t, MockUDPPacket{Data: []byte("P"), Addr: testPeer})
	s.SetPeer(testPeer)
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 10, PollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	peer, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, peer)
	assert.Nil(t, s.Peer())
	assert.Equal(t, DiscoveryIdle, d.State())
	assert.Zero(t, sock.Reads())
}

func TestDiscovery_WallClockCap(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	s, sock, _ := newMockSession(t)
	sock.TimeoutDelay = time.Millisecond
	d := NewDiscovery(s, DiscoveryConfig{
		MaxAttempts:  100000,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
		Clock:        clock,
	})

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return sock.Reads() >= 3 }, time.Second, time.Millisecond)
	clock.Advance(2 * time.Second)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDiscoveryTimedOut)
	case <-time.After(2 * time.Second):
		t.Fatal("discovery ignored the wall-clock cap")
	}
	assert.Less(t, d.Attempts(), 100000)
	assert.Equal(t, DiscoveryTimedOut, d.State())
}

func TestDiscovery_SocketErrorAborts(t *testing.T) {
	s, sock, _ := newMockSession(t)
	require.NoError(t, s.Open())
	sock.ReadError = errors.New("socket gone")
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 10, PollInterval: time.Millisecond})

	_, err := d.Run(context.Background())
	assert.ErrorContains(t, err, "socket gone")
	assert.NotErrorIs(t, err, ErrDiscoveryTimedOut)
	assert.Equal(t, DiscoveryIdle, d.State())
	assert.Equal(t, 1, d.Attempts())
}

func TestDiscovery_OpenFailure(t *testing.T) {
	s, _, factory := newMockSession(t)
	factory.Error = errors.New("bind failed")
	d := NewDiscovery(s, DiscoveryConfig{})

	_, err := d.Run(context.Background())
	assert.ErrorContains(t, err, "bind failed")
	assert.Equal(t, DiscoveryIdle, d.State())
}

func TestDiscovery_RerunAfterTimeout(t *testing.T) {
	s, sock, _ := newMockSession(t)
	d := NewDiscovery(s, DiscoveryConfig{MaxAttempts: 2, PollInterval: time.Millisecond})

	_, err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrDiscoveryTimedOut)

	sock.QueuePackets(MockUDPPacket{Data: []byte("P"), Addr: testPeer})
	peer, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testPeer.Port, peer.Port)
	assert.Equal(t, DiscoveryDiscovered, d.State())
	assert.Equal(t, 1, d.Attempts())
}

func TestDiscovery_Defaults(t *testing.T) {
	s, _, _ := newMockSession(t)
	d := NewDiscovery(s, DiscoveryConfig{})
	assert.Equal(t, DefaultMaxAttempts, d.maxAttempts)
	assert.Equal(t, DefaultPollInterval, d.pollInterval)
	assert.Zero(t, d.timeout)
}

func TestDiscoveryState_String(t *testing.T) {
	assert.Equal(t, "idle", DiscoveryIdle.String())
	assert.Equal(t, "listening", DiscoveryListening.String())
	assert.Equal(t, "discovered", DiscoveryDiscovered.String())
	assert.Equal(t, "timed-out", DiscoveryTimedOut.String())
	assert.Equal(t, "DiscoveryState(9)", DiscoveryState(9).String())
}
