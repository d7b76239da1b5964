package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lume-glove/controller/internal/monitoring"
	"github.com/lume-glove/controller/internal/timeutil"
)

const (
	DefaultMaxAttempts  = 100
	DefaultPollInterval = 10 * time.Millisecond
)

// ErrDiscoveryTimedOut is returned when the attempt budget or wall-clock cap
// runs out without hearing from a peer.
var ErrDiscoveryTimedOut = errors.New("peer discovery timed out")

// DiscoveryState is the position of a Discovery in its lifecycle.
type DiscoveryState int

const (
	DiscoveryIdle DiscoveryState = iota
	DiscoveryListening
	DiscoveryDiscovered
	DiscoveryTimedOut
)

func (s DiscoveryState) String() string {
	switch s {
	case DiscoveryIdle:
		return "idle"
	case DiscoveryListening:
		return "listening"
	case DiscoveryDiscovered:
		return "discovered"
	case DiscoveryTimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("DiscoveryState(%d)", int(s))
	}
}

// DiscoveryConfig bounds a discovery run. Zero values select the defaults;
// a zero Timeout means no wall-clock cap.
type DiscoveryConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        timeutil.Clock
}

// Discovery waits for a peer greeting on the session's socket. The first
// non-empty datagram's sender becomes the telemetry destination. The payload
// itself is not inspected.
type Discovery struct {
	session      *Session
	maxAttempts  int
	pollInterval time.Duration
	timeout      time.Duration
	clock        timeutil.Clock

	mu       sync.Mutex
	state    DiscoveryState
	attempts int
}

// NewDiscovery creates a discovery bound to session.
func NewDiscovery(session *Session, config DiscoveryConfig) *Discovery {
	d := &Discovery{
		session:      session,
		maxAttempts:  config.MaxAttempts,
		pollInterval: config.PollInterval,
		timeout:      config.Timeout,
		clock:        config.Clock,
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = DefaultMaxAttempts
	}
	if d.pollInterval <= 0 {
		d.pollInterval = DefaultPollInterval
	}
	if d.clock == nil {
		d.clock = timeutil.RealClock{}
	}
	return d
}

// State returns the current lifecycle state.
func (d *Discovery) State() DiscoveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Attempts returns how many listen attempts the latest run made.
func (d *Discovery) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *Discovery) set(state DiscoveryState, attempts int) {
	d.mu.Lock()
	d.state = state
	d.attempts = attempts
	d.mu.Unlock()
}

// Run listens for a peer. It makes at most MaxAttempts listen calls, each
// waiting up to PollInterval, and stops early on the wall-clock cap or ctx.
// Any previous peer is forgotten when the run starts. Run may be called
// again after it returns, whatever the outcome.
func (d *Discovery) Run(ctx context.Context) (*net.UDPAddr, error) {
	if err := d.session.Open(); err != nil {
		d.set(DiscoveryIdle, 0)
		return nil, err
	}
	d.session.ClearPeer()
	d.set(DiscoveryListening, 0)
	monitoring.Debugf("discovery: listening on %s (max %d attempts, %v each)", d.session.LocalAddr(), d.maxAttempts, d.pollInterval)

	start := d.clock.Now()
	attempts := 0
	for attempts < d.maxAttempts {
		if err := ctx.Err(); err != nil {
			d.session.ClearPeer()
			d.set(DiscoveryIdle, attempts)
			return nil, err
		}
		if d.timeout > 0 && d.clock.Since(start) >= d.timeout {
			break
		}

		dg, ok, err := d.session.ListenOnce(d.pollInterval)
		attempts++
		if err != nil {
			d.session.ClearPeer()
			d.set(DiscoveryIdle, attempts)
			return nil, fmt.Errorf("discovery attempt %d: %w", attempts, err)
		}
		if !ok || len(dg.Data) == 0 || dg.Addr == nil {
			d.set(DiscoveryListening, attempts)
			continue
		}

		d.session.SetPeer(dg.Addr)
		d.set(DiscoveryDiscovered, attempts)
		monitoring.Logf("discovery: peer %s after %d attempts", dg.Addr, attempts)
		return d.session.Peer(), nil
	}

	d.session.ClearPeer()
	d.set(DiscoveryTimedOut, attempts)
	return nil, fmt.Errorf("%w after %d attempts in %v", ErrDiscoveryTimedOut, attempts, d.clock.Since(start))
}
