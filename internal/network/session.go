// Package network owns the controller's single UDP socket: peer discovery,
// telemetry frames out, and control datagrams.
package network

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lume-glove/controller/internal/monitoring"
)

// DefaultAddress is the port the controller listens on for a peer greeting.
const DefaultAddress = ":8888"

// maxDatagram bounds a single read. Greetings are tiny; anything longer is
// truncated.
const maxDatagram = 2048

var (
	// ErrSendBeforeDiscovery is returned by Send when no peer is known.
	ErrSendBeforeDiscovery = errors.New("send before peer discovery")
	// ErrSessionClosed is returned when the socket is used after Close.
	ErrSessionClosed = errors.New("session closed")
)

// Datagram is one received UDP payload.
type Datagram struct {
	Data []byte
	Addr *net.UDPAddr
}

// SessionConfig contains configuration options for a Session.
type SessionConfig struct {
	Address string
	Factory UDPSocketFactory
	RcvBuf  int
}

// Session is the telemetry transport: one socket used both to hear the peer
// greeting and to send frames back to it.
type Session struct {
	address string
	factory UDPSocketFactory
	rcvBuf  int

	mu     sync.Mutex
	sock   UDPSocket
	closed bool
	peer   *net.UDPAddr

	buf []byte
}

// NewSession creates a session; the socket is bound by Open.
func NewSession(config SessionConfig) *Session {
	address := config.Address
	if address == "" {
		address = DefaultAddress
	}
	factory := config.Factory
	if factory == nil {
		factory = NewRealUDPSocketFactory()
	}
	return &Session{
		address: address,
		factory: factory,
		rcvBuf:  config.RcvBuf,
		buf:     make([]byte, maxDatagram),
	}
}

// Open binds the socket. Calling Open on a bound session is a no-op.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.sock != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", s.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	sock, err := s.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	if s.rcvBuf > 0 {
		if err := sock.SetReadBuffer(s.rcvBuf); err != nil {
			monitoring.Logf("Warning: Failed to set UDP receive buffer size to %d: %v", s.rcvBuf, err)
		}
	}
	s.sock = sock
	monitoring.Logf("UDP session bound on %s", sock.LocalAddr())
	return nil
}

// Close releases the socket. The session cannot be reopened.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.peer = nil
	if s.sock == nil {
		return nil
	}
	err := s.sock.Close()
	s.sock = nil
	return err
}

// Address returns the configured listen address.
func (s *Session) Address() string { return s.address }

// LocalAddr returns the bound address, or nil before Open.
func (s *Session) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sock == nil {
		return nil
	}
	return s.sock.LocalAddr()
}

func (s *Session) socket() (UDPSocket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.sock == nil {
		return nil, fmt.Errorf("session not open")
	}
	return s.sock, nil
}

// Peer returns a copy of the current destination, or nil.
func (s *Session) Peer() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAddr(s.peer)
}

// SetPeer records addr as the telemetry destination.
func (s *Session) SetPeer(addr *net.UDPAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = copyAddr(addr)
}

// ClearPeer forgets the destination; Send fails until a new peer is set.
func (s *Session) ClearPeer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = nil
}

// Send transmits one datagram to the peer. There is no retry.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	peer := s.peer
	sock := s.sock
	closed := s.closed
	s.mu.Unlock()

	if peer == nil {
		return ErrSendBeforeDiscovery
	}
	if closed || sock == nil {
		return ErrSessionClosed
	}
	n, err := sock.WriteToUDP(frame, peer)
	if err != nil {
		return fmt.Errorf("send to %s: %w", peer, err)
	}
	if n != len(frame) {
		return fmt.Errorf("send to %s: short write %d of %d bytes", peer, n, len(frame))
	}
	return nil
}

// SendControl sends a control command to the peer.
func (s *Session) SendControl(cmd ControlCommand) error {
	if !cmd.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownControl, int(cmd))
	}
	return s.Send(cmd.Payload())
}

// ListenOnce waits up to wait for a single datagram. An expired wait reports
// ok == false with a nil error. The returned Data is only valid until the
// next ListenOnce call.
func (s *Session) ListenOnce(wait time.Duration) (Datagram, bool, error) {
	sock, err := s.socket()
	if err != nil {
		return Datagram{}, false, err
	}
	if err := sock.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return Datagram{}, false, fmt.Errorf("set read deadline: %w", err)
	}
	n, addr, err := sock.ReadFromUDP(s.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Datagram{}, false, nil
		}
		return Datagram{}, false, err
	}
	return Datagram{Data: s.buf[:n], Addr: addr}, true, nil
}

func copyAddr(a *net.UDPAddr) *net.UDPAddr {
	if a == nil {
		return nil
	}
	c := *a
	c.IP = append(net.IP(nil), a.IP...)
	return &c
}
