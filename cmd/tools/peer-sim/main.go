// Package main is a minimal telemetry peer for bench testing a controller:
// it greets the controller, then prints every frame and control command it
// receives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/telemetry"
)

var (
	controllerAddr = flag.String("controller", "127.0.0.1:8888", "Controller UDP address")
	greeting       = flag.String("greeting", "P", "Greeting payload sent to the controller")
	regreet        = flag.Duration("regreet", time.Second, "Greet again after this long without a frame")
	count          = flag.Int("count", 0, "Exit after this many frames (0 = run until interrupted)")
	quiet          = flag.Bool("quiet", false, "Only print control commands and the final summary")
)

// Stats counts what the peer received.
type Stats struct {
	Frames    int
	Controls  int
	Malformed int
	Greetings int
	First     time.Time
	Last      time.Time
}

// Rate is the mean frame rate between the first and last frame.
func (s Stats) Rate() float64 {
	span := s.Last.Sub(s.First).Seconds()
	if s.Frames < 2 || span <= 0 {
		return 0
	}
	return float64(s.Frames-1) / span
}

type peer struct {
	conn     *net.UDPConn
	target   *net.UDPAddr
	greeting []byte
	regreet  time.Duration

	onFrame   func(telemetry.DataPacket)
	onControl func(network.ControlCommand)
	onOther   func([]byte)
}

func (p *peer) greet() error {
	_, err := p.conn.WriteToUDP(p.greeting, p.target)
	return err
}

// run greets the controller and reads until ctx is done or max frames have
// arrived. The greeting is repeated while the controller is silent.
func (p *peer) run(ctx context.Context, max int) (Stats, error) {
	var st Stats
	stop := context.AfterFunc(ctx, func() { p.conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, 2048)
	lastHeard := time.Time{}
	for max <= 0 || st.Frames < max {
		if ctx.Err() != nil {
			return st, nil
		}
		if time.Since(lastHeard) >= p.regreet {
			if err := p.greet(); err != nil {
				return st, fmt.Errorf("greet %s: %w", p.target, err)
			}
			st.Greetings++
			lastHeard = time.Now()
		}

		if err := p.conn.SetReadDeadline(time.Now().Add(p.regreet)); err != nil {
			return st, err
		}
		// A cancel between the check above and the new deadline would be lost.
		if ctx.Err() != nil {
			return st, nil
		}
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return st, err
		}

		data := buf[:n]
		switch {
		case n == telemetry.FrameSize:
			pkt, err := telemetry.DecodeFrame(data)
			if err != nil {
				st.Malformed++
				continue
			}
			now := time.Now()
			if st.Frames == 0 {
				st.First = now
			}
			st.Last = now
			st.Frames++
			lastHeard = now
			if p.onFrame != nil {
				p.onFrame(pkt)
			}
		default:
			if cmd, ok := network.ParseControl(data); ok {
				st.Controls++
				lastHeard = time.Now()
				if p.onControl != nil {
					p.onControl(cmd)
				}
				continue
			}
			st.Malformed++
			if p.onOther != nil {
				p.onOther(data)
			}
		}
	}
	return st, nil
}

func main() {
	flag.Parse()

	target, err := net.ResolveUDPAddr("udp", *controllerAddr)
	if err != nil {
		log.Fatalf("invalid controller address: %v", err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		log.Fatalf("failed to open UDP socket: %v", err)
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := &peer{
		conn:     conn,
		target:   target,
		greeting: []byte(*greeting),
		regreet:  *regreet,
		onFrame: func(pkt telemetry.DataPacket) {
			if !*quiet {
				fmt.Println(pkt)
			}
		},
		onControl: func(cmd network.ControlCommand) {
			fmt.Printf("control %s (%s)\n", cmd, cmd.Payload())
		},
		onOther: func(b []byte) {
			if !*quiet {
				fmt.Printf("unrecognised %d-byte datagram %q\n", len(b), b)
			}
		},
	}

	log.Printf("peer %s greeting controller %s", conn.LocalAddr(), target)
	st, err := p.run(ctx, *count)
	log.Printf("received %d frames (%.1f Hz), %d control, %d malformed; sent %d greetings",
		st.Frames, st.Rate(), st.Controls, st.Malformed, st.Greetings)
	if err != nil {
		log.Printf("peer stopped: %v", err)
		os.Exit(1)
	}
}
