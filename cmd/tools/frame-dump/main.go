// Package main decodes glove telemetry traffic from a packet capture: peer
// greetings, 49-byte telemetry frames and LUME control datagrams.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/telemetry"
)

var (
	pcapFile = flag.String("pcap", "", "Capture file to read (.pcap or .pcapng)")
	udpPort  = flag.Int("port", 8888, "Controller UDP port")
	asJSON   = flag.Bool("json", false, "Emit one JSON object per datagram")
	limit    = flag.Int("limit", 0, "Stop after this many datagrams (0 = all)")
)

// Record is one decoded datagram.
type Record struct {
	Time    time.Time             `json:"time"`
	Src     string                `json:"src"`
	Dst     string                `json:"dst"`
	Kind    string                `json:"kind"` // frame, control, greeting or unknown
	Size    int                   `json:"size"`
	Packet  *telemetry.DataPacket `json:"packet,omitempty"`
	Control string                `json:"control,omitempty"`
}

func (r Record) String() string {
	head := fmt.Sprintf("%s %s -> %s", r.Time.Format("15:04:05.000000"), r.Src, r.Dst)
	switch r.Kind {
	case "frame":
		return fmt.Sprintf("%s frame %s", head, r.Packet)
	case "control":
		return fmt.Sprintf("%s control %s", head, r.Control)
	default:
		return fmt.Sprintf("%s %s (%d bytes)", head, r.Kind, r.Size)
	}
}

// Summary counts what a dump saw.
type Summary struct {
	Packets  int
	Frames   int
	Controls int
	Other    int
}

func classify(payload []byte) (kind string, pkt *telemetry.DataPacket, control string) {
	if len(payload) == telemetry.FrameSize {
		if p, err := telemetry.DecodeFrame(payload); err == nil {
			return "frame", &p, ""
		}
	}
	if cmd, ok := network.ParseControl(payload); ok {
		return "control", nil, cmd.String()
	}
	if len(payload) < telemetry.FrameSize {
		return "greeting", nil, ""
	}
	return "unknown", nil, ""
}

// openCapture picks the pcap or pcapng reader from the file magic.
func openCapture(r io.Reader) (gopacket.PacketDataSource, gopacket.Decoder, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, nil, fmt.Errorf("read capture header: %w", err)
	}
	if bytes.Equal(magic, []byte{0x0a, 0x0d, 0x0d, 0x0a}) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("open pcapng: %w", err)
		}
		return ng, ng.LinkType(), nil
	}
	rd, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("open pcap: %w", err)
	}
	return rd, rd.LinkType(), nil
}

// dump decodes every UDP datagram to or from port and hands it to emit.
func dump(r io.Reader, port, max int, emit func(Record) error) (Summary, error) {
	var sum Summary
	data, decoder, err := openCapture(r)
	if err != nil {
		return sum, err
	}
	src := gopacket.NewPacketSource(data, decoder)
	src.NoCopy = true

	for max <= 0 || sum.Packets < max {
		packet, err := src.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read packet %d: %w", sum.Packets+1, err)
		}

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || (int(udp.SrcPort) != port && int(udp.DstPort) != port) {
			continue
		}
		rec := Record{
			Time: packet.Metadata().Timestamp,
			Size: len(udp.Payload),
		}
		if nl := packet.NetworkLayer(); nl != nil {
			flow := nl.NetworkFlow()
			rec.Src = fmt.Sprintf("%s:%d", flow.Src(), udp.SrcPort)
			rec.Dst = fmt.Sprintf("%s:%d", flow.Dst(), udp.DstPort)
		}
		rec.Kind, rec.Packet, rec.Control = classify(udp.Payload)

		sum.Packets++
		switch rec.Kind {
		case "frame":
			sum.Frames++
		case "control":
			sum.Controls++
		default:
			sum.Other++
		}
		if err := emit(rec); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func main() {
	flag.Parse()
	if *pcapFile == "" && flag.NArg() > 0 {
		*pcapFile = flag.Arg(0)
	}
	if *pcapFile == "" {
		log.Fatal("usage: frame-dump -pcap capture.pcap [-port 8888] [-json]")
	}

	f, err := os.Open(*pcapFile)
	if err != nil {
		log.Fatalf("failed to open capture: %v", err)
	}
	defer f.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	emit := func(r Record) error {
		if *asJSON {
			return enc.Encode(r)
		}
		_, err := fmt.Fprintln(out, r)
		return err
	}

	sum, err := dump(f, *udpPort, *limit, emit)
	if err != nil {
		out.Flush()
		log.Fatalf("dump failed after %d datagrams: %v", sum.Packets, err)
	}
	log.Printf("%d datagrams on port %d: %d frames, %d control, %d other",
		sum.Packets, *udpPort, sum.Frames, sum.Controls, sum.Other)
}
