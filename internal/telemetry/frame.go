package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// FrameSize is the length of an encoded telemetry frame: twelve float32 fields
// followed by one flag byte.
const FrameSize = 49

// Frame layout. Floats are IEEE-754 single precision, little-endian, which
// is what the receiving server unpacks with "<12fB".
const (
	offPitch  = 0
	offRoll   = 4
	offYaw    = 8
	offDPitch = 12
	offDRoll  = 16
	offDYaw   = 20
	offAccelX = 24
	offAccelY = 28
	offAccelZ = 32
	offGyroX  = 36
	offGyroY  = 40
	offGyroZ  = 44
	offFlags  = 48
)

// Flex flag bits in the final byte; bits 4..0 are always zero.
const (
	FlagFlex0 byte = 1 << 7
	FlagFlex1 byte = 1 << 6
	FlagFlex2 byte = 1 << 5
)

// ErrFrameSize is returned when decoding a buffer that is not exactly
// FrameSize bytes.
var ErrFrameSize = errors.New("telemetry frame has wrong size")

// Frame is one encoded DataPacket.
type Frame [FrameSize]byte

// EncodeFrame serialises p. Every packet has exactly one encoding.
func EncodeFrame(p DataPacket) Frame {
	var f Frame
	AppendFrame(f[:0], p)
	return f
}

// AppendFrame appends the encoding of p to dst and returns the extended
// slice.
func AppendFrame(dst []byte, p DataPacket) []byte {
	for _, v := range [...]float32{
		p.Pitch, p.Roll, p.Yaw,
		p.DPitch, p.DRoll, p.DYaw,
		p.AccelX, p.AccelY, p.AccelZ,
		p.GyroX, p.GyroY, p.GyroZ,
	} {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}

	var flags byte
	if p.Flex0 {
		flags |= FlagFlex0
	}
	if p.Flex1 {
		flags |= FlagFlex1
	}
	if p.Flex2 {
		flags |= FlagFlex2
	}
	return append(dst, flags)
}

// DecodeFrame parses a frame produced by EncodeFrame. Unused flag bits are
// ignored.
func DecodeFrame(b []byte) (DataPacket, error) {
	if len(b) != FrameSize {
		return DataPacket{}, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(b), FrameSize)
	}
	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
	}
	flags := b[offFlags]
	return DataPacket{
		Pitch:  f32(offPitch),
		Roll:   f32(offRoll),
		Yaw:    f32(offYaw),
		DPitch: f32(offDPitch),
		DRoll:  f32(offDRoll),
		DYaw:   f32(offDYaw),
		AccelX: f32(offAccelX),
		AccelY: f32(offAccelY),
		AccelZ: f32(offAccelZ),
		GyroX:  f32(offGyroX),
		GyroY:  f32(offGyroY),
		GyroZ:  f32(offGyroZ),
		Flex0:  flags&FlagFlex0 != 0,
		Flex1:  flags&FlagFlex1 != 0,
		Flex2:  flags&FlagFlex2 != 0,
	}, nil
}

// String renders p on one line for tools and logs.
func (p DataPacket) String() string {
	bit := func(b bool) byte {
		if b {
			return '1'
		}
		return '0'
	}
	return fmt.Sprintf("pry=(%.2f %.2f %.2f) d=(%.2f %.2f %.2f) acc=(%.0f %.0f %.0f) gyro=(%.0f %.0f %.0f) flex=%c%c%c",
		p.Pitch, p.Roll, p.Yaw, p.DPitch, p.DRoll, p.DYaw,
		p.AccelX, p.AccelY, p.AccelZ, p.GyroX, p.GyroY, p.GyroZ,
		bit(p.Flex0), bit(p.Flex1), bit(p.Flex2))
}
