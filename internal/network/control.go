package network

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ControlCommand is a one-shot instruction sent to the peer outside the
// telemetry stream.
type ControlCommand int

const (
	ControlESTOP ControlCommand = iota
	ControlManualMode
	ControlGestureMode
	ControlHardwareFailure
)

var ErrUnknownControl = errors.New("unknown control command")

var controlPrefix = []byte("LUME")

func (c ControlCommand) Valid() bool {
	return c >= ControlESTOP && c <= ControlHardwareFailure
}

func (c ControlCommand) String() string {
	switch c {
	case ControlESTOP:
		return "estop"
	case ControlManualMode:
		return "manual-mode"
	case ControlGestureMode:
		return "gesture-mode"
	case ControlHardwareFailure:
		return "hardware-failure"
	default:
		return fmt.Sprintf("ControlCommand(%d)", int(c))
	}
}

// Payload is the ASCII datagram for c, e.g. "LUME0".
func (c ControlCommand) Payload() []byte {
	return strconv.AppendInt(append([]byte(nil), controlPrefix...), int64(c), 10)
}

// ParseControl recognises a control datagram. Telemetry frames never match
// because they are a different length.
func ParseControl(b []byte) (ControlCommand, bool) {
	if len(b) != len(controlPrefix)+1 || !bytes.HasPrefix(b, controlPrefix) {
		return 0, false
	}
	c := ControlCommand(b[len(controlPrefix)]) - '0'
	if !c.Valid() {
		return 0, false
	}
	return c, true
}
