package serialmux

import (
	"strings"

	"github.com/lume-glove/controller/internal/monitoring"
)

// LineKind classifies a line read from the co-processor.
type LineKind int

const (
	// LineSample is a comma-separated sensor sample.
	LineSample LineKind = iota
	// LineStatus is a '#'-prefixed driver status message, e.g. "#dmp ready".
	LineStatus
	// LineUnknown is anything else, including blank lines.
	LineUnknown
)

func (k LineKind) String() string {
	switch k {
	case LineSample:
		return "sample"
	case LineStatus:
		return "status"
	default:
		return "unknown"
	}
}

// ClassifyLine inspects a line and returns its kind. It does not validate the
// sample fields; that is left to the sensor parser.
func ClassifyLine(line string) LineKind {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return LineUnknown
	case strings.HasPrefix(line, "#"):
		return LineStatus
	case strings.Contains(line, ","):
		return LineSample
	default:
		return LineUnknown
	}
}

func logStatusLine(line string) {
	monitoring.Logf("co-processor: %s", strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#")))
}
