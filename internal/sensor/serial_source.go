package sensor

import (
	"context"
	"sync"

	"github.com/lume-glove/controller/internal/monitoring"
	"github.com/lume-glove/controller/internal/serialmux"
)

// Subscriber is the part of serialmux.SerialMuxInterface a SerialSource needs.
type Subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

var _ Subscriber = (serialmux.SerialMuxInterface)(nil)

// SerialSource turns the co-processor's line stream into Readings. Only the
// newest sample is kept; the tick loop never wants a backlog.
type SerialSource struct {
	mux Subscriber

	mu      sync.Mutex
	latest  Reading
	fresh   bool
	lastErr error
	parsed  int64
	dropped int64
}

// NewSerialSource creates a source that reads from mux once Start is called.
func NewSerialSource(mux Subscriber) *SerialSource {
	return &SerialSource{mux: mux}
}

// Start subscribes to the mux and consumes lines until ctx is done or the
// subscription channel is closed.
func (s *SerialSource) Start(ctx context.Context) {
	id, ch := s.mux.Subscribe()
	go func() {
		defer s.mux.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-ch:
				if !ok {
					return
				}
				s.handleLine(line)
			}
		}
	}()
}

func (s *SerialSource) handleLine(line string) {
	if serialmux.ClassifyLine(line) != serialmux.LineSample {
		return
	}
	r, err := ParseLine(line)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.dropped++
		monitoring.Debugf("sensor: dropping line %q: %v", line, err)
		return
	}
	if s.fresh {
		s.dropped++
	}
	s.latest = r
	s.fresh = true
	s.lastErr = nil
	s.parsed++
}

// Read returns the newest sample not yet returned. If none has arrived it
// reports the most recent parse failure, or ErrNoSample.
func (s *SerialSource) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh {
		s.fresh = false
		return s.latest, nil
	}
	if s.lastErr != nil {
		err := s.lastErr
		s.lastErr = nil
		return Reading{}, err
	}
	return Reading{}, ErrNoSample
}

// Counts returns how many lines parsed successfully and how many were
// discarded, either malformed or overwritten before being read.
func (s *SerialSource) Counts() (parsed, dropped int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsed, s.dropped
}
