// Package controller runs the glove's telemetry session: find the peer, then
// every tick read the sensors, filter, encode and send one frame.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lume-glove/controller/internal/monitoring"
	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/sensor"
	"github.com/lume-glove/controller/internal/telemetry"
	"github.com/lume-glove/controller/internal/timeutil"
)

// errReadSensor marks a tick that failed before anything was sent.
var errReadSensor = errors.New("read sensor")

// Config holds the controller's timing and failure policy.
type Config struct {
	TickInterval     time.Duration
	DiscoveryBackoff time.Duration
	StatsInterval    time.Duration

	// RediscoverAfter consecutive failed sends start a new discovery run;
	// 0 disables rediscovery.
	RediscoverAfter int
	// HardwareFailureThreshold consecutive sensor failures are reported to
	// the peer once with ControlHardwareFailure; 0 disables the report.
	HardwareFailureThreshold int
}

// Deps are the components a controller drives. Source, Aggregator, Session
// and Discovery are required.
type Deps struct {
	Source     sensor.Source
	Aggregator *telemetry.Aggregator
	Session    *network.Session
	Discovery  *network.Discovery
	Clock      timeutil.Clock
	Stats      *monitoring.TelemetryStats
}

// Controller owns one telemetry session. Tick, Discover and Run must be
// called from a single goroutine. SendControl, used by the control admin
// route, may run concurrently with ticks: it shares the session socket,
// which is safe for concurrent writes, and the stats counters are atomic.
type Controller struct {
	cfg       Config
	source    sensor.Source
	agg       *telemetry.Aggregator
	session   *network.Session
	discovery *network.Discovery
	clock     timeutil.Clock
	stats     *monitoring.TelemetryStats

	id      string
	started time.Time

	frame          []byte
	sendFailures   int
	sensorFailures int
	hwReported     bool
}

// New validates deps and fills in defaults for unset config values.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Source == nil || deps.Aggregator == nil || deps.Session == nil || deps.Discovery == nil {
		return nil, errors.New("controller: source, aggregator, session and discovery are required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 15 * time.Millisecond
	}
	if cfg.DiscoveryBackoff < 0 {
		cfg.DiscoveryBackoff = 0
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = time.Minute
	}
	clock := deps.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	stats := deps.Stats
	if stats == nil {
		stats = monitoring.NewTelemetryStats()
	}
	return &Controller{
		cfg:       cfg,
		source:    deps.Source,
		agg:       deps.Aggregator,
		session:   deps.Session,
		discovery: deps.Discovery,
		clock:     clock,
		stats:     stats,
		id:        uuid.NewString(),
		started:   clock.Now(),
		frame:     make([]byte, 0, telemetry.FrameSize),
	}, nil
}

// ID identifies this session in logs and on the debug page.
func (c *Controller) ID() string { return c.id }

// Stats returns the controller's counters.
func (c *Controller) Stats() *monitoring.TelemetryStats { return c.stats }

// Tick runs one read-aggregate-encode-send cycle. A sensor failure skips
// aggregation and the send; a send failure is returned without retry.
func (c *Controller) Tick() error {
	c.stats.AddTick()

	r, err := c.source.Read()
	if err != nil {
		c.stats.AddSensorError()
		c.sensorFailures++
		c.maybeReportHardwareFailure()
		return fmt.Errorf("%w: %w", errReadSensor, err)
	}
	c.sensorFailures = 0
	c.hwReported = false

	p := c.agg.Apply(r)
	c.frame = telemetry.AppendFrame(c.frame[:0], p)
	if err := c.session.Send(c.frame); err != nil {
		c.stats.AddSendError()
		c.sendFailures++
		return fmt.Errorf("send frame: %w", err)
	}
	c.sendFailures = 0
	c.stats.AddFrame(len(c.frame))
	return nil
}

func (c *Controller) maybeReportHardwareFailure() {
	threshold := c.cfg.HardwareFailureThreshold
	if threshold <= 0 || c.hwReported || c.sensorFailures < threshold {
		return
	}
	if err := c.session.SendControl(network.ControlHardwareFailure); err != nil {
		monitoring.Debugf("controller %s: hardware failure report not sent: %v", c.id, err)
		return
	}
	c.hwReported = true
	c.stats.AddControl()
	monitoring.Logf("controller %s: reported hardware failure after %d consecutive sensor errors", c.id, c.sensorFailures)
}

// SendControl forwards an operator command to the peer.
func (c *Controller) SendControl(cmd network.ControlCommand) error {
	if err := c.session.SendControl(cmd); err != nil {
		return err
	}
	c.stats.AddControl()
	monitoring.Logf("controller %s: sent control %s", c.id, cmd)
	return nil
}

// Discover runs discovery until a peer is found, retrying timed-out runs
// after DiscoveryBackoff. Other errors, and ctx being done, end the loop.
func (c *Controller) Discover(ctx context.Context) error {
	for {
		peer, err := c.discovery.Run(ctx)
		if err == nil {
			c.stats.AddDiscovery(false)
			c.sendFailures = 0
			monitoring.Logf("controller %s: streaming telemetry to %s", c.id, peer)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, network.ErrDiscoveryTimedOut) {
			return fmt.Errorf("discovery: %w", err)
		}
		c.stats.AddDiscovery(true)
		monitoring.Debugf("controller %s: %v; retrying in %v", c.id, err, c.cfg.DiscoveryBackoff)

		if err := c.clock.Wait(ctx, c.cfg.DiscoveryBackoff); err != nil {
			return err
		}
	}
}

// Run discovers a peer and then ticks until ctx is done, rediscovering when
// sends keep failing. It returns nil on cancellation.
func (c *Controller) Run(ctx context.Context) error {
	monitoring.Logf("controller %s: waiting for peer on %s", c.id, c.session.Address())
	if err := c.Discover(ctx); err != nil {
		return ignoreCancel(ctx, err)
	}

	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	statsTicker := c.clock.NewTicker(c.cfg.StatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("controller %s: stopping", c.id)
			return nil

		case <-statsTicker.C():
			c.stats.LogStats()

		case <-ticker.C():
			if err := c.Tick(); err != nil {
				c.logTickError(err)
			}
			if c.cfg.RediscoverAfter > 0 && c.sendFailures >= c.cfg.RediscoverAfter {
				monitoring.Logf("controller %s: %d consecutive send failures, rediscovering", c.id, c.sendFailures)
				c.sendFailures = 0
				if err := c.Discover(ctx); err != nil {
					return ignoreCancel(ctx, err)
				}
			}
		}
	}
}

// logTickError logs the first of a run of failures of the same kind; repeats
// go to Debugf so a missing sensor does not flood the log at the tick rate.
func (c *Controller) logTickError(err error) {
	streak := c.sendFailures
	if errors.Is(err, errReadSensor) {
		streak = c.sensorFailures
	}
	if streak == 1 {
		monitoring.Logf("Warning: controller %s: %v", c.id, err)
		return
	}
	monitoring.Debugf("controller %s: %v", c.id, err)
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
