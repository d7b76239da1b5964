package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tailscale.com/tsweb"

	"github.com/lume-glove/controller/internal/httputil"
	"github.com/lume-glove/controller/internal/monitoring"
	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/telemetry"
	"github.com/lume-glove/controller/internal/version"
)

// Snapshot is the debug view of a running controller.
type Snapshot struct {
	SessionID         string                   `json:"session_id"`
	Version           string                   `json:"version"`
	Uptime            string                   `json:"uptime"`
	DiscoveryState    string                   `json:"discovery_state"`
	DiscoveryAttempts int                      `json:"discovery_attempts"`
	Peer              string                   `json:"peer,omitempty"`
	Packet            telemetry.DataPacket     `json:"packet"`
	Stats             monitoring.StatsSnapshot `json:"stats"`
}

// Snapshot gathers the current state. Safe to call from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:         c.id,
		Version:           version.Version,
		Uptime:            c.clock.Since(c.started).Truncate(time.Second).String(),
		DiscoveryState:    c.discovery.State().String(),
		DiscoveryAttempts: c.discovery.Attempts(),
		Packet:            c.agg.Packet(),
		Stats:             c.stats.Snapshot(),
	}
	if peer := c.session.Peer(); peer != nil {
		s.Peer = peer.String()
	}
	return s
}

// AttachAdminRoutes registers the controller's pages under /debug/. tsweb
// only serves these to loopback or Tailscale clients.
func (c *Controller) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.Handle("telemetry", "current telemetry packet, peer and counters (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, c.Snapshot())
	}))

	// command is the ControlCommand number or its name, e.g. "0" or "estop".
	debug.HandleSilent("control", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w, http.MethodPost)
			return
		}
		cmd, err := parseControlParam(r.FormValue("command"))
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := c.SendControl(cmd); err != nil {
			msg := fmt.Sprintf("failed to send %s: %v", cmd, err)
			if errors.Is(err, network.ErrSendBeforeDiscovery) {
				httputil.Conflict(w, msg)
				return
			}
			httputil.InternalServerError(w, msg)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"sent":    cmd.String(),
			"payload": string(cmd.Payload()),
		})
	}))
}

func parseControlParam(v string) (network.ControlCommand, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return 0, fmt.Errorf("missing command")
	}
	if n, err := strconv.Atoi(v); err == nil {
		cmd := network.ControlCommand(n)
		if !cmd.Valid() {
			return 0, fmt.Errorf("%w: %d", network.ErrUnknownControl, n)
		}
		return cmd, nil
	}
	for cmd := network.ControlESTOP; cmd.Valid(); cmd++ {
		if cmd.String() == v {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", network.ErrUnknownControl, v)
}
