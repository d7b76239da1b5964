package controller

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lume-glove/controller/internal/network"
	"github.com/lume-glove/controller/internal/sensor"
	"github.com/lume-glove/controller/internal/testutil"
)

func newAdminHarness(t *testing.T) (*harness, *http.ServeMux) {
	t.Helper()
	h := newHarness(t, Config{}, constantSource(sensor.Reading{Pitch: 12.5, Flex: [3]int32{0, 9999, 0}}), network.DiscoveryConfig{})
	require.NoError(t, h.session.Open())
	mux := http.NewServeMux()
	h.ctrl.AttachAdminRoutes(mux)
	return h, mux
}

func TestAdmin_TelemetrySnapshot(t *testing.T) {
	h, mux := newAdminHarness(t)
	h.session.SetPeer(peerA)
	require.NoError(t, h.ctrl.Tick())

	rec := testutil.Serve(mux, testutil.NewDebugRequest(http.MethodGet, "/debug/telemetry", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, h.ctrl.ID(), snap.SessionID)
	assert.Equal(t, "idle", snap.DiscoveryState)
	assert.Equal(t, peerA.String(), snap.Peer)
	assert.Equal(t, float32(12.5), snap.Packet.Pitch)
	assert.True(t, snap.Packet.Flex0)
	assert.False(t, snap.Packet.Flex1)
	assert.Equal(t, int64(1), snap.Stats.FramesSent)
}

func TestAdmin_TelemetryRequiresLoopback(t *testing.T) {
	_, mux := newAdminHarness(t)
	req := testutil.NewDebugRequest(http.MethodGet, "/debug/telemetry", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	rec := testutil.Serve(mux, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestAdmin_Control(t *testing.T) {
	h, mux := newAdminHarness(t)

	post := func(cmd string) int {
		req := testutil.NewDebugRequest(http.MethodPost, "/debug/control", url.Values{"command": {cmd}})
		return testutil.Serve(mux, req).Code
	}

	// No peer yet.
	assert.Equal(t, http.StatusConflict, post("0"))
	assert.Empty(t, h.sock.Written())

	h.session.SetPeer(peerA)
	assert.Equal(t, http.StatusOK, post("0"))
	assert.Equal(t, http.StatusOK, post("gesture-mode"))
	assert.Equal(t, http.StatusBadRequest, post("9"))
	assert.Equal(t, http.StatusBadRequest, post("launch"))
	assert.Equal(t, http.StatusBadRequest, post(""))

	w := h.sock.Written()
	require.Len(t, w, 2)
	assert.Equal(t, "LUME0", string(w[0].Data))
	assert.Equal(t, "LUME2", string(w[1].Data))

	rec := testutil.Serve(mux, testutil.NewDebugRequest(http.MethodGet, "/debug/control", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestAdmin_ControlResponseBody(t *testing.T) {
	h, mux := newAdminHarness(t)
	h.session.SetPeer(peerA)

	req := testutil.NewDebugRequest(http.MethodPost, "/debug/control", url.Values{"command": {"estop"}})
	rec := testutil.Serve(mux, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"sent": "estop", "payload": "LUME0"}, body)
}

func TestParseControlParam(t *testing.T) {
	tests := []struct {
		in   string
		want network.ControlCommand
	}{
		{"0", network.ControlESTOP},
		{" 1 ", network.ControlManualMode},
		{"GESTURE-MODE", network.ControlGestureMode},
		{"hardware-failure", network.ControlHardwareFailure},
	}
	for _, tt := range tests {
		got, err := parseControlParam(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseControlParam("-1")
	assert.ErrorIs(t, err, network.ErrUnknownControl)
}
