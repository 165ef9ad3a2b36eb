package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/publish"
)

type fakeBackend struct {
	mu       sync.Mutex
	snapshot gaze.Snapshot
	sent     []gaze.Command
	full     bool
}

func (b *fakeBackend) Snapshot() gaze.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot
}

func (b *fakeBackend) Send(cmd gaze.Command) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return false
	}
	b.sent = append(b.sent, cmd)
	return true
}

func newBackend() *fakeBackend {
	return &fakeBackend{snapshot: gaze.Snapshot{
		SessionID: "test-session",
		Estimate:  gaze.Estimate{X: 0.25, Y: 0.6, Timestamp: time.Unix(1700000000, 0), Calibrated: true},
		Status:    gaze.StatusMeasured.String(),
		Stats:     gaze.Stats{Frames: 42, Measured: 40},
		Calibration: calibration.Status{
			State:      "idle",
			Calibrated: true,
			Points:     5,
			Needed:     30,
		},
	}}
}

func TestServer_Gaze(t *testing.T) {
	s := NewServer(":0", newBackend())

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/gaze", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var r publish.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	assert.Equal(t, 0.25, r.GazeX)
	assert.Equal(t, 0.6, r.GazeY)
	assert.Equal(t, 0.25, r.CenterX)
	assert.True(t, r.Calibrated)
	assert.InDelta(t, 1700000000.0, r.Timestamp, 1e-6)
}

func TestServer_Status(t *testing.T) {
	s := NewServer(":0", newBackend())

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var snap gaze.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "test-session", snap.SessionID)
	assert.Equal(t, uint64(42), snap.Stats.Frames)
	assert.Equal(t, "idle", snap.Calibration.State)
	assert.True(t, snap.Calibration.Calibrated)
}

func TestServer_CalibrationCommands(t *testing.T) {
	tests := []struct {
		path string
		want gaze.Command
	}{
		{"/api/calibration/start", gaze.CommandCalibrate},
		{"/api/calibration/cancel", gaze.CommandCancelCalibration},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			b := newBackend()
			s := NewServer(":0", b)

			resp, err := s.app.Test(httptest.NewRequest("POST", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, 202, resp.StatusCode)
			assert.Equal(t, []gaze.Command{tt.want}, b.sent)
		})
	}
}

func TestServer_CommandQueueFull(t *testing.T) {
	b := newBackend()
	b.full = true
	s := NewServer(":0", b)

	resp, err := s.app.Test(httptest.NewRequest("POST", "/api/calibration/start", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "queue full")
}

func TestServer_WebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(":0", newBackend())

	resp, err := s.app.Test(httptest.NewRequest("GET", "/ws/gaze", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestServer_GazeStream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(ln.Addr().String(), newBackend())
	go s.Serve(ctx, ln)
	defer s.Shutdown()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/gaze", nil)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The current estimate arrives first.
	var r publish.Record
	require.NoError(t, conn.ReadJSON(&r))
	assert.Equal(t, 0.25, r.GazeX)

	require.NoError(t, s.Publish(gaze.Estimate{X: 0.9, Y: 0.1, Timestamp: time.Now()}))
	require.NoError(t, conn.ReadJSON(&r))
	assert.Equal(t, 0.9, r.GazeX)
	assert.Equal(t, 0.1, r.GazeY)
	assert.False(t, r.Calibrated)
}
