package ingest_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/halcyon/robomon/internal/archive"
	"codeberg.org/halcyon/robomon/internal/dedup"
	"codeberg.org/halcyon/robomon/internal/eventlog"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/ingest"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/metric"
	"codeberg.org/halcyon/robomon/internal/settings"
	"codeberg.org/halcyon/robomon/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("error", "", false)
	os.Exit(m.Run())
}

type harness struct {
	pipeline *ingest.Pipeline
	state    *state.Publisher
	events   *eventlog.Log
}

func newHarness(t *testing.T, cooldown time.Duration) *harness {
	t.Helper()

	dir := t.TempDir()

	store, err := settings.NewStore(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	events, err := eventlog.Open(filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	recorder, err := archive.NewService(archive.DefaultConfig())
	require.NoError(t, err)

	publisher := state.NewPublisher(10, time.Second, nil)

	return &harness{
		pipeline: &ingest.Pipeline{
			Settings: store,
			Dedup:    dedup.New(cooldown),
			Events:   events,
			State:    publisher,
			Archive:  recorder,
			Metrics:  metric.New(),
		},
		state:  publisher,
		events: events,
	}
}

func startListener(t *testing.T, h *harness, stream frame.Stream) net.Conn {
	t.Helper()

	listener := ingest.NewListener(stream, "127.0.0.1:0", h.pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, listener.Start(ctx))
	t.Cleanup(listener.Stop)

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestThermalIngestion(t *testing.T) {
	h := newHarness(t, 5*time.Second)
	conn := startListener(t, h, frame.StreamThermal)

	lines := "" +
		`{"frame_no": 1, "timestamp": "t1", "t_min": 20, "t_max": 25, "t_mean": 22}` + "\n" +
		"this is not json\n" +
		`{"frame_no": 2, "timestamp": "t2", "t_min": 21, "t_max": 34, "t_mean": 26}` + "\n"
	_, err := conn.Write([]byte(lines))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		latest, ok := h.state.LatestThermal()
		return ok && latest.FrameNo == 2
	}, 2*time.Second, 10*time.Millisecond, "the malformed line must not end the session")

	assert.Len(t, h.state.History(), 2)

	// Frame 2 is above the critical boundary
	recent := h.events.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, frame.StreamThermal, recent[0].Type)
	assert.Equal(t, "CRITICAL", string(recent[0].Severity))
	assert.Equal(t, "High temperature detected", recent[0].Message)
	assert.Equal(t, "t2", recent[0].Timestamp)
}

func TestThermalAlertDeduplication(t *testing.T) {
	h := newHarness(t, 5*time.Second)
	conn := startListener(t, h, frame.StreamThermal)

	// Same frame number twice inside the cooldown window
	line := `{"frame_no": 7, "timestamp": "t", "t_min": 20, "t_max": 34, "t_mean": 26}` + "\n"
	_, err := conn.Write([]byte(line + line))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		latest, ok := h.state.LatestThermal()
		return ok && latest.FrameNo == 7
	}, 2*time.Second, 10*time.Millisecond)

	// Give the second line time to drain through the pipeline
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, h.events.Recent(), 1, "the repeat inside the window is suppressed")
}

func TestTorqueIngestion(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	conn := startListener(t, h, frame.StreamTorque)

	line := `{"frame_no": 3, "timestamp": "t3", "torque_ideal": [0, 1, 2], "torque_actual": [0.1, 1.5, 2.7]}` + "\n"
	_, err := conn.Write([]byte(line))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		latest, ok := h.state.LatestTorque()
		return ok && latest.FrameNo == 3
	}, 2*time.Second, 10*time.Millisecond)

	latest, _ := h.state.LatestTorque()
	assert.True(t, latest.Anomaly)
	assert.InDeltaSlice(t, []float64{0.1, 0.5, 0.7}, latest.Diffs, 0.0001)

	// Joints 2 and 3 alert independently
	recent := h.events.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "Joint 2 torque exceeded threshold", recent[0].Message)
	assert.Equal(t, "WARNING", string(recent[0].Severity))
	assert.Equal(t, "Joint 3 torque exceeded threshold", recent[1].Message)
	assert.Equal(t, "CRITICAL", string(recent[1].Severity))
}

func TestProducerReconnect(t *testing.T) {
	h := newHarness(t, 5*time.Second)

	listener := ingest.NewListener(frame.StreamThermal, "127.0.0.1:0", h.pipeline)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, listener.Start(ctx))
	t.Cleanup(listener.Stop)

	send := func(frameNo int) {
		conn, err := net.Dial("tcp", listener.Addr().String())
		require.NoError(t, err)
		_, err = fmt.Fprintf(conn, `{"frame_no": %d, "timestamp": "t", "t_min": 20, "t_max": 25, "t_mean": 22}`+"\n", frameNo)
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}

	send(1)
	require.Eventually(t, func() bool {
		latest, ok := h.state.LatestThermal()
		return ok && latest.FrameNo == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A second producer is served after the first disconnects
	send(2)
	require.Eventually(t, func() bool {
		latest, ok := h.state.LatestThermal()
		return ok && latest.FrameNo == 2
	}, 2*time.Second, 10*time.Millisecond)
}
