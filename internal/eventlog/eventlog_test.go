package eventlog_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/halcyon/robomon/internal/eventlog"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("error", "", false)
	os.Exit(m.Run())
}

func testEvent(n int) eventlog.AlertEvent {
	return eventlog.AlertEvent{
		Timestamp: fmt.Sprintf("2025-01-02T03:04:%02d", n%60),
		Type:      frame.StreamThermal,
		Severity:  threshold.SeverityWarning,
		Message:   "High temperature detected",
		Meta:      map[string]any{"frame_no": float64(n)},
	}
}

func TestOpenMissingFile(t *testing.T) {
	log, err := eventlog.Open(filepath.Join(t.TempDir(), "events.log"))
	require.NoError(t, err)
	defer log.Close()

	assert.Empty(t, log.Recent())
}

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	log, err := eventlog.Open(path)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(testEvent(i)))
	}
	require.NoError(t, log.Close())

	reopened, err := eventlog.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	recent := reopened.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "High temperature detected", recent[0].Message)
	assert.Equal(t, frame.StreamThermal, recent[0].Type)
	assert.InDelta(t, 2.0, recent[2].Meta["frame_no"], 0.0001, "events keep their order")
}

func TestReloadSkipsUndecodableLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	content := `{"timestamp":"t1","type":"THERMAL","severity":"INFO","message":"first","meta":{}}
garbage line
{"timestamp":"t2","type":"TORQUE","severity":"CRITICAL","message":"second","meta":{}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	log, err := eventlog.Open(path)
	require.NoError(t, err)
	defer log.Close()

	recent := log.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "first", recent[0].Message)
	assert.Equal(t, "second", recent[1].Message)
}

func TestRecentIsBounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	log, err := eventlog.Open(path)
	require.NoError(t, err)

	for i := 0; i < 205; i++ {
		require.NoError(t, log.Append(testEvent(i)))
	}

	recent := log.Recent()
	require.Len(t, recent, 200)
	assert.InDelta(t, 5.0, recent[0].Meta["frame_no"], 0.0001, "oldest events are dropped")
	require.NoError(t, log.Close())

	// The file itself keeps everything; only the view is bounded
	reopened, err := eventlog.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Len(t, reopened.Recent(), 200)
}
