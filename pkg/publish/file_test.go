package publish

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func TestFile_Publish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "eye_gaze.json")
	f, err := NewFile(path)
	require.NoError(t, err)

	ts := time.Unix(1700000000, 250000000)
	require.NoError(t, f.Publish(gaze.Estimate{X: 0.25, Y: 0.75, Timestamp: ts, Calibrated: true}))

	r, err := Read(path)
	require.NoError(t, err)
	assert.InDelta(t, 1700000000.25, r.Timestamp, 1e-6)
	assert.Equal(t, 0.25, r.GazeX)
	assert.Equal(t, 0.75, r.GazeY)
	assert.Equal(t, r.GazeX, r.CenterX)
	assert.Equal(t, r.GazeY, r.CenterY)
	assert.True(t, r.Calibrated)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eye_gaze.json")
	f, err := NewFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Publish(gaze.Estimate{X: 0.1, Y: 0.1, Timestamp: time.Now()}))
	require.NoError(t, f.Publish(gaze.Estimate{X: 0.9, Y: 0.2, Timestamp: time.Now()}))

	r, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, r.GazeX)
	assert.False(t, r.Calibrated)
}

func TestFile_WireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eye_gaze.json")
	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Publish(gaze.Estimate{X: 0.5, Y: 0.5, Timestamp: time.Now()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"timestamp", "gaze_x", "gaze_y", "center_x", "center_y", "calibrated"} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 6)
}

func TestFile_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(filepath.Join(dir, "eye_gaze.json"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.Error(t, f.Publish(gaze.Estimate{X: 0.5, Y: 0.5, Timestamp: time.Now()}))
}
