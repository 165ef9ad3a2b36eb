// Package publish delivers gaze estimates to local consumers.
package publish

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// DefaultPath is the gaze file read by the display-effect application.
const DefaultPath = "eye_gaze.json"

// Record is the on-disk gaze format. center_x/center_y duplicate
// gaze_x/gaze_y for consumers that read the older field names.
type Record struct {
	Timestamp  float64 `json:"timestamp"` // Unix seconds
	GazeX      float64 `json:"gaze_x"`
	GazeY      float64 `json:"gaze_y"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Calibrated bool    `json:"calibrated"`
}

// NewRecord converts an estimate to its file representation.
func NewRecord(e gaze.Estimate) Record {
	return Record{
		Timestamp:  float64(e.Timestamp.UnixNano()) / 1e9,
		GazeX:      e.X,
		GazeY:      e.Y,
		CenterX:    e.X,
		CenterY:    e.Y,
		Calibrated: e.Calibrated,
	}
}

// File overwrites a JSON file with the latest estimate. Each write goes to a
// temporary file that is renamed over the target, so readers never see a
// partial record.
type File struct {
	path string
	tmp  string
}

// NewFile creates a file publisher for path. The parent directory is
// created if needed.
func NewFile(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create directory")
		}
	}
	return &File{path: path, tmp: path + ".tmp"}, nil
}

// Path returns the output path.
func (f *File) Path() string {
	return f.path
}

// Publish implements gaze.Publisher.
func (f *File) Publish(e gaze.Estimate) error {
	data, err := json.Marshal(NewRecord(e))
	if err != nil {
		return errors.Wrap(err, "failed to marshal gaze record")
	}
	if err := os.WriteFile(f.tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := os.Rename(f.tmp, f.path); err != nil {
		os.Remove(f.tmp)
		return errors.Wrap(err, "failed to rename temp file")
	}
	return nil
}

// Read loads the record currently in the file.
func Read(path string) (Record, error) {
	var r Record
	data, err := os.ReadFile(path)
	if err != nil {
		return r, errors.Wrap(err, "failed to read gaze file")
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, errors.Wrap(err, "failed to parse gaze file")
	}
	return r, nil
}
