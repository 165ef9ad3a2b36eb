// Package calibration learns a per-user mapping from raw iris position to
// screen position.
//
// The user fixates a fixed sequence of on-screen targets while raw gaze
// samples are recorded against each target. Once every target has its quota
// of samples, two degree-2 polynomials (one per axis) are fitted by least
// squares and installed as the live Mapping. The previous mapping, if any,
// keeps serving until the new one is ready.
package calibration

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Points are the calibration targets, visited in order: top-left,
// top-right, centre, bottom-left, bottom-right.
var Points = []geom.Point{
	{X: 0.05, Y: 0.05},
	{X: 0.95, Y: 0.05},
	{X: 0.5, Y: 0.5},
	{X: 0.05, Y: 0.95},
	{X: 0.95, Y: 0.95},
}

const (
	// SamplesPerPoint is collected per target, about one second at 30 fps.
	SamplesPerPoint = 30

	// MinRecords is the minimum number of records needed to fit.
	MinRecords = 10
)

// ErrNotCollecting is returned by Finish when no calibration is running.
var ErrNotCollecting = errors.New("calibration not in progress")

// State is the calibrator's state.
type State int

const (
	StateIdle State = iota
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	default:
		return "idle"
	}
}

// Event reports what a call to Add did.
type Event int

const (
	EventNone      Event = iota // Sample ignored or recorded
	EventPointDone              // Target quota reached, moved to the next target
	EventCompleted              // Last target done, new mapping installed
	EventFailed                 // Last target done, fit failed
)

// Config holds the calibration protocol parameters.
type Config struct {
	Points          []geom.Point
	SamplesPerPoint int
	MinRecords      int
}

// DefaultConfig returns the five-point, 30-samples-per-point protocol.
func DefaultConfig() Config {
	return Config{
		Points:          Points,
		SamplesPerPoint: SamplesPerPoint,
		MinRecords:      MinRecords,
	}
}

// Status is a snapshot of calibration progress.
type Status struct {
	State      string     `json:"state"`
	Calibrated bool       `json:"calibrated"`
	Point      int        `json:"point"`   // Index of the current target
	Points     int        `json:"points"`  // Number of targets
	Samples    int        `json:"samples"` // Samples collected for the current target
	Needed     int        `json:"needed"`  // Samples needed per target
	Target     geom.Point `json:"target"`
	Progress   float64    `json:"progress"` // Fraction of the current target's quota
	LastError  string     `json:"last_error,omitempty"`
}

// Calibrator runs the calibration protocol and owns the live Mapping.
//
// All methods are safe for concurrent use; in practice the tracking loop is
// the only writer and status readers (the web API) take the read lock.
type Calibrator struct {
	config Config
	log    *slog.Logger

	mu      sync.RWMutex
	state   State
	point   int
	samples int
	records []Record
	mapping *Mapping
	lastErr error

	// OnMapping is called, outside the lock, after a new mapping is installed.
	OnMapping func(m Mapping, records int)
}

// NewCalibrator creates an idle, uncalibrated calibrator.
func NewCalibrator(config Config) *Calibrator {
	if len(config.Points) == 0 {
		config.Points = Points
	}
	if config.SamplesPerPoint <= 0 {
		config.SamplesPerPoint = SamplesPerPoint
	}
	if config.MinRecords <= 0 {
		config.MinRecords = MinRecords
	}
	return &Calibrator{
		config: config,
		log:    log.Component("calibration"),
	}
}

// Start begins a new calibration run. Previously collected records are
// discarded; the current mapping stays live until the new one is fitted.
func (c *Calibrator) Start() {
	c.mu.Lock()
	c.state = StateCollecting
	c.point = 0
	c.samples = 0
	c.records = make([]Record, 0, len(c.config.Points)*c.config.SamplesPerPoint)
	c.lastErr = nil
	c.mu.Unlock()

	c.log.Info("calibration started", "points", len(c.config.Points), "samples_per_point", c.config.SamplesPerPoint)
}

// Cancel abandons a running calibration, keeping the current mapping.
func (c *Calibrator) Cancel() {
	c.mu.Lock()
	wasCollecting := c.state == StateCollecting
	c.state = StateIdle
	c.records = nil
	c.mu.Unlock()

	if wasCollecting {
		c.log.Info("calibration cancelled")
	}
}

// Add records one raw gaze sample against the current target. It is a
// no-op when not collecting.
func (c *Calibrator) Add(raw geom.Point) Event {
	c.mu.Lock()
	if c.state != StateCollecting {
		c.mu.Unlock()
		return EventNone
	}

	target := c.config.Points[c.point]
	c.records = append(c.records, Record{
		RawX:    raw.X,
		RawY:    raw.Y,
		TargetX: target.X,
		TargetY: target.Y,
	})
	c.samples++

	if c.samples < c.config.SamplesPerPoint {
		c.mu.Unlock()
		return EventNone
	}

	c.samples = 0
	c.point++
	if c.point < len(c.config.Points) {
		point := c.point
		c.mu.Unlock()
		c.log.Info("calibration point done", "next", point+1, "of", len(c.config.Points))
		return EventPointDone
	}
	c.mu.Unlock()

	if err := c.complete(); err != nil {
		return EventFailed
	}
	return EventCompleted
}

// Finish ends a running calibration early and fits whatever was collected.
// With fewer than MinRecords records it returns ErrInsufficientSamples and
// the previous mapping stays live.
func (c *Calibrator) Finish() error {
	c.mu.RLock()
	collecting := c.state == StateCollecting
	c.mu.RUnlock()
	if !collecting {
		return ErrNotCollecting
	}
	return c.complete()
}

// complete fits the collected records and swaps in the new mapping.
func (c *Calibrator) complete() error {
	c.mu.Lock()
	records := c.records
	c.records = nil
	c.state = StateIdle
	c.point = 0
	c.samples = 0
	c.mu.Unlock()

	m, err := Fit(records, c.config.MinRecords)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		c.log.Warn("calibration failed, keeping previous mapping", "records", len(records), "error", err)
		return err
	}

	c.mu.Lock()
	c.mapping = &m
	c.lastErr = nil
	callback := c.OnMapping
	c.mu.Unlock()

	c.log.Info("calibration complete", "records", len(records), "x", m.X, "y", m.Y)

	if callback != nil {
		callback(m, len(records))
	}
	return nil
}

// SetMapping installs a previously saved mapping.
func (c *Calibrator) SetMapping(m Mapping) {
	c.mu.Lock()
	c.mapping = &m
	c.mu.Unlock()
}

// Map converts a raw sample to screen space using the live mapping. Without
// a mapping, or if evaluation is not finite, raw is returned unchanged.
func (c *Calibrator) Map(raw geom.Point) geom.Point {
	c.mu.RLock()
	m := c.mapping
	c.mu.RUnlock()

	if m == nil {
		return raw
	}
	p, ok := m.Apply(raw)
	if !ok {
		c.log.Debug("mapping produced non-finite value, using identity", "raw", raw)
	}
	return p
}

// Mapping returns the live mapping, if any.
func (c *Calibrator) Mapping() (Mapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mapping == nil {
		return Mapping{}, false
	}
	return *c.mapping, true
}

// Calibrated reports whether a mapping is live.
func (c *Calibrator) Calibrated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping != nil
}

// Collecting reports whether a calibration run is in progress.
func (c *Calibrator) Collecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateCollecting
}

// Target returns the target currently being collected.
func (c *Calibrator) Target() (geom.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateCollecting {
		return geom.Point{}, false
	}
	return c.config.Points[c.point], true
}

// Records returns a copy of the records collected in the current run.
func (c *Calibrator) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Status returns a snapshot of calibration progress.
func (c *Calibrator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		State:      c.state.String(),
		Calibrated: c.mapping != nil,
		Point:      c.point,
		Points:     len(c.config.Points),
		Samples:    c.samples,
		Needed:     c.config.SamplesPerPoint,
	}
	if c.state == StateCollecting {
		s.Target = c.config.Points[c.point]
		s.Progress = float64(c.samples) / float64(c.config.SamplesPerPoint)
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
