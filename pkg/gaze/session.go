package gaze

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/filter"
)

// lostFaceAfter is the number of consecutive misses before a lost face is
// logged.
const lostFaceAfter = 5

// publishWarnEvery rate-limits publisher failure logs.
const publishWarnEvery = 100

// Stats counts frames processed by a session.
type Stats struct {
	Frames        uint64 `json:"frames"`
	Measured      uint64 `json:"measured"`
	Misses        int    `json:"consecutive_misses"`
	PublishErrors uint64 `json:"publish_errors"`
}

// Snapshot is a consistent view of session state for status readers.
type Snapshot struct {
	SessionID   string             `json:"session_id"`
	Estimate    Estimate           `json:"estimate"`
	Status      string             `json:"status"`
	Stats       Stats              `json:"stats"`
	Calibration calibration.Status `json:"calibration"`
}

// Session carries everything that persists between frames: the filter,
// the calibrator, the publishers and the last published estimate.
type Session struct {
	id         string
	calibrator *calibration.Calibrator
	filter     filter.Filter
	publishers []Publisher
	now        func() time.Time
	log        *slog.Logger

	mu         sync.RWMutex
	last       Estimate
	lastStatus Status
	stats      Stats
	failing    map[int]int // consecutive failures per publisher
}

// NewSession creates a session. The filter and calibrator are owned by the
// session from here on.
func NewSession(cal *calibration.Calibrator, f filter.Filter, publishers ...Publisher) *Session {
	id := uuid.New().String()
	return &Session{
		id:         id,
		calibrator: cal,
		filter:     f,
		publishers: publishers,
		now:        time.Now,
		log:        log.With("component", "session", "session_id", id),
		failing:    make(map[int]int),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetClock replaces the time source.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// AddPublisher appends a publisher. Not safe to call while Step runs.
func (s *Session) AddPublisher(p Publisher) {
	s.publishers = append(s.publishers, p)
}

// Calibrator returns the session's calibrator.
func (s *Session) Calibrator() *calibration.Calibrator {
	return s.calibrator
}

// Step folds one frame's measurement into the session and publishes the
// resulting estimate.
func (s *Session) Step(m Measurement) Estimate {
	sample := m.Raw
	if m.OK {
		if s.calibrator.Collecting() {
			// Calibration learns from raw samples; the live mapping keeps
			// driving the output meanwhile.
			if s.calibrator.Add(m.Raw) == calibration.EventCompleted {
				s.filter.Reset()
			}
		}
		sample = s.calibrator.Map(m.Raw)
	}

	out := s.filter.Step(sample, m.OK)

	s.mu.Lock()
	ts := s.now()
	if ts.Before(s.last.Timestamp) {
		ts = s.last.Timestamp
	}
	est := Estimate{
		X:          out.X,
		Y:          out.Y,
		Timestamp:  ts,
		Calibrated: s.calibrator.Calibrated(),
	}
	s.last = est
	s.lastStatus = m.Status
	s.stats.Frames++
	if m.OK {
		s.stats.Measured++
		s.stats.Misses = 0
	} else {
		s.stats.Misses++
	}
	misses := s.stats.Misses
	s.mu.Unlock()

	if misses == lostFaceAfter {
		s.log.Info("lost gaze", "consecutive_misses", misses, "status", m.Status)
	}

	s.publish(est)
	return est
}

// publish delivers est to every publisher. Errors are logged on the first
// failure and then every publishWarnEvery consecutive failures.
func (s *Session) publish(est Estimate) {
	for i, p := range s.publishers {
		err := p.Publish(est)

		s.mu.Lock()
		if err == nil {
			if n := s.failing[i]; n > 0 {
				s.log.Info("publisher recovered", "publisher", i, "failures", n)
			}
			delete(s.failing, i)
			s.mu.Unlock()
			continue
		}
		s.failing[i]++
		s.stats.PublishErrors++
		n := s.failing[i]
		s.mu.Unlock()

		if n == 1 || n%publishWarnEvery == 0 {
			s.log.Warn("publish failed", "publisher", i, "consecutive_failures", n, "error", err)
		}
	}
}

// StartCalibration begins a calibration run.
func (s *Session) StartCalibration() {
	s.calibrator.Start()
}

// CancelCalibration abandons a running calibration.
func (s *Session) CancelCalibration() {
	s.calibrator.Cancel()
}

// Handle applies a session-level command. It reports whether the command
// was consumed; view and quit commands are left to the caller.
func (s *Session) Handle(cmd Command) bool {
	switch cmd {
	case CommandCalibrate:
		if !s.calibrator.Collecting() {
			s.StartCalibration()
		}
		return true
	case CommandCancelCalibration:
		s.CancelCalibration()
		return true
	default:
		return false
	}
}

// Last returns the most recent estimate. Before the first frame it is the
// screen centre with a zero timestamp.
func (s *Session) Last() Estimate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats.Frames == 0 {
		return Estimate{X: 0.5, Y: 0.5, Calibrated: s.calibrator.Calibrated()}
	}
	return s.last
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		SessionID: s.id,
		Estimate:  s.last,
		Status:    s.lastStatus.String(),
		Stats:     s.stats,
	}
	frames := s.stats.Frames
	s.mu.RUnlock()

	snap.Calibration = s.calibrator.Status()
	if frames == 0 {
		snap.Estimate = Estimate{X: 0.5, Y: 0.5, Calibrated: snap.Calibration.Calibrated}
		snap.Status = "starting"
	}
	return snap
}
