package gaze

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/calibration"
)

// ErrSourceClosed is returned by sources that have no more frames.
var ErrSourceClosed = errors.New("frame source closed")

// Source delivers frames. A frame is only valid until the next Read.
type Source[F any] interface {
	Read() (F, error)
	Close() error
}

// View renders the current frame with an overlay and reports user input.
type View[F any] interface {
	Render(frame F, overlay Overlay)

	// Poll returns a pending command from the view, if any.
	Poll() (Command, bool)
}

// Overlay is what a View draws on top of a frame.
type Overlay struct {
	Visible     bool
	Measurement Measurement
	Estimate    Estimate
	Calibration calibration.Status
}

// DefaultCommandBuffer is the capacity of the command channel.
const DefaultCommandBuffer = 16

// Tracker runs the capture, estimate, publish loop on a single goroutine.
type Tracker[F any] struct {
	source    Source[F]
	estimator *Estimator[F]
	session   *Session
	view      View[F]
	commands  chan Command
	visible   bool
	log       *slog.Logger
}

// NewTracker creates a tracker. It takes ownership of source and closes it
// when Run returns.
func NewTracker[F any](source Source[F], estimator *Estimator[F], session *Session) *Tracker[F] {
	return &Tracker[F]{
		source:    source,
		estimator: estimator,
		session:   session,
		commands:  make(chan Command, DefaultCommandBuffer),
		visible:   true,
		log:       log.Component("tracker"),
	}
}

// SetView attaches a preview. Nil disables it.
func (t *Tracker[F]) SetView(v View[F]) {
	t.view = v
}

// Session returns the tracker's session.
func (t *Tracker[F]) Session() *Session {
	return t.session
}

// Snapshot returns the session state.
func (t *Tracker[F]) Snapshot() Snapshot {
	return t.session.Snapshot()
}

// Send queues a command without blocking. It reports false if the queue is
// full.
func (t *Tracker[F]) Send(cmd Command) bool {
	select {
	case t.commands <- cmd:
		return true
	default:
		return false
	}
}

// Run processes frames until ctx is cancelled, a quit command arrives, or
// the source fails. Cancellation and quit return nil.
func (t *Tracker[F]) Run(ctx context.Context) error {
	defer func() {
		if err := t.source.Close(); err != nil {
			t.log.Warn("closing frame source", "error", err)
		}
	}()

	t.log.Info("tracker started", "session_id", t.session.ID())

	for {
		select {
		case <-ctx.Done():
			t.log.Info("tracker stopped", "reason", ctx.Err())
			return nil
		default:
		}

		frame, err := t.source.Read()
		if err != nil {
			return errors.Wrap(err, "read frame")
		}

		m := t.estimator.Measure(frame)
		est := t.session.Step(m)

		if t.view != nil {
			t.view.Render(frame, Overlay{
				Visible:     t.visible,
				Measurement: m,
				Estimate:    est,
				Calibration: t.session.Calibrator().Status(),
			})
			if cmd, ok := t.view.Poll(); ok {
				t.Send(cmd)
			}
		}

		// At most one command per frame.
		select {
		case cmd := <-t.commands:
			if t.handle(cmd) {
				t.log.Info("tracker stopped", "reason", "quit")
				return nil
			}
		default:
		}
	}
}

// handle applies cmd and reports whether the loop should stop.
func (t *Tracker[F]) handle(cmd Command) bool {
	t.log.Debug("command", "cmd", cmd)
	switch cmd {
	case CommandQuit:
		return true
	case CommandToggleView:
		t.visible = !t.visible
	default:
		t.session.Handle(cmd)
	}
	return false
}
