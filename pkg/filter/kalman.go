package filter

import (
	"log/slog"
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// ConstantVelocityConfig holds the Kalman filter parameters.
type ConstantVelocityConfig struct {
	Dt                 float64 // Seconds per tick
	MeasurementStdDev  float64 // Measurement noise, normalized units
	AccelerationStdDev float64 // Process noise, normalized units / s²
	MaxCoast           int     // Ticks to extrapolate without measurements before holding
}

// DefaultConstantVelocityConfig returns parameters tuned for a 30 fps webcam.
// Measurement variance is 5; the acceleration noise gives a steady-state
// position gain close to the EMA's 0.15.
func DefaultConstantVelocityConfig() ConstantVelocityConfig {
	return ConstantVelocityConfig{
		Dt:                 1.0 / 30,
		MeasurementStdDev:  math.Sqrt(5),
		AccelerationStdDev: 20,
		MaxCoast:           15,
	}
}

// ConstantVelocity tracks (x, y, vx, vy) with a linear Kalman filter. It
// predicts every tick and corrects when a measurement arrives. Without
// measurements it coasts along the estimated velocity for MaxCoast ticks and
// then holds its last output.
type ConstantVelocity struct {
	config ConstantVelocityConfig
	log    *slog.Logger

	kf    *kalman_filter.Kalman2D
	out   geom.Point
	coast int
}

// NewConstantVelocity creates a filter. The Kalman state is created lazily
// from the first measurement.
func NewConstantVelocity(config ConstantVelocityConfig) *ConstantVelocity {
	def := DefaultConstantVelocityConfig()
	if config.Dt <= 0 {
		config.Dt = def.Dt
	}
	if config.MeasurementStdDev <= 0 {
		config.MeasurementStdDev = def.MeasurementStdDev
	}
	if config.AccelerationStdDev <= 0 {
		config.AccelerationStdDev = def.AccelerationStdDev
	}
	if config.MaxCoast < 0 {
		config.MaxCoast = 0
	}
	return &ConstantVelocity{
		config: config,
		log:    log.Component("filter"),
		out:    geom.Center,
	}
}

// Step implements Filter.
func (c *ConstantVelocity) Step(p geom.Point, ok bool) geom.Point {
	ok = ok && p.Finite()

	if c.kf == nil {
		if !ok {
			return c.out
		}
		c.kf = kalman_filter.NewKalman2D(
			c.config.Dt,
			0, 0, // no control input
			c.config.AccelerationStdDev,
			c.config.MeasurementStdDev,
			c.config.MeasurementStdDev,
			kalman_filter.WithState2D(p.X, p.Y),
		)
		c.out = p.Clamp01()
		return c.out
	}

	if !ok {
		if c.coast >= c.config.MaxCoast {
			return c.out
		}
		c.coast++
		c.kf.Predict()
		c.out = c.state()
		return c.out
	}

	c.coast = 0
	c.kf.Predict()
	if err := c.kf.Update(p.X, p.Y); err != nil {
		c.log.Debug("kalman update rejected, keeping prediction", "error", err)
	}
	c.out = c.state()
	return c.out
}

func (c *ConstantVelocity) state() geom.Point {
	x, y := c.kf.GetState()
	s := geom.Pt(x, y)
	if !s.Finite() {
		return c.out
	}
	return s.Clamp01()
}

// Reset implements Filter.
func (c *ConstantVelocity) Reset() {
	c.kf = nil
	c.coast = 0
	c.out = geom.Center
}
