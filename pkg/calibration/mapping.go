package calibration

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Degree is the degree of the per-axis calibration polynomials.
const Degree = 2

var (
	// ErrInsufficientSamples is returned when fewer than MinRecords
	// records are available for fitting.
	ErrInsufficientSamples = errors.New("not enough calibration samples")

	// ErrDegenerateFit is returned when the records cannot determine a
	// polynomial, e.g. the raw coordinate never varied.
	ErrDegenerateFit = errors.New("degenerate calibration data")
)

// Record is one sample collected while the user fixated a target.
type Record struct {
	RawX    float64 `json:"raw_x"`
	RawY    float64 `json:"raw_y"`
	TargetX float64 `json:"target_x"`
	TargetY float64 `json:"target_y"`
}

// Polynomial holds coefficients in ascending order: c[0] + c[1]x + c[2]x².
type Polynomial [Degree + 1]float64

// Eval evaluates the polynomial at x using Horner's rule.
func (p Polynomial) Eval(x float64) float64 {
	y := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

func (p Polynomial) finite() bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Identity is the polynomial y = x.
var Identity = Polynomial{0, 1, 0}

// Mapping maps raw iris-space coordinates to screen coordinates with one
// independent polynomial per axis. A Mapping is never modified after Fit.
type Mapping struct {
	X Polynomial `json:"x"`
	Y Polynomial `json:"y"`
}

// Apply maps raw to screen space, clamped to the unit square. If either
// polynomial evaluates to a non-finite value, raw is returned unchanged and
// ok is false.
func (m Mapping) Apply(raw geom.Point) (p geom.Point, ok bool) {
	p = geom.Pt(m.X.Eval(raw.X), m.Y.Eval(raw.Y))
	if !p.Finite() {
		return raw, false
	}
	return p.Clamp01(), true
}

// Fit computes a Mapping from records by least squares, fitting
// raw_x→target_x and raw_y→target_y independently. It needs at least
// minRecords records, and at least Degree+1 distinct raw values per axis.
func Fit(records []Record, minRecords int) (Mapping, error) {
	if minRecords < Degree+1 {
		minRecords = Degree + 1
	}
	if len(records) < minRecords {
		return Mapping{}, errors.Wrapf(ErrInsufficientSamples, "have %d, need %d", len(records), minRecords)
	}

	rawX := make([]float64, len(records))
	rawY := make([]float64, len(records))
	targetX := make([]float64, len(records))
	targetY := make([]float64, len(records))
	for i, r := range records {
		rawX[i], rawY[i] = r.RawX, r.RawY
		targetX[i], targetY[i] = r.TargetX, r.TargetY
	}

	px, err := fitAxis(rawX, targetX)
	if err != nil {
		return Mapping{}, errors.Wrap(err, "x axis")
	}
	py, err := fitAxis(rawY, targetY)
	if err != nil {
		return Mapping{}, errors.Wrap(err, "y axis")
	}
	return Mapping{X: px, Y: py}, nil
}

// fitAxis solves the overdetermined Vandermonde system V·c = target.
func fitAxis(raw, target []float64) (Polynomial, error) {
	if distinct(raw) < Degree+1 {
		return Polynomial{}, errors.Wrapf(ErrDegenerateFit, "need %d distinct raw values", Degree+1)
	}

	n := len(raw)
	v := mat.NewDense(n, Degree+1, nil)
	b := mat.NewVecDense(n, nil)
	for i, x := range raw {
		pow := 1.0
		for j := 0; j <= Degree; j++ {
			v.Set(i, j, pow)
			pow *= x
		}
		b.SetVec(i, target[i])
	}

	var qr mat.QR
	qr.Factorize(v)

	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return Polynomial{}, errors.Wrapf(ErrDegenerateFit, "least squares: %v", err)
	}

	var p Polynomial
	for j := range p {
		p[j] = c.AtVec(j)
	}
	if !p.finite() {
		return Polynomial{}, errors.Wrap(ErrDegenerateFit, "non-finite coefficients")
	}
	return p, nil
}

// distinct counts distinct values, treating values closer than 1e-9 as equal.
func distinct(xs []float64) int {
	var seen []float64
outer:
	for _, x := range xs {
		for _, s := range seen {
			if math.Abs(x-s) < 1e-9 {
				continue outer
			}
		}
		seen = append(seen, x)
		if len(seen) > Degree {
			break
		}
	}
	return len(seen)
}
