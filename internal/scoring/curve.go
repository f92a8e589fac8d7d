package scoring

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/nao1215/depscout/internal/model"
	"gonum.org/v1/gonum/interp"
)

// ErrInvalidCurve is returned when control points cannot define a curve.
var ErrInvalidCurve = errors.New("invalid scoring curve")

// Mode selects how a Curve interpolates between control points.
type Mode int

const (
	// ModeCubic uses a monotone cubic (Fritsch-Butland) spline. It follows
	// the control points smoothly without overshooting between them.
	ModeCubic Mode = iota

	// ModeLinear joins control points with straight segments.
	ModeLinear
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeCubic:
		return "cubic"
	case ModeLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// Point is one control point: observing Value yields Score.
type Point struct {
	Value float64
	Score float64
}

// Curve maps an observed value to a score by interpolating between control
// points sorted ascending by value.
//
// Outside the covered range the score of the nearest end point is used, and
// results are never below zero.
type Curve struct {
	points    []Point
	mode      Mode
	predictor interp.Predictor
}

// CurveOption configures a Curve.
type CurveOption func(*Curve)

// WithLinear makes the curve piecewise linear instead of cubic.
func WithLinear() CurveOption {
	return func(c *Curve) {
		c.mode = ModeLinear
	}
}

// NewCurve builds a curve from [value, score] pairs given in any order.
// Two pairs with the same value are rejected.
func NewCurve(pairs [][2]float64, opts ...CurveOption) (*Curve, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no control points", ErrInvalidCurve)
	}

	c := &Curve{points: make([]Point, len(pairs))}
	for i, p := range pairs {
		c.points[i] = Point{Value: p[0], Score: p[1]}
	}
	for _, opt := range opts {
		opt(c)
	}

	slices.SortFunc(c.points, func(a, b Point) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		default:
			return 0
		}
	})

	xs := make([]float64, len(c.points))
	ys := make([]float64, len(c.points))
	for i, p := range c.points {
		if i > 0 && p.Value == c.points[i-1].Value {
			return nil, fmt.Errorf("%w: duplicate control point at %v", ErrInvalidCurve, p.Value)
		}
		xs[i] = p.Value
		ys[i] = p.Score
	}

	if len(c.points) == 1 {
		c.predictor = constant(ys[0])
		return c, nil
	}

	// The cubic fit needs at least three points.
	if c.mode == ModeCubic && len(c.points) >= 3 {
		fb := &interp.FritschButland{}
		if err := fb.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCurve, err)
		}
		c.predictor = fb
		return c, nil
	}

	pl := &interp.PiecewiseLinear{}
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCurve, err)
	}
	c.predictor = pl
	return c, nil
}

// MustCurve is like NewCurve but panics on error.
// It is meant for curves declared as package-level values.
func MustCurve(pairs [][2]float64, opts ...CurveOption) *Curve {
	c, err := NewCurve(pairs, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Score interpolates the curve at value. It implements Scorer.
func (c *Curve) Score(value float64, _ *model.Metrics) float64 {
	first, last := c.points[0], c.points[len(c.points)-1]

	var s float64
	switch {
	case value <= first.Value:
		s = first.Score
	case value >= last.Value:
		s = last.Score
	default:
		s = c.predictor.Predict(value)
	}

	return math.Max(0, s)
}

// Points returns a copy of the sorted control points.
func (c *Curve) Points() []Point {
	return slices.Clone(c.points)
}

// Mode returns the interpolation mode.
func (c *Curve) Mode() Mode {
	return c.mode
}

// constant is a Predictor for single-point curves.
type constant float64

func (k constant) Predict(float64) float64 { return float64(k) }
