package scoring

import (
	"math"

	"github.com/nao1215/depscout/internal/model"
)

// Scorer turns one metric value into a partial score.
type Scorer interface {
	Score(value float64, computed *model.Metrics) float64
}

// Func scores a value using other computed metrics, for example total
// downloads weighted by project age. Results are rounded to an integer.
type Func func(value float64, computed *model.Metrics) float64

// Score implements Scorer.
func (f Func) Score(value float64, computed *model.Metrics) float64 {
	return math.Round(f(value, computed))
}

// Partial returns the partial score of m under s.
//
// Metrics that are not applicable, zero or NaN score exactly 0 without
// consulting s. A non-finite result, such as a division by a zero age,
// also scores 0.
func Partial(s Scorer, m model.Metric, computed *model.Metrics) float64 {
	if s == nil || !m.Truthy() {
		return 0
	}

	v := s.Score(m.Value, computed)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Total is the rounded sum of all partial scores.
func Total(partials map[string]float64) int {
	var sum float64
	for _, v := range partials {
		sum += v
	}
	return int(math.Round(sum))
}
