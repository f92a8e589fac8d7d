package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// Metric is one computed measurement about a package.
//
// A metric that does not apply to the package (for example the age of the
// oldest pull request when there is none) has Applicable set to false. Such
// a metric scores zero and never matches a rule, without being an error.
type Metric struct {
	// Value is the measured number.
	Value float64 `json:"value"`

	// Applicable is false when the metric makes no sense for this package.
	Applicable bool `json:"applicable"`

	// Extra carries auxiliary strings exposed to message templates,
	// such as the URL of the oldest open issue.
	Extra map[string]string `json:"extra,omitempty"`
}

// Value wraps a bare number.
func Value(v float64) Metric {
	return Metric{Value: v, Applicable: true}
}

// ValueWithExtra wraps a number together with template data.
func ValueWithExtra(v float64, extra map[string]string) Metric {
	return Metric{Value: v, Applicable: true, Extra: extra}
}

// NotApplicable marks a metric that does not apply to the package.
func NotApplicable() Metric {
	return Metric{}
}

// Truthy reports whether the metric carries a usable non-zero value.
// Zero and NaN values, like non-applicable ones, score nothing.
func (m Metric) Truthy() bool {
	return m.Applicable && m.Value != 0 && !math.IsNaN(m.Value)
}

// Metrics is an insertion-ordered map of metric id to Metric.
// Extractors see the entries computed before them in the same order they
// were registered.
type Metrics struct {
	order  []string
	values map[string]Metric
}

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{values: make(map[string]Metric)}
}

// Set stores m under id, keeping the first insertion position.
func (ms *Metrics) Set(id string, m Metric) {
	if _, ok := ms.values[id]; !ok {
		ms.order = append(ms.order, id)
	}
	ms.values[id] = m
}

// Get returns the metric stored under id.
func (ms *Metrics) Get(id string) (Metric, bool) {
	m, ok := ms.values[id]
	return m, ok
}

// Value returns the value of id, or 0 when it is missing or not applicable.
// Message templates use it to reference other metrics.
func (ms *Metrics) Value(id string) float64 {
	m, ok := ms.values[id]
	if !ok || !m.Applicable {
		return 0
	}
	return m.Value
}

// IDs returns the metric ids in insertion order.
func (ms *Metrics) IDs() []string {
	ids := make([]string, len(ms.order))
	copy(ids, ms.order)
	return ids
}

// Len returns the number of stored metrics.
func (ms *Metrics) Len() int {
	return len(ms.order)
}

// MarshalJSON encodes the metrics as an object in extraction order.
// NaN and infinite values have no JSON form and are written as null.
func (ms *Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range ms.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		m := ms.values[id]
		var v any = false
		if m.Applicable {
			entry := map[string]any{"value": finiteOrNil(m.Value)}
			if len(m.Extra) > 0 {
				entry["extra"] = m.Extra
			}
			v = entry
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// finiteOrNil maps NaN and infinities to nil.
func finiteOrNil(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
