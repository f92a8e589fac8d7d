package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestMetric_Truthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		metric Metric
		want   bool
	}{
		{name: "positive value", metric: Value(3), want: true},
		{name: "negative value", metric: Value(-0.5), want: true},
		{name: "zero value", metric: Value(0), want: false},
		{name: "NaN value", metric: Value(math.NaN()), want: false},
		{name: "not applicable", metric: NotApplicable(), want: false},
		{name: "value with extra", metric: ValueWithExtra(12, map[string]string{"url": "x"}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.metric.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("preserves insertion order", func(t *testing.T) {
		t.Parallel()

		ms := NewMetrics()
		ms.Set("age", Value(10))
		ms.Set("releases", Value(3))
		ms.Set("commitsRate", Value(0.2))
		ms.Set("age", Value(11))

		got := strings.Join(ms.IDs(), ",")
		if got != "age,releases,commitsRate" {
			t.Errorf("unexpected order: %s", got)
		}
		if ms.Len() != 3 {
			t.Errorf("expected 3 metrics, got %d", ms.Len())
		}
		if ms.Value("age") != 11 {
			t.Errorf("expected overwritten age 11, got %v", ms.Value("age"))
		}
	})

	t.Run("Value is zero for missing and not applicable", func(t *testing.T) {
		t.Parallel()

		ms := NewMetrics()
		ms.Set("oldestPullRequestDaysAgo", NotApplicable())

		if v := ms.Value("oldestPullRequestDaysAgo"); v != 0 {
			t.Errorf("expected 0, got %v", v)
		}
		if v := ms.Value("missing"); v != 0 {
			t.Errorf("expected 0, got %v", v)
		}
	})

	t.Run("marshals not applicable as false and NaN as null", func(t *testing.T) {
		t.Parallel()

		ms := NewMetrics()
		ms.Set("a", NotApplicable())
		ms.Set("b", Value(math.NaN()))
		ms.Set("c", ValueWithExtra(2, map[string]string{"url": "u"}))

		data, err := json.Marshal(ms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":false,"b":{"value":null},"c":{"extra":{"url":"u"},"value":2}}`
		if string(data) != want {
			t.Errorf("got %s, want %s", data, want)
		}
	})

	t.Run("marshals in insertion order", func(t *testing.T) {
		t.Parallel()

		ms := NewMetrics()
		ms.Set("zeta", Value(1))
		ms.Set("alpha", Value(2))

		data, err := json.Marshal(ms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"zeta":{"value":1},"alpha":{"value":2}}`
		if string(data) != want {
			t.Errorf("got %s, want %s", data, want)
		}
	})
}

func TestFragment(t *testing.T) {
	t.Parallel()

	type doc struct{ Name string }

	raw := RawData{
		"npm":    &doc{Name: "left-pad"},
		"github": "not a doc",
	}

	t.Run("returns typed fragment", func(t *testing.T) {
		t.Parallel()

		d, err := Fragment[*doc](raw, "npm")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Name != "left-pad" {
			t.Errorf("unexpected fragment: %+v", d)
		}
	})

	t.Run("missing fragment is an extraction failure", func(t *testing.T) {
		t.Parallel()

		_, err := Fragment[*doc](raw, "gitlab")
		if !errors.Is(err, ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
	})

	t.Run("wrong type is an extraction failure", func(t *testing.T) {
		t.Parallel()

		_, err := Fragment[*doc](raw, "github")
		if !errors.Is(err, ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
	})
}
