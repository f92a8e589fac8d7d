// Package metric turns the raw upstream documents of a package into named
// measurements, and scores and explains them.
//
// A Definition pairs an extractor with optional rules and an optional
// scorer. Definitions are registered with a pass number: every pass 1
// extractor runs before any pass 2 extractor, so derived metrics such as
// stars per day can read the metrics they depend on.
package metric

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/rules"
	"github.com/nao1215/depscout/internal/scoring"
)

var (
	// ErrDuplicateMetric is returned when two definitions share an id.
	ErrDuplicateMetric = errors.New("metric already registered")

	// ErrInvalidDefinition is returned for a definition without id or
	// extractor, or with a pass lower than 1.
	ErrInvalidDefinition = errors.New("invalid metric definition")
)

// Extractor computes a metric from the raw data and the metrics computed
// before it. Returning an error aborts the analysis of the package.
type Extractor func(raw model.RawData, computed *model.Metrics) (model.Metric, error)

// Processor runs after rule matching and may add free-form messages.
type Processor func(computed *model.Metrics, emit rules.Emitter)

// Definition describes one metric.
type Definition struct {
	// ID names the metric. Templates reference other metrics by id.
	ID string

	// Pass orders extraction: lower passes run first.
	Pass int

	// Extract computes the metric.
	Extract Extractor

	// Rules renders pros, cons and notes. Nil means no messages.
	Rules *rules.RuleSet

	// Score produces the partial score. Nil means the metric is
	// informational and contributes nothing.
	Score scoring.Scorer

	// Processor is an optional hook run after Rules.
	Processor Processor
}

// Registry holds metric definitions.
type Registry struct {
	defs []Definition
}

// NewRegistry returns a registry holding defs in the given order.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds d after the definitions already registered.
func (r *Registry) Register(d Definition) error {
	if d.ID == "" || d.Extract == nil {
		return fmt.Errorf("%w: id and extractor are required", ErrInvalidDefinition)
	}
	if d.Pass < 1 {
		return fmt.Errorf("%w: %s has pass %d", ErrInvalidDefinition, d.ID, d.Pass)
	}
	for _, existing := range r.defs {
		if existing.ID == d.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateMetric, d.ID)
		}
	}
	r.defs = append(r.defs, d)
	return nil
}

// Ordered returns the definitions sorted by pass, keeping registration
// order within a pass.
func (r *Registry) Ordered() []Definition {
	out := slices.Clone(r.defs)
	slices.SortStableFunc(out, func(a, b Definition) int { return a.Pass - b.Pass })
	return out
}

// Lookup returns the definition with the given id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	for _, d := range r.defs {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Pipeline extracts, scores and explains metrics for one package.
// It holds no per-package state and may be shared across goroutines.
type Pipeline struct {
	registry *Registry
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline returns a Pipeline over registry.
func NewPipeline(registry *Registry, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the definitions the pipeline runs.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Extract runs every extractor and returns the metrics in execution order.
// Results are stored exactly as returned. The first extractor error aborts
// extraction.
func (p *Pipeline) Extract(raw model.RawData) (*model.Metrics, error) {
	computed := model.NewMetrics()

	for _, d := range p.registry.Ordered() {
		m, err := d.Extract(raw, computed)
		if err != nil {
			return computed, fmt.Errorf("metric %s: %w", d.ID, err)
		}
		computed.Set(d.ID, m)

		p.logger.Debug("extracted metric", "metric", d.ID, "pass", d.Pass,
			"value", m.Value, "applicable", m.Applicable)
	}
	return computed, nil
}

// Score returns the partial score of every metric that has a scorer.
func (p *Pipeline) Score(computed *model.Metrics) map[string]float64 {
	partials := make(map[string]float64)
	for _, d := range p.registry.Ordered() {
		if d.Score == nil {
			continue
		}
		m, _ := computed.Get(d.ID)
		partials[d.ID] = scoring.Partial(d.Score, m, computed)
	}
	return partials
}

// Evaluate renders the messages of every metric through emit, then runs
// the processors.
func (p *Pipeline) Evaluate(computed *model.Metrics, emit rules.Emitter) error {
	for _, d := range p.registry.Ordered() {
		m, ok := computed.Get(d.ID)
		if !ok {
			continue
		}
		if err := d.Rules.Evaluate(d.ID, m, computed, emit); err != nil {
			return err
		}
		if d.Processor != nil {
			d.Processor(computed, emit)
		}
	}
	return nil
}
