// Package scraper collects the raw upstream documents of a package.
//
// Scrapers are registered in a Registry with a pass number. A Pipeline runs
// all pass 1 scrapers before any pass 2 scraper, in registration order
// within a pass, one at a time. Each scraper sees the fragments collected
// before it, which is how the GitHub scraper finds the repository URL in the
// npm document.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/model"
)

var (
	// ErrDuplicateScraper is returned when two scrapers share a name.
	ErrDuplicateScraper = errors.New("scraper already registered")

	// ErrInvalidPass is returned for a pass number lower than 1.
	ErrInvalidPass = errors.New("scraper pass must be 1 or greater")
)

// Scraper fetches one fragment of raw data for a package.
type Scraper interface {
	// Name is the key the fragment is stored under in model.RawData.
	Name() string

	// Pass orders scrapers: lower passes run first.
	Pass() int

	// Scrape fetches the fragment. prior holds every fragment collected
	// earlier for the same package.
	Scrape(ctx context.Context, name string, sink event.Sink, prior model.RawData) (any, error)
}

// Registry holds the scrapers of a run.
type Registry struct {
	scrapers []Scraper
}

// NewRegistry returns a registry holding scrapers in the given order.
func NewRegistry(scrapers ...Scraper) (*Registry, error) {
	r := &Registry{}
	for _, s := range scrapers {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds s after the scrapers already registered.
func (r *Registry) Register(s Scraper) error {
	if s.Pass() < 1 {
		return fmt.Errorf("%w: %s has pass %d", ErrInvalidPass, s.Name(), s.Pass())
	}
	for _, existing := range r.scrapers {
		if existing.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateScraper, s.Name())
		}
	}
	r.scrapers = append(r.scrapers, s)
	return nil
}

// Ordered returns the scrapers sorted by pass, keeping registration order
// within a pass.
func (r *Registry) Ordered() []Scraper {
	out := slices.Clone(r.scrapers)
	slices.SortStableFunc(out, func(a, b Scraper) int { return a.Pass() - b.Pass() })
	return out
}

// Names returns the scraper names in execution order.
func (r *Registry) Names() []string {
	ordered := r.Ordered()
	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.Name()
	}
	return names
}

// Pipeline runs the scrapers of a Registry for one package at a time.
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

// Run collects the raw data of package name.
// The first scraper error aborts the run; fragments collected so far are
// returned alongside the error for diagnostics.
func (p *Pipeline) Run(ctx context.Context, name string, sink event.Sink) (model.RawData, error) {
	if sink == nil {
		sink = event.Nop{}
	}

	raw := make(model.RawData)
	for _, s := range p.registry.Ordered() {
		if err := ctx.Err(); err != nil {
			return raw, err
		}

		p.logger.Debug("running scraper", "package", name, "scraper", s.Name(), "pass", s.Pass())

		fragment, err := s.Scrape(ctx, name, sink, raw)
		if err != nil {
			return raw, fmt.Errorf("%s scraper: %w", s.Name(), err)
		}
		raw[s.Name()] = fragment
	}
	return raw, nil
}
