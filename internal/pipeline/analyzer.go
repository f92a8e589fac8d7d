package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/model"
)

// Analyzer runs the full analysis of one package.
// It is safe for concurrent use: every call builds its own pipeline.
type Analyzer struct {
	factory Factory
	allowed map[string]struct{}
	banned  map[string]struct{}
	logger  *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAllowed marks the named packages as pre-approved.
func WithAllowed(names ...string) AnalyzerOption {
	return func(a *Analyzer) {
		for _, n := range names {
			a.allowed[n] = struct{}{}
		}
	}
}

// WithBanned marks the named packages as banned.
func WithBanned(names ...string) AnalyzerOption {
	return func(a *Analyzer) {
		for _, n := range names {
			a.banned[n] = struct{}{}
		}
	}
}

// WithAnalyzerLogger sets the analyzer logger.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an Analyzer building pipelines with factory.
func NewAnalyzer(factory Factory, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		factory: factory,
		allowed: make(map[string]struct{}),
		banned:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Analyze fills pkg by running the analysis pipeline.
//
// em receives analysis-started, the progress lines of every step, and
// analysis-completed carrying the error, after which it is closed. A nil
// em is allowed. The allow-list and ban-list flags are applied whether or
// not the analysis succeeds.
func (a *Analyzer) Analyze(ctx context.Context, pkg *model.Package, em *event.Emitter) error {
	_, pkg.PreApproved = a.allowed[pkg.Name]
	_, pkg.Banned = a.banned[pkg.Name]

	em.Started()
	start := time.Now()

	err := a.factory(em).Execute(ctx, pkg)

	if err != nil {
		a.logger.Warn("analysis failed", "package", pkg.Name, "error", err)
	} else {
		a.logger.Debug("analysis completed",
			"package", pkg.Name,
			"score", pkg.Score,
			"elapsed", time.Since(start),
		)
	}

	em.Completed(err)
	return err
}
