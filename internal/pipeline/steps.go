package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/metric"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/scoring"
	"github.com/nao1215/depscout/internal/scraper"
)

// Step names.
const (
	StepScrape   = "scrape"
	StepDumpRaw  = "dump_raw"
	StepExtract  = "extract"
	StepScore    = "score"
	StepEvaluate = "evaluate"
)

// ScrapeStep collects the raw upstream documents of the package.
type ScrapeStep struct {
	scrapers *scraper.Pipeline
	sink     event.Sink
}

// NewScrapeStep creates a scrape step reporting progress to sink.
func NewScrapeStep(scrapers *scraper.Pipeline, sink event.Sink) *ScrapeStep {
	if sink == nil {
		sink = event.Nop{}
	}
	return &ScrapeStep{scrapers: scrapers, sink: sink}
}

// Name returns the step name.
func (s *ScrapeStep) Name() string {
	return StepScrape
}

// Do executes the scrape step.
func (s *ScrapeStep) Do(ctx context.Context, pkg *model.Package) error {
	raw, err := s.scrapers.Run(ctx, pkg.Name, s.sink)
	pkg.Raw = raw
	return err
}

// DumpRawStep writes the raw data of the package as JSON, for debugging
// extractors against real upstream documents.
type DumpRawStep struct {
	dir string
}

// NewDumpRawStep creates a step writing <dir>/<package>.raw.json.
func NewDumpRawStep(dir string) *DumpRawStep {
	return &DumpRawStep{dir: dir}
}

// Name returns the step name.
func (s *DumpRawStep) Name() string {
	return StepDumpRaw
}

// Do executes the dump step.
func (s *DumpRawStep) Do(_ context.Context, pkg *model.Package) error {
	data, err := json.MarshalIndent(pkg.Raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode raw data: %w", err)
	}

	// Scoped names contain a slash.
	file := strings.ReplaceAll(pkg.Name, "/", "__") + ".raw.json"
	if err := os.WriteFile(filepath.Join(s.dir, file), data, 0o600); err != nil {
		return fmt.Errorf("failed to write raw data: %w", err)
	}
	return nil
}

// ExtractStep computes the metrics of the package.
type ExtractStep struct {
	metrics *metric.Pipeline
	sink    event.Sink
}

// NewExtractStep creates an extract step.
func NewExtractStep(metrics *metric.Pipeline, sink event.Sink) *ExtractStep {
	if sink == nil {
		sink = event.Nop{}
	}
	return &ExtractStep{metrics: metrics, sink: sink}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do executes the extract step.
func (s *ExtractStep) Do(_ context.Context, pkg *model.Package) error {
	s.sink.Progress("Computing metrics")

	computed, err := s.metrics.Extract(pkg.Raw)
	pkg.Metrics = computed
	return err
}

// ScoreStep computes the partial scores and the total.
type ScoreStep struct {
	metrics *metric.Pipeline
}

// NewScoreStep creates a score step.
func NewScoreStep(metrics *metric.Pipeline) *ScoreStep {
	return &ScoreStep{metrics: metrics}
}

// Name returns the step name.
func (s *ScoreStep) Name() string {
	return StepScore
}

// Do executes the score step.
func (s *ScoreStep) Do(_ context.Context, pkg *model.Package) error {
	pkg.Partials = s.metrics.Score(pkg.Metrics)
	pkg.Score = scoring.Total(pkg.Partials)
	return nil
}

// EvaluateStep renders the pros, cons and notes of the package.
type EvaluateStep struct {
	metrics *metric.Pipeline
}

// NewEvaluateStep creates an evaluate step.
func NewEvaluateStep(metrics *metric.Pipeline) *EvaluateStep {
	return &EvaluateStep{metrics: metrics}
}

// Name returns the step name.
func (s *EvaluateStep) Name() string {
	return StepEvaluate
}

// Do executes the evaluate step.
func (s *EvaluateStep) Do(_ context.Context, pkg *model.Package) error {
	return s.metrics.Evaluate(pkg.Metrics, pkg.AddMessage)
}

// Factory builds the pipeline of one package analysis. sink receives the
// progress lines of that analysis.
type Factory func(sink event.Sink) *Pipeline

// StandardFactory returns the factory used by the CLI: scrape, optionally
// dump the raw data into rawDir, extract, score and evaluate.
func StandardFactory(scrapers *scraper.Pipeline, metrics *metric.Pipeline, rawDir string, opts ...Option) Factory {
	return func(sink event.Sink) *Pipeline {
		p := New(opts...)
		p.AddStep(NewScrapeStep(scrapers, sink))
		if rawDir != "" {
			p.AddStep(NewDumpRawStep(rawDir))
		}
		p.AddSteps(
			NewExtractStep(metrics, sink),
			NewScoreStep(metrics),
			NewEvaluateStep(metrics),
		)
		return p
	}
}
