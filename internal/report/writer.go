package report

import (
	"fmt"
	"io"
	"math"

	"github.com/nao1215/depscout/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WritePackages outputs the outcome of individual package studies.
	// Returns the number of bytes written and any error encountered.
	WritePackages(pkgs []*model.Package) (int, error)

	// WriteSummary outputs the classification of a dependency set.
	WriteSummary(summary *model.Summary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePackages outputs the packages to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) WritePackages(pkgs []*model.Package) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WritePackages(pkgs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
	band   model.Band
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output, band: DefaultBand}
}

// DefaultBand is the band used when a writer is not given one.
var DefaultBand = model.Band{Low: 300, Good: 500}

// Verdict is the one-line adoption advice for p.
//
// Scores below band.Low are discouraged, scores from band.Low up to
// band.Good get a hesitant answer and anything else is recommended.
// The bands match Package.ShouldInstall in non-strict mode.
func Verdict(p *model.Package, band model.Band) string {
	switch {
	case p.Score < band.Low:
		return fmt.Sprintf("You should probably not adopt %s (score: %d)", p.Name, p.Score)
	case p.Score < band.Good:
		return fmt.Sprintf("Maybe you should not adopt %s (score: %d)", p.Name, p.Score)
	default:
		return fmt.Sprintf("You should adopt %s (score: %d)", p.Name, p.Score)
	}
}

// partialOf returns the rounded partial score of the metric behind msg,
// or 0 when the message has no metric or the metric is not scored.
func partialOf(p *model.Package, msg model.Message) int {
	if msg.Metric == "" {
		return 0
	}
	return int(math.Round(p.Partials[msg.Metric]))
}
