package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/depscout/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the model types already carry json tags and the
// ordered metrics map implements json.Marshaler.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithJSONBand sets the thresholds used for the verdict fields.
func WithJSONBand(band model.Band) JSONWriterOption {
	return func(w *JSONWriter) {
		w.band = band
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// PackageEntry is a package as serialized in study reports.
type PackageEntry struct {
	*model.Package

	// Verdict is the one-line adoption advice.
	Verdict string `json:"verdict,omitempty" yaml:"verdict,omitempty"`

	// ShouldInstall is the non-strict install decision.
	ShouldInstall bool `json:"shouldInstall" yaml:"shouldInstall"`
}

// newPackageEntries decorates pkgs with verdicts under band.
func newPackageEntries(pkgs []*model.Package, band model.Band) []PackageEntry {
	entries := make([]PackageEntry, 0, len(pkgs))
	for _, p := range pkgs {
		if p == nil {
			continue
		}
		e := PackageEntry{Package: p}
		if !p.Failed() {
			e.Verdict = Verdict(p, band)
			e.ShouldInstall = p.ShouldInstall(band, false)
		}
		entries = append(entries, e)
	}
	return entries
}

// WritePackages outputs the packages as a JSON array.
func (w *JSONWriter) WritePackages(pkgs []*model.Package) (int, error) {
	return w.writeJSON(newPackageEntries(pkgs, w.band))
}

// WriteSummary outputs the summary in JSON format.
func (w *JSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeJSON(newSummaryDocument(summary))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	data, err := w.marshal(v)
	if err != nil {
		return 0, err
	}
	return w.output.Write(data)
}

func (w *JSONWriter) marshal(v any) ([]byte, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return nil, err
	}

	// Add trailing newline for better terminal output
	return append(data, '\n'), nil
}

// SummaryDocument is the serialized form of a Summary with its outcome.
type SummaryDocument struct {
	*model.Summary

	// Success mirrors Summary.Passed, the outcome reported to the shell.
	Success bool `json:"success" yaml:"success"`
}

func newSummaryDocument(summary *model.Summary) SummaryDocument {
	return SummaryDocument{Summary: summary, Success: summary.Passed()}
}

// Document is a report wrapped with metadata.
//
// Design decision: We wrap the report rather than adding fields to the
// model types, so output-specific fields never leak into the analysis
// aggregate.
type Document struct {
	// Version is the depscout version that generated this report.
	Version string `json:"version"`

	// GeneratedAt is when the report was written.
	GeneratedAt time.Time `json:"generatedAt"`

	// Packages holds study results. Empty for summary reports.
	Packages []PackageEntry `json:"packages,omitempty"`

	// Summary holds the classification. Nil for study reports.
	Summary *SummaryDocument `json:"summary,omitempty"`
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the depscout version string.
	version string

	// now returns the generation time.
	now func() time.Time
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
		now:        time.Now,
	}
}

// WritePackages outputs the packages wrapped with metadata.
func (w *FullJSONWriter) WritePackages(pkgs []*model.Package) (int, error) {
	return w.writeJSON(&Document{
		Version:     w.version,
		GeneratedAt: w.now().UTC(),
		Packages:    newPackageEntries(pkgs, w.band),
	})
}

// WriteSummary outputs the summary wrapped with metadata.
func (w *FullJSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	doc := newSummaryDocument(summary)
	return w.writeJSON(&Document{
		Version:     w.version,
		GeneratedAt: w.now().UTC(),
		Summary:     &doc,
	})
}
