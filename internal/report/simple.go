package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/depscout/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools as is.
type SimpleWriter struct {
	baseWriter

	// explain prints the score breakdown instead of the one-line verdict.
	explain bool

	// showEmpty controls whether empty summary buckets are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithBand sets the thresholds used for verdicts.
func WithBand(band model.Band) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.band = band
	}
}

// WithExplain prints pros, cons and notes with partial scores for each
// package instead of the verdict line.
func WithExplain(explain bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.explain = explain
	}
}

// WithShowEmpty configures the writer to show empty summary buckets.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePackages outputs one verdict, or one explanation, per package.
func (w *SimpleWriter) WritePackages(pkgs []*model.Package) (int, error) {
	var sb strings.Builder

	for _, p := range pkgs {
		if p == nil {
			continue
		}

		if p.Failed() {
			sb.WriteString(fmt.Sprintf("Could not study %s: %s\n", p.Name, p.ErrorMessage))
			continue
		}

		if w.explain {
			w.writeExplanation(&sb, p)
			continue
		}
		sb.WriteString(Verdict(p, w.band))
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// writeExplanation writes the score followed by pros, cons and notes.
// Pros carry the partial score of their metric when it is non-zero.
func (w *SimpleWriter) writeExplanation(sb *strings.Builder, p *model.Package) {
	sb.WriteString(fmt.Sprintf("\n%s has scored: %d\n\n", p.Name, p.Score))

	w.writeList(sb, p, "Pros", p.Pros, true)
	w.writeList(sb, p, "Cons", p.Cons, false)
	w.writeList(sb, p, "Notes", p.Notes, false)
}

func (w *SimpleWriter) writeList(sb *strings.Builder, p *model.Package, label string, msgs []model.Message, withScore bool) {
	if len(msgs) == 0 {
		return
	}

	sb.WriteString(label)
	sb.WriteString(":\n")
	for _, msg := range msgs {
		sb.WriteString("- ")
		sb.WriteString(msg.Text)
		if withScore {
			if score := partialOf(p, msg); score != 0 {
				sb.WriteString(fmt.Sprintf(" +%d", score))
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// WriteSummary outputs the classification of a dependency set.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)

	buckets := []struct {
		title string
		pkgs  []*model.Package
	}{
		{"BANNED", summary.Banned},
		{"FAILING", summary.Failing},
		{"WARNING", summary.Warning},
		{"GOOD", summary.Good},
		{"PRE-APPROVED", summary.PreApproved},
		{"ERRORED", summary.Errored},
	}
	for _, b := range buckets {
		w.writeBucket(&sb, b.title, b.pkgs)
	}

	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with the thresholds in use.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        DEPENDENCY REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	mode := "relaxed"
	if summary.Strict {
		mode = "strict"
	}
	sb.WriteString(fmt.Sprintf("Packages:   %d\n", summary.Total()))
	sb.WriteString(fmt.Sprintf("Score band: %d - %d\n", summary.Band.Low, summary.Band.Good))
	sb.WriteString(fmt.Sprintf("Mode:       %s\n", mode))
	sb.WriteString("\n")
}

// writeBucket writes one classification bucket.
func (w *SimpleWriter) writeBucket(sb *strings.Builder, title string, pkgs []*model.Package) {
	if len(pkgs) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s (%d)\n", title, len(pkgs)))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(pkgs) == 0 {
		sb.WriteString("  None\n\n")
		return
	}

	for _, p := range pkgs {
		if p.Failed() {
			sb.WriteString(fmt.Sprintf("  * %s: %s\n", p.Name, p.ErrorMessage))
			continue
		}
		sb.WriteString(fmt.Sprintf("  * %s (score: %d)\n", p.Name, p.Score))
	}
	sb.WriteString("\n")
}

// writeFooter writes the overall outcome.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if summary.Passed() {
		sb.WriteString("Result: PASS\n")
	} else {
		sb.WriteString("Result: FAIL\n")
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
