package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pull request comments and documentation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, band model.Band) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	w.band = band
	return w
}

// WritePackages outputs one section per package with its score breakdown.
func (w *MarkdownWriter) WritePackages(pkgs []*model.Package) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("depscout Study")
	md.PlainText("")

	for _, p := range pkgs {
		if p == nil {
			continue
		}
		w.writePackage(md, p)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writePackage writes the section of one package.
func (w *MarkdownWriter) writePackage(md *markdown.Markdown, p *model.Package) {
	md.H2(p.Name)
	md.PlainText("")

	if p.Failed() {
		md.Cautionf("Analysis failed: %s", p.ErrorMessage)
		md.PlainText("")
		return
	}

	switch {
	case p.Score < w.band.Low:
		md.Warningf("%s", Verdict(p, w.band))
	case p.Score < w.band.Good:
		md.Importantf("%s", Verdict(p, w.band))
	default:
		md.Tip(Verdict(p, w.band))
	}
	md.PlainText("")

	w.writeMetricsTable(md, p)

	lists := []struct {
		header string
		msgs   []model.Message
	}{
		{"### Pros", p.Pros},
		{"### Cons", p.Cons},
		{"### Notes", p.Notes},
	}
	for _, l := range lists {
		if len(l.msgs) == 0 {
			continue
		}
		md.PlainText(l.header)
		md.PlainText("")
		items := make([]string, len(l.msgs))
		for i, msg := range l.msgs {
			items[i] = msg.Text
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

// writeMetricsTable writes the scored metrics with their partial scores.
func (w *MarkdownWriter) writeMetricsTable(md *markdown.Markdown, p *model.Package) {
	rows := make([][]string, 0, len(p.Partials))
	for _, id := range p.Metrics.IDs() {
		partial, scored := p.Partials[id]
		if !scored {
			continue
		}
		m, _ := p.Metrics.Get(id)
		value := "n/a"
		if m.Applicable {
			value = strconv.FormatFloat(m.Value, 'f', -1, 64)
		}
		rows = append(rows, []string{"`" + id + "`", value, fmt.Sprintf("%.0f", partial)})
	}
	if len(rows) == 0 {
		return
	}

	rows = append(rows, []string{"**Total**", "", "**" + strconv.Itoa(p.Score) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value", "Score"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteSummary outputs the classification in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("depscout Report")
	md.PlainText("")

	mode := "relaxed"
	if summary.Strict {
		mode = "strict"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Packages", strconv.Itoa(summary.Total())},
			{"Score band", fmt.Sprintf("%d - %d", summary.Band.Low, summary.Band.Good)},
			{"Mode", mode},
		},
	})
	md.PlainText("")

	buckets := []struct {
		label string
		pkgs  []*model.Package
	}{
		{"Banned", summary.Banned},
		{"Failing", summary.Failing},
		{"Warning", summary.Warning},
		{"Good", summary.Good},
		{"Pre-approved", summary.PreApproved},
		{"Errored", summary.Errored},
	}

	if summary.Total() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Dependency Classification"),
			piechart.WithShowData(true),
		)
		for _, b := range buckets {
			if len(b.pkgs) > 0 {
				chart.LabelAndIntValue(b.label, uint64(len(b.pkgs)))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	w.writeAlert(md, summary)

	for _, b := range buckets {
		if len(b.pkgs) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", b.label, len(b.pkgs)))
		md.PlainText("")

		rows := make([][]string, len(b.pkgs))
		for i, p := range b.pkgs {
			detail := strconv.Itoa(p.Score)
			if p.Failed() {
				detail = p.ErrorMessage
			}
			rows[i] = []string{"`" + p.Name + "`", detail}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Package", "Score"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeAlert writes an alert matching the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	switch {
	case len(summary.Banned) > 0:
		md.Cautionf("%d banned package(s) found in the dependency set.", len(summary.Banned))
	case len(summary.Failing) > 0:
		md.Warningf("%d package(s) score below the accepted band.", len(summary.Failing))
	case len(summary.Errored) > 0:
		md.Warningf("%d package(s) could not be analyzed.", len(summary.Errored))
	case len(summary.Warning) > 0:
		md.Importantf("%d package(s) are acceptable but below the good score.", len(summary.Warning))
	default:
		md.Tip("All dependencies passed.")
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [depscout](https://github.com/nao1215/depscout)*")
}
