package report

import (
	"io"

	"github.com/nao1215/depscout/internal/model"
	"gopkg.in/yaml.v3"
)

// YAMLWriter outputs reports in YAML format.
//
// The document is produced from the JSON encoding and re-emitted as block
// YAML, so field names and metric order are identical in both formats.
type YAMLWriter struct {
	json *JSONWriter
}

// NewYAMLWriter creates a YAMLWriter that outputs to the given writer.
func NewYAMLWriter(output io.Writer, band model.Band) *YAMLWriter {
	return &YAMLWriter{json: NewJSONWriter(output, WithJSONBand(band))}
}

// WritePackages outputs the packages as a YAML sequence.
func (w *YAMLWriter) WritePackages(pkgs []*model.Package) (int, error) {
	return w.writeYAML(newPackageEntries(pkgs, w.json.band))
}

// WriteSummary outputs the summary as a YAML mapping.
func (w *YAMLWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeYAML(newSummaryDocument(summary))
}

func (w *YAMLWriter) writeYAML(v any) (int, error) {
	data, err := w.json.marshal(v)
	if err != nil {
		return 0, err
	}

	// JSON is a subset of YAML; decoding into a node keeps key order.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, err
	}
	blockStyle(&doc)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return 0, err
	}
	return w.json.output.Write(out)
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
