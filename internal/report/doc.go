// Package report renders analyzed packages and batch summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - YAMLWriter: YAML output for configuration-minded pipelines
//   - MarkdownWriter: Markdown output for pull request comments and docs
//
// Design decision: Report writing is kept apart from the analysis data
// structures in the model package, so new output formats never touch the
// aggregate itself.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
