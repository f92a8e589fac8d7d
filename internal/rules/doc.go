// Package rules matches metric values against threshold rules and renders
// the pro, note and cons messages that explain a score.
//
// Messages are text/template templates evaluated against a Context holding
// the rounded value, the metric's extra data and every computed metric.
// The helpers humanize, number, growth and rate are available:
//
//	Is very young ({{humanize .Value}})
//	Issues are closed fast (on {{.Data.Value "issueClosingCount"}} issues)
package rules
