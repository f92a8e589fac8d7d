// Package model defines the data shared by every stage of a package
// analysis: the raw upstream documents, computed metrics, rendered
// messages, the Package aggregate with its install decision, and the
// Summary that classifies a batch of packages against a score band.
//
// Design decision: these types live in their own package so that the
// scraper, metric, pipeline and report packages can all depend on them
// without importing each other.
package model
