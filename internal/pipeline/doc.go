// Package pipeline runs the analysis of npm packages.
//
// A package is analyzed by a Pipeline of steps: scrape, extract, score and
// evaluate. Each step receives the package aggregate and fills in its part.
// An Analyzer builds a fresh pipeline per package, wires its progress
// events and applies the allow-list and ban-list. A BatchProcessor runs
// many analyses concurrently with a bound on parallelism.
//
// Design decision: steps run strictly in sequence for one package. Scoring
// needs every metric, and metrics need every scraper fragment, so there is
// nothing to overlap inside one analysis. Parallelism lives across
// packages only.
package pipeline
