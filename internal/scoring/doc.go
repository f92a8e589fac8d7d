// Package scoring converts metric values into partial scores.
//
// A metric scores either through a Curve, a set of (value, score) control
// points interpolated monotonically, or through a Func that may look at
// other metrics. The package total is the rounded sum of the partials.
package scoring
