// Package format turns raw metric values into the short human phrases used
// in pros, cons and notes: release cadences ("one every 3 days"), ages
// ("1 year, 2 months"), grouped counts and signed growth percentages.
package format
