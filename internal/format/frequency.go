package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize/english"
)

// cadenceUnit is one row of the frequency table, expressed in days.
type cadenceUnit struct {
	days float64
	name string
}

// cadenceUnits is scanned from the longest unit to the shortest.
var cadenceUnits = []cadenceUnit{
	{days: 365, name: "year"},
	{days: 30, name: "month"},
	{days: 7, name: "week"},
	{days: 1, name: "day"},
	{days: 1.0 / 24, name: "hour"},
	{days: 1.0 / (24 * 60), name: "minute"},
	{days: 1.0 / (24 * 60 * 60), name: "second"},
}

// secondsPerDay converts an events-per-day rate to events-per-second.
const secondsPerDay = 24 * 60 * 60

// Frequency renders an events-per-day rate as a cadence phrase.
//
// The rate is inverted to days-per-event and matched against the first
// unit that fits, so 1/7 becomes "one every week" and 1/3 becomes
// "one every 3 days". Rates faster than one per second fall back to
// "<n> every second". A rate that is zero, negative or NaN never happens.
func Frequency(perDay float64) string {
	if perDay <= 0 || math.IsNaN(perDay) {
		return "never"
	}

	daysPerEvent := 1 / perDay
	for _, u := range cadenceUnits {
		if daysPerEvent < u.days {
			continue
		}
		n := int(math.Round(daysPerEvent / u.days))
		if n <= 1 {
			return "one every " + u.name
		}
		return "one every " + english.Plural(n, u.name, "")
	}

	return fmt.Sprintf("%d every second", int64(math.Round(perDay/secondsPerDay)))
}
