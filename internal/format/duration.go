package format

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize/english"
)

// durationUnit is a calendar unit measured in days.
type durationUnit struct {
	days float64
	name string
}

// durationUnits uses average calendar lengths so that ages computed as
// fractional days round to familiar values.
var durationUnits = []durationUnit{
	{days: 365.25, name: "year"},
	{days: 30.4375, name: "month"},
	{days: 7, name: "week"},
	{days: 1, name: "day"},
	{days: 1.0 / 24, name: "hour"},
	{days: 1.0 / (24 * 60), name: "minute"},
	{days: 1.0 / (24 * 60 * 60), name: "second"},
}

// Duration renders a number of days as at most two coarse units, for
// example "1 year, 2 months" or "3 days". The second unit is rounded and
// carried into the first when it overflows. Negative input is treated as
// its magnitude.
func Duration(days float64) string {
	days = math.Abs(days)
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return "an unknown time"
	}

	first := -1
	for i, u := range durationUnits {
		if days >= u.days {
			first = i
			break
		}
	}
	if first < 0 {
		return "0 seconds"
	}

	lead := durationUnits[first]
	if first == len(durationUnits)-1 {
		return english.Plural(int(math.Round(days/lead.days)), lead.name, "")
	}

	leadCount := int(math.Floor(days / lead.days))
	rest := days - float64(leadCount)*lead.days

	parts := []string{}
	for _, u := range durationUnits[first+1:] {
		n := int(math.Round(rest / u.days))
		if n < 1 {
			continue
		}
		if float64(n)*u.days >= lead.days-1e-9 {
			leadCount++
			break
		}
		parts = append(parts, english.Plural(n, u.name, ""))
		break
	}

	return strings.Join(append([]string{english.Plural(leadCount, lead.name, "")}, parts...), ", ")
}
