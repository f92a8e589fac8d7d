package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Number rounds v to an integer and groups its digits with commas.
func Number(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", int64(math.Round(v)))
}

// Growth renders a ratio as a signed percentage: 0.25 becomes "+25%",
// -0.5 becomes "-50%" and zero stays "0%".
func Growth(v float64) string {
	pct := int64(math.Round(v * 100))
	if pct > 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}
