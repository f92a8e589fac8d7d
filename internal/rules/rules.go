package rules

import (
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/nao1215/depscout/internal/format"
	"github.com/nao1215/depscout/internal/model"
)

// helpers are the formatting functions available to message templates.
var helpers = template.FuncMap{
	"humanize": format.Duration,
	"number":   format.Number,
	"growth":   format.Growth,
	"rate":     format.Frequency,
}

// Bound returns a pointer to v for use as a rule's Min or Max.
func Bound(v float64) *float64 {
	return &v
}

// Rule emits Message when a metric value falls within its bounds.
type Rule struct {
	// Type is pro, note or cons.
	Type model.MessageType

	// Min and Max bound the matching values. With only Min set the value
	// must be strictly greater, with only Max strictly lower, and with both
	// set the range is inclusive at both ends. A rule with neither bound
	// documents intent but never matches.
	Min *float64
	Max *float64

	// Message is a text/template rendered against a Context.
	Message string

	tmpl *template.Template
}

// Matches reports whether v satisfies the rule bounds.
func (r Rule) Matches(v float64) bool {
	switch {
	case r.Min != nil && r.Max == nil:
		return v > *r.Min
	case r.Min == nil && r.Max != nil:
		return v < *r.Max
	case r.Min != nil && r.Max != nil:
		return v >= *r.Min && v <= *r.Max
	default:
		return false
	}
}

// RuleSet is the ordered list of rules of one metric, with an optional
// postfix template appended after every rendered message.
type RuleSet struct {
	Rules   []Rule
	Postfix string

	postfix  *template.Template
	compiled bool
}

// Context is the data a message template is rendered against.
type Context struct {
	// Value is the metric value rounded to three decimals.
	Value float64

	// Extra is the metric's auxiliary data, such as a URL.
	Extra map[string]string

	// Data gives access to every computed metric of the package.
	Data *model.Metrics
}

// Emitter receives one rendered message. Package.AddMessage satisfies it.
type Emitter func(t model.MessageType, text, metric string)

// Compile parses every template of rs and returns a ready RuleSet.
func Compile(rs RuleSet) (*RuleSet, error) {
	out := &RuleSet{
		Rules:   make([]Rule, len(rs.Rules)),
		Postfix: rs.Postfix,
	}

	for i, r := range rs.Rules {
		tmpl, err := parse(fmt.Sprintf("rule%d", i), r.Message)
		if err != nil {
			return nil, err
		}
		r.tmpl = tmpl
		out.Rules[i] = r
	}

	if rs.Postfix != "" {
		tmpl, err := parse("postfix", rs.Postfix)
		if err != nil {
			return nil, err
		}
		out.postfix = tmpl
	}

	out.compiled = true
	return out, nil
}

// Must is like Compile but panics on error. It is meant for rule sets
// declared alongside metric definitions.
func Must(rs RuleSet) *RuleSet {
	compiled, err := Compile(rs)
	if err != nil {
		panic(err)
	}
	return compiled
}

func parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(helpers).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message template %q: %w", text, err)
	}
	return tmpl, nil
}

// Round3 rounds v to three decimal places, the precision rules compare at.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Evaluate renders a message for every rule of rs that m matches.
//
// Every rule is checked in declared order, so overlapping rules all fire.
// Metrics that are not applicable produce no messages. A rule whose type
// is not pro, note or cons panics with model.ErrInvalidMessageType.
func (rs *RuleSet) Evaluate(metricID string, m model.Metric, computed *model.Metrics, emit Emitter) error {
	if rs == nil || len(rs.Rules) == 0 || !m.Applicable {
		return nil
	}
	if !rs.compiled {
		compiled, err := Compile(*rs)
		if err != nil {
			return err
		}
		rs = compiled
	}

	ctx := Context{
		Value: Round3(m.Value),
		Extra: m.Extra,
		Data:  computed,
	}

	for _, r := range rs.Rules {
		if !r.Matches(ctx.Value) {
			continue
		}
		if !r.Type.Valid() {
			panic(fmt.Errorf("%w: %d in rules of %q", model.ErrInvalidMessageType, int(r.Type), metricID))
		}

		text, err := render(r.tmpl, ctx)
		if err != nil {
			return fmt.Errorf("metric %s: %w", metricID, err)
		}

		if rs.postfix != nil {
			postfix, err := render(rs.postfix, ctx)
			if err != nil {
				return fmt.Errorf("metric %s: %w", metricID, err)
			}
			text = text + " " + postfix
		}

		emit(r.Type, text, metricID)
	}

	return nil
}

func render(tmpl *template.Template, ctx Context) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}
	return sb.String(), nil
}
