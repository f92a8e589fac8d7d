package model

import (
	"fmt"
	"time"
)

// Package is the analysis state of one npm package.
//
// A Package is created per analysis request, filled by the scrape, extract,
// score and evaluate steps in that order, and discarded once the report has
// been written. PreApproved and Banned are set by the caller from the
// allow-list and ban-list; they are never derived from the score.
type Package struct {
	// Name is the npm package name as requested.
	Name string `json:"name"`

	// Raw holds the upstream documents keyed by scraper name.
	Raw RawData `json:"-"`

	// Metrics holds the computed metrics in extraction order.
	Metrics *Metrics `json:"metrics"`

	// Partials maps metric id to its partial score for every metric that
	// declares a score definition.
	Partials map[string]float64 `json:"partials"`

	// Score is round(sum(Partials)).
	Score int `json:"score"`

	// Pros, Cons and Notes are the rendered explanation lines.
	Pros  []Message `json:"pros"`
	Cons  []Message `json:"cons"`
	Notes []Message `json:"notes"`

	// PreApproved is true when the package is on the allow-list.
	PreApproved bool `json:"preApproved"`

	// Banned is true when the package is on the ban-list.
	Banned bool `json:"banned"`

	// Steps lists the analysis steps that ran, in order.
	Steps []string `json:"steps,omitempty"`

	// AnalyzedAt is when the analysis started.
	AnalyzedAt time.Time `json:"analyzedAt"`

	// Err is the error that aborted the analysis, if any.
	Err error `json:"-"`

	// ErrorMessage mirrors Err for serialized reports.
	ErrorMessage string `json:"error,omitempty"`
}

// NewPackage returns an empty Package ready for analysis.
func NewPackage(name string) *Package {
	return &Package{
		Name:       name,
		Raw:        make(RawData),
		Metrics:    NewMetrics(),
		Partials:   make(map[string]float64),
		Pros:       make([]Message, 0),
		Cons:       make([]Message, 0),
		Notes:      make([]Message, 0),
		AnalyzedAt: time.Now(),
	}
}

// AddMessage appends a rendered line to the list matching t.
// A type outside pro, note and cons is a programming error and panics.
func (p *Package) AddMessage(t MessageType, text, metric string) {
	msg := Message{Type: t, Text: text, Metric: metric}

	switch t {
	case MessagePro:
		p.Pros = append(p.Pros, msg)
	case MessageNote:
		p.Notes = append(p.Notes, msg)
	case MessageCons:
		p.Cons = append(p.Cons, msg)
	default:
		panic(fmt.Errorf("%w: %d (metric %q)", ErrInvalidMessageType, int(t), metric))
	}
}

// Messages returns the lines of type t.
func (p *Package) Messages(t MessageType) []Message {
	switch t {
	case MessagePro:
		return p.Pros
	case MessageNote:
		return p.Notes
	case MessageCons:
		return p.Cons
	default:
		return nil
	}
}

// SetError records the error that aborted the analysis.
func (p *Package) SetError(err error) {
	p.Err = err
	if err != nil {
		p.ErrorMessage = err.Error()
	}
}

// Failed reports whether the analysis was aborted.
func (p *Package) Failed() bool {
	return p.Err != nil
}

// Installable applies the configured lists before the score: banned
// packages are never installable, pre-approved ones always are, and a
// package whose analysis failed is not.
func (p *Package) Installable(band Band, strict bool) bool {
	switch {
	case p == nil || p.Banned:
		return false
	case p.PreApproved:
		return true
	case p.Failed():
		return false
	default:
		return p.ShouldInstall(band, strict)
	}
}

// ShouldInstall decides whether the package is worth adopting.
// Scores below band.Low are rejected and scores at or above band.Good are
// accepted. Scores in between are accepted only when strict is false.
func (p *Package) ShouldInstall(band Band, strict bool) bool {
	if p.Score < band.Low {
		return false
	}
	if p.Score < band.Good {
		return !strict
	}
	return true
}
