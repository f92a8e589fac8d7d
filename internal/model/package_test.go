package model

import (
	"errors"
	"testing"
)

func TestPackage_ShouldInstall(t *testing.T) {
	t.Parallel()

	band := Band{Low: 300, Good: 500}

	tests := []struct {
		name   string
		score  int
		strict bool
		want   bool
	}{
		{name: "below low in strict mode", score: 250, strict: true, want: false},
		{name: "below low in relaxed mode", score: 250, strict: false, want: false},
		{name: "between bounds in strict mode", score: 400, strict: true, want: false},
		{name: "between bounds in relaxed mode", score: 400, strict: false, want: true},
		{name: "at low in relaxed mode", score: 300, strict: false, want: true},
		{name: "at good in strict mode", score: 500, strict: true, want: true},
		{name: "above good in strict mode", score: 600, strict: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPackage("example")
			p.Score = tt.score

			if got := p.ShouldInstall(band, tt.strict); got != tt.want {
				t.Errorf("ShouldInstall(score=%d, strict=%v) = %v, want %v", tt.score, tt.strict, got, tt.want)
			}
		})
	}
}

func TestPackage_Installable(t *testing.T) {
	t.Parallel()

	band := Band{Low: 300, Good: 500}

	pkg := func(score int, mutate func(*Package)) *Package {
		p := NewPackage("example")
		p.Score = score
		if mutate != nil {
			mutate(p)
		}
		return p
	}

	tests := []struct {
		name   string
		pkg    *Package
		strict bool
		want   bool
	}{
		{name: "good score", pkg: pkg(600, nil), want: true},
		{name: "warning band relaxed", pkg: pkg(400, nil), want: true},
		{name: "warning band strict", pkg: pkg(400, nil), strict: true, want: false},
		{name: "low score", pkg: pkg(100, nil), want: false},
		{name: "banned with good score", pkg: pkg(900, func(p *Package) { p.Banned = true }), want: false},
		{name: "banned and pre-approved", pkg: pkg(900, func(p *Package) { p.Banned, p.PreApproved = true, true }), want: false},
		{name: "pre-approved with low score", pkg: pkg(0, func(p *Package) { p.PreApproved = true }), want: true},
		{name: "pre-approved with failed analysis", pkg: pkg(0, func(p *Package) {
			p.PreApproved = true
			p.SetError(ErrRateLimited)
		}), want: true},
		{name: "failed analysis", pkg: pkg(900, func(p *Package) { p.SetError(ErrPackageNotFound) }), want: false},
		{name: "nil package", pkg: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.pkg.Installable(band, tt.strict); got != tt.want {
				t.Errorf("Installable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackage_AddMessage(t *testing.T) {
	t.Parallel()

	t.Run("routes messages by type", func(t *testing.T) {
		t.Parallel()

		p := NewPackage("example")
		p.AddMessage(MessagePro, "Has a dedicated website", "hasHomepage")
		p.AddMessage(MessageCons, "Is very young", "age")
		p.AddMessage(MessageNote, "Releases are not so frequent", "releaseRate")
		p.AddMessage(MessageCons, "Few releases have been published", "releases")

		if len(p.Pros) != 1 || len(p.Notes) != 1 || len(p.Cons) != 2 {
			t.Fatalf("unexpected counts: pros=%d notes=%d cons=%d", len(p.Pros), len(p.Notes), len(p.Cons))
		}
		if p.Cons[1].Metric != "releases" {
			t.Errorf("expected cons to keep insertion order, got %+v", p.Cons)
		}
		if got := p.Messages(MessageNote); len(got) != 1 || got[0].Text != "Releases are not so frequent" {
			t.Errorf("unexpected notes: %+v", got)
		}
	})

	t.Run("panics on unknown type", func(t *testing.T) {
		t.Parallel()

		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic")
			}
			err, ok := r.(error)
			if !ok || !errors.Is(err, ErrInvalidMessageType) {
				t.Errorf("expected ErrInvalidMessageType panic, got %v", r)
			}
		}()

		NewPackage("example").AddMessage(MessageType(9), "oops", "age")
	})
}

func TestPackage_SetError(t *testing.T) {
	t.Parallel()

	p := NewPackage("example")
	if p.Failed() {
		t.Fatal("new package should not be failed")
	}

	p.SetError(ErrPackageNotFound)

	if !p.Failed() {
		t.Error("expected package to be failed")
	}
	if p.ErrorMessage != ErrPackageNotFound.Error() {
		t.Errorf("unexpected error message: %q", p.ErrorMessage)
	}
}
