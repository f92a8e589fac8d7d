package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/model"
)

// stepFactory builds pipelines holding a single step running fn.
func stepFactory(fn func(ctx context.Context, pkg *model.Package, sink event.Sink) error) Factory {
	return func(sink event.Sink) *Pipeline {
		p := New()
		p.AddStep(&mockStep{name: "work", doFunc: func(ctx context.Context, pkg *model.Package) error {
			return fn(ctx, pkg, sink)
		}})
		return p
	}
}

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(stepFactory(func(context.Context, *model.Package, event.Sink) error { return nil }))

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(a)
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(a, WithConcurrency(5)); bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(a, WithConcurrency(0)); bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("keeps input order", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(stepFactory(func(_ context.Context, pkg *model.Package, _ event.Sink) error {
			pkg.Score = len(pkg.Name)
			return nil
		}))

		names := []string{"a", "bb", "ccc", "dddd"}
		results, err := NewBatchProcessor(a).ProcessBatch(context.Background(), names)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, r := range results {
			if r.Package.Name != names[i] || r.Package.Score != len(names[i]) {
				t.Errorf("result[%d]: unexpected %+v", i, r.Package)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		var mu sync.Mutex

		a := NewAnalyzer(stepFactory(func(context.Context, *model.Package, event.Sink) error {
			n := current.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return nil
		}))

		names := make([]string, 12)
		for i := range names {
			names[i] = "pkg"
		}

		if _, err := NewBatchProcessor(a, WithConcurrency(2)).ProcessBatch(context.Background(), names); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency was %d, expected <= 2", peak.Load())
		}
	})

	t.Run("isolates failures", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(stepFactory(func(_ context.Context, pkg *model.Package, _ event.Sink) error {
			if pkg.Name == "ghost" {
				return model.ErrPackageNotFound
			}
			pkg.Score = 600
			return nil
		}))

		results, err := NewBatchProcessor(a).ProcessBatch(context.Background(), []string{"ok-1", "ghost", "ok-2"})
		if err != nil {
			t.Fatalf("a failed analysis must not fail the batch: %v", err)
		}
		if !errors.Is(results[1].Err, model.ErrPackageNotFound) || !results[1].Package.Failed() {
			t.Errorf("expected failure for ghost, got %+v", results[1])
		}
		if results[0].Err != nil || results[2].Err != nil {
			t.Errorf("siblings should succeed: %v, %v", results[0].Err, results[2].Err)
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := NewAnalyzer(stepFactory(func(context.Context, *model.Package, event.Sink) error { return nil }))
		results, err := NewBatchProcessor(a).ProcessBatch(ctx, []string{"a", "b"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for _, r := range results {
			if r.Package == nil || !r.Package.Failed() {
				t.Errorf("expected a failed package, got %+v", r)
			}
		}
	})
}

func TestBatchProcessorEvents(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(stepFactory(func(_ context.Context, pkg *model.Package, sink event.Sink) error {
		sink.Progress("working on " + pkg.Name)
		if pkg.Name == "ghost" {
			return model.ErrPackageNotFound
		}
		return nil
	}))

	mux := event.NewMultiplexer(8)
	byPackage := make(map[string][]event.Kind)
	var failed []string

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range mux.Events() {
			byPackage[ev.Package] = append(byPackage[ev.Package], ev.Kind)
			if ev.Kind == event.KindProgress && ev.Text != "working on "+ev.Package {
				t.Errorf("progress line attributed to the wrong package: %+v", ev)
			}
			if ev.Kind == event.KindCompleted && ev.Err != nil {
				failed = append(failed, ev.Package)
			}
		}
	}()

	_, err := NewBatchProcessor(a, WithEvents(mux)).ProcessBatch(context.Background(), []string{"one", "two", "ghost"})
	mux.Close()
	<-done

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []event.Kind{event.KindStarted, event.KindProgress, event.KindCompleted}
	for _, name := range []string{"one", "two", "ghost"} {
		got := byPackage[name]
		if len(got) != len(want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: expected %v, got %v", name, want, got)
				break
			}
		}
	}
	if len(failed) != 1 || failed[0] != "ghost" {
		t.Errorf("expected only ghost to complete with an error, got %v", failed)
	}
}

func TestAnalyzerLists(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(
		stepFactory(func(context.Context, *model.Package, event.Sink) error { return nil }),
		WithAllowed("internal-lib"),
		WithBanned("left-pad"),
	)

	tests := []struct {
		name        string
		preApproved bool
		banned      bool
	}{
		{name: "internal-lib", preApproved: true},
		{name: "left-pad", banned: true},
		{name: "express"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pkg := model.NewPackage(tt.name)
			if err := a.Analyze(context.Background(), pkg, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pkg.PreApproved != tt.preApproved || pkg.Banned != tt.banned {
				t.Errorf("expected preApproved=%v banned=%v, got %v/%v",
					tt.preApproved, tt.banned, pkg.PreApproved, pkg.Banned)
			}
		})
	}
}
