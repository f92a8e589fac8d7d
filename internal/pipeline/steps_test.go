package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/github"
	"github.com/nao1215/depscout/internal/metric"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/npm"
	"github.com/nao1215/depscout/internal/scraper"
)

var testNow = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// staticScraper returns a fixed fragment, or fails for names in failFor.
type staticScraper struct {
	name     string
	pass     int
	fragment any
	failFor  map[string]error
}

func (s *staticScraper) Name() string { return s.name }
func (s *staticScraper) Pass() int    { return s.pass }

func (s *staticScraper) Scrape(_ context.Context, name string, sink event.Sink, _ model.RawData) (any, error) {
	sink.Progress("fetching " + s.name)
	if err, ok := s.failFor[name]; ok {
		return nil, err
	}
	return s.fragment, nil
}

func testScrapers(t *testing.T, failFor map[string]error) *scraper.Pipeline {
	t.Helper()

	reg, err := scraper.NewRegistry(
		&staticScraper{
			name: scraper.NPMName,
			pass: 1,
			fragment: &npm.PackageInfo{
				Name:     "widget",
				Versions: npm.NewVersions(npm.Version{Version: "1.0.0"}, npm.Version{Version: "1.1.0"}),
				Time: npm.Timeline{Releases: map[string]time.Time{
					"1.0.0": testNow.AddDate(0, 0, -60),
					"1.1.0": testNow.AddDate(0, 0, -30),
				}},
				Downloads: npm.Downloads{LastMonth: 3000, MonthBefore: 1500, HasMonthBefore: true, All: 500000},
			},
			failFor: failFor,
		},
		&staticScraper{
			name: scraper.GitHubName,
			pass: 2,
			fragment: &github.RepoData{
				Repo:         &github.Repo{CreatedAt: testNow.AddDate(-1, 0, 0), StargazersCount: 100},
				CommitsStats: &github.Participation{All: []int{1, 2, 3}},
				LastCommit:   &github.Commit{Commit: github.CommitDetail{Author: github.CommitAuthor{Date: testNow.AddDate(0, 0, -1)}}},
			},
		},
	)
	if err != nil {
		t.Fatalf("failed to build scrapers: %v", err)
	}
	return scraper.NewPipeline(reg)
}

type lines struct {
	got []string
}

func (l *lines) Progress(text string) { l.got = append(l.got, text) }

func TestStandardFactory(t *testing.T) {
	t.Parallel()

	metrics := metric.NewPipeline(metric.DefaultRegistry(clock))

	t.Run("runs every step", func(t *testing.T) {
		t.Parallel()

		sink := &lines{}
		p := StandardFactory(testScrapers(t, nil), metrics, "")(sink)

		want := []string{StepScrape, StepExtract, StepScore, StepEvaluate}
		if !slices.Equal(p.StepNames(), want) {
			t.Fatalf("expected %v, got %v", want, p.StepNames())
		}

		pkg := model.NewPackage("widget")
		if err := p.Execute(context.Background(), pkg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if pkg.Metrics.Len() == 0 {
			t.Error("expected metrics")
		}
		if pkg.Score <= 0 {
			t.Errorf("expected a positive score, got %d", pkg.Score)
		}
		if len(pkg.Pros)+len(pkg.Cons)+len(pkg.Notes) == 0 {
			t.Error("expected rendered messages")
		}
		if !slices.Contains(sink.got, "Computing metrics") || !slices.Contains(sink.got, "fetching npm") {
			t.Errorf("missing progress lines: %v", sink.got)
		}
	})

	t.Run("dumps raw data when asked", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := StandardFactory(testScrapers(t, nil), metrics, dir)(event.Nop{})

		if p.StepNames()[1] != StepDumpRaw {
			t.Fatalf("expected dump step after scrape, got %v", p.StepNames())
		}

		pkg := model.NewPackage("@acme/widget")
		if err := p.Execute(context.Background(), pkg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "@acme__widget.raw.json"))
		if err != nil {
			t.Fatalf("raw dump not written: %v", err)
		}
		var decoded map[string]json.RawMessage
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("raw dump is not JSON: %v", err)
		}
		if _, ok := decoded[scraper.NPMName]; !ok {
			t.Errorf("raw dump lacks npm data: %s", data)
		}
	})

	t.Run("scrape failure aborts", func(t *testing.T) {
		t.Parallel()

		p := StandardFactory(testScrapers(t, map[string]error{"ghost": model.ErrPackageNotFound}), metrics, "")(event.Nop{})

		pkg := model.NewPackage("ghost")
		err := p.Execute(context.Background(), pkg)
		if !errors.Is(err, model.ErrPackageNotFound) {
			t.Fatalf("expected ErrPackageNotFound, got %v", err)
		}
		if pkg.Score != 0 || len(pkg.Steps) != 0 {
			t.Errorf("no later step should run: score %d, steps %v", pkg.Score, pkg.Steps)
		}
	})
}

func TestScoreStep(t *testing.T) {
	t.Parallel()

	metrics := metric.NewPipeline(metric.DefaultRegistry(clock))
	pkg := model.NewPackage("widget")
	pkg.Metrics.Set(metric.HasHomepage, model.Value(1))

	if err := NewScoreStep(metrics).Do(context.Background(), pkg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.Partials[metric.HasHomepage] != 50 {
		t.Errorf("expected homepage partial 50, got %v", pkg.Partials[metric.HasHomepage])
	}
	if pkg.Score != 50 {
		t.Errorf("missing metrics contribute nothing: expected 50, got %d", pkg.Score)
	}
}
