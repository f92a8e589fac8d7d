package scraper

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/github"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/npm"
)

type fakeScraper struct {
	name  string
	pass  int
	err   error
	calls *[]string
	seen  *[]int
}

func (f *fakeScraper) Name() string { return f.name }
func (f *fakeScraper) Pass() int    { return f.pass }

func (f *fakeScraper) Scrape(_ context.Context, _ string, _ event.Sink, prior model.RawData) (any, error) {
	*f.calls = append(*f.calls, f.name)
	if f.seen != nil {
		*f.seen = append(*f.seen, len(prior))
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.name + "-data", nil
}

type recordingSink struct {
	lines []string
}

func (r *recordingSink) Progress(text string) {
	r.lines = append(r.lines, text)
}

func TestPipelineRunOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	var seen []int
	reg, err := NewRegistry(
		&fakeScraper{name: "late", pass: 2, calls: &calls, seen: &seen},
		&fakeScraper{name: "first", pass: 1, calls: &calls, seen: &seen},
		&fakeScraper{name: "second", pass: 1, calls: &calls, seen: &seen},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := NewPipeline(reg).Run(context.Background(), "pkg", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "late"}
	if !slices.Equal(calls, want) {
		t.Errorf("expected order %v, got %v", want, calls)
	}
	if !slices.Equal(seen, []int{0, 1, 2}) {
		t.Errorf("each scraper should see the fragments before it, got %v", seen)
	}
	if raw["late"] != "late-data" || len(raw) != 3 {
		t.Errorf("unexpected raw data %v", raw)
	}
	if !slices.Equal(reg.Names(), want) {
		t.Errorf("Names() = %v", reg.Names())
	}
}

func TestPipelineRunAbortsOnError(t *testing.T) {
	t.Parallel()

	var calls []string
	boom := errors.New("boom")
	reg, err := NewRegistry(
		&fakeScraper{name: "a", pass: 1, calls: &calls, err: boom},
		&fakeScraper{name: "b", pass: 2, calls: &calls},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = NewPipeline(reg).Run(context.Background(), "pkg", event.Nop{})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped scraper error, got %v", err)
	}
	if !slices.Equal(calls, []string{"a"}) {
		t.Errorf("later scrapers must not run, got %v", calls)
	}
}

func TestPipelineRunCancelled(t *testing.T) {
	t.Parallel()

	var calls []string
	reg, _ := NewRegistry(&fakeScraper{name: "a", pass: 1, calls: &calls})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewPipeline(reg).Run(ctx, "pkg", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("no scraper should run, got %v", calls)
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	var calls []string

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()

		_, err := NewRegistry(
			&fakeScraper{name: "a", pass: 1, calls: &calls},
			&fakeScraper{name: "a", pass: 2, calls: &calls},
		)
		if !errors.Is(err, ErrDuplicateScraper) {
			t.Errorf("expected ErrDuplicateScraper, got %v", err)
		}
	})

	t.Run("invalid pass", func(t *testing.T) {
		t.Parallel()

		_, err := NewRegistry(&fakeScraper{name: "a", pass: 0, calls: &calls})
		if !errors.Is(err, ErrInvalidPass) {
			t.Errorf("expected ErrInvalidPass, got %v", err)
		}
	})
}

type fakePackageFetcher struct {
	info *npm.PackageInfo
	err  error
}

func (f fakePackageFetcher) Fetch(context.Context, string) (*npm.PackageInfo, error) {
	return f.info, f.err
}

func TestNPMScrape(t *testing.T) {
	t.Parallel()

	info := &npm.PackageInfo{Name: "left-pad"}
	sink := &recordingSink{}

	got, err := NewNPM(fakePackageFetcher{info: info}).Scrape(context.Background(), "left-pad", sink, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != info {
		t.Errorf("expected the fetched document, got %v", got)
	}
	if len(sink.lines) != 1 {
		t.Errorf("expected one progress line, got %v", sink.lines)
	}

	_, err = NewNPM(fakePackageFetcher{err: model.ErrPackageNotFound}).Scrape(context.Background(), "x", sink, nil)
	if !errors.Is(err, model.ErrPackageNotFound) {
		t.Errorf("expected ErrPackageNotFound, got %v", err)
	}
}

type fakeRepositoryFetcher struct {
	authenticated bool
	got           github.RepoRef
}

func (f *fakeRepositoryFetcher) Repository(_ context.Context, ref github.RepoRef) (*github.RepoData, error) {
	f.got = ref
	return &github.RepoData{Ref: ref}, nil
}

func (f *fakeRepositoryFetcher) Authenticated() bool { return f.authenticated }

func TestGitHubScrape(t *testing.T) {
	t.Parallel()

	withRepo := func(url string) model.RawData {
		return model.RawData{NPMName: &npm.PackageInfo{
			Name: "pkg",
			Versions: npm.NewVersions(
				npm.Version{Version: "1.0.0", Repository: &npm.Repository{URL: "https://github.com/old/home.git"}},
				npm.Version{Version: "2.0.0", Repository: &npm.Repository{URL: url}},
			),
		}}
	}

	t.Run("follows the last version", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeRepositoryFetcher{authenticated: true}
		sink := &recordingSink{}

		got, err := NewGitHub(fetcher).Scrape(context.Background(), "pkg", sink, withRepo("git+https://github.com/new/home.git"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetcher.got != (github.RepoRef{Owner: "new", Name: "home"}) {
			t.Errorf("unexpected repository %+v", fetcher.got)
		}
		if _, ok := got.(*github.RepoData); !ok {
			t.Errorf("unexpected fragment type %T", got)
		}
		if len(sink.lines) != 2 {
			t.Errorf("expected authentication and fetch progress, got %v", sink.lines)
		}
	})

	tests := []struct {
		name string
		raw  model.RawData
		want error
	}{
		{name: "no npm data", raw: model.RawData{}, want: model.ErrDataUnavailable},
		{name: "no versions", raw: model.RawData{NPMName: &npm.PackageInfo{}}, want: model.ErrDataUnavailable},
		{name: "no repository", raw: withRepo(""), want: model.ErrDataUnavailable},
		{name: "unsupported url", raw: withRepo("svn:whatever"), want: model.ErrUnsupportedRepository},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewGitHub(&fakeRepositoryFetcher{}).Scrape(context.Background(), "pkg", event.Nop{}, tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
