package scraper

import (
	"context"
	"fmt"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/github"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/npm"
)

// GitHubName is the raw data key of the GitHub fragment.
const GitHubName = "github"

// RepositoryFetcher returns the activity snapshot of a repository.
// *github.Client satisfies it.
type RepositoryFetcher interface {
	Repository(ctx context.Context, ref github.RepoRef) (*github.RepoData, error)
	Authenticated() bool
}

// GitHub is the pass 2 scraper. It follows the repository URL of the most
// recently published version found by the npm scraper.
type GitHub struct {
	client RepositoryFetcher
}

// NewGitHub returns the GitHub scraper.
func NewGitHub(client RepositoryFetcher) *GitHub {
	return &GitHub{client: client}
}

// Name implements Scraper.
func (s *GitHub) Name() string { return GitHubName }

// Pass implements Scraper.
func (s *GitHub) Pass() int { return 2 }

// Scrape implements Scraper. The fragment is a *github.RepoData.
func (s *GitHub) Scrape(ctx context.Context, _ string, sink event.Sink, prior model.RawData) (any, error) {
	info, err := model.Fragment[*npm.PackageInfo](prior, NPMName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}

	last, ok := info.Versions.Last()
	if !ok {
		return nil, fmt.Errorf("%w: this package has no version information", model.ErrDataUnavailable)
	}

	repoURL := last.RepositoryURL()
	if repoURL == "" {
		return nil, fmt.Errorf("%w: this package has no repository to inspect", model.ErrDataUnavailable)
	}

	ref, err := github.ParseRepository(repoURL)
	if err != nil {
		return nil, err
	}

	if s.client.Authenticated() {
		sink.Progress("Authenticating on GitHub via token")
	}
	sink.Progress("Fetching repository information")

	return s.client.Repository(ctx, ref)
}
