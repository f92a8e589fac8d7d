package scraper

import (
	"context"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/npm"
)

// NPMName is the raw data key of the npm fragment.
const NPMName = "npm"

// PackageFetcher returns an npm registry document with download counts.
// *npm.Client satisfies it.
type PackageFetcher interface {
	Fetch(ctx context.Context, name string) (*npm.PackageInfo, error)
}

// NPM is the pass 1 scraper reading the npm registry and downloads API.
type NPM struct {
	client PackageFetcher
}

// NewNPM returns the npm scraper.
func NewNPM(client PackageFetcher) *NPM {
	return &NPM{client: client}
}

// Name implements Scraper.
func (s *NPM) Name() string { return NPMName }

// Pass implements Scraper.
func (s *NPM) Pass() int { return 1 }

// Scrape implements Scraper. The fragment is a *npm.PackageInfo.
func (s *NPM) Scrape(ctx context.Context, name string, sink event.Sink, _ model.RawData) (any, error) {
	sink.Progress("Querying NPM registry for information")
	return s.client.Fetch(ctx, name)
}
