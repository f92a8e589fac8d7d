// Package github reads repository activity from the GitHub REST API.
//
// One Client is shared by all analyses of a run. Requests are paced by a
// token bucket, and complete repository snapshots are kept in an LRU cache
// so that packages published from the same monorepo cost one set of calls.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/depscout/internal/model"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultCacheSize is the number of repositories kept per run.
	DefaultCacheSize = 256

	// DefaultRequestsPerSecond paces API calls.
	DefaultRequestsPerSecond = 10

	// closedIssuesPage is the number of recently closed issues inspected.
	closedIssuesPage = 100

	// statsAttempts bounds the retries of the participation endpoint, which
	// answers 202 while GitHub computes the statistics.
	statsAttempts = 3
)

// Client is a GitHub REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	cache      *lru.Cache[string, *RepoData]
	logger     *slog.Logger
	statsDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithBaseURL overrides the API endpoint, for GitHub Enterprise or tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithToken authenticates every request with a personal access token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRateLimit sets the request pace. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStatsRetryDelay sets the wait between participation retries.
func WithStatsRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.statsDelay = d
	}
}

// NewClient returns a Client for the public GitHub API.
func NewClient(opts ...Option) (*Client, error) {
	cache, err := lru.New[string, *RepoData](DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository cache: %w", err)
	}

	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		cache:      cache,
		logger:     slog.Default(),
		statsDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticated reports whether a token is configured.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Repository fetches the repository document, the oldest open issue and
// pull request, weekly participation, the last commit and the last closed
// issues of ref. The six calls run concurrently; the first failure cancels
// the others.
func (c *Client) Repository(ctx context.Context, ref RepoRef) (*RepoData, error) {
	if ref.Owner == "" || ref.Name == "" {
		return nil, ErrEmptyRepository
	}

	key := strings.ToLower(ref.String())
	if cached, ok := c.cache.Get(key); ok {
		c.logger.Debug("github cache hit", "repository", key)
		return cached, nil
	}

	data := &RepoData{Ref: ref}
	base := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var repo Repo
		if err := c.getJSON(gctx, base, &repo); err != nil {
			return err
		}
		data.Repo = &repo
		return nil
	})

	g.Go(func() error {
		var issues []Issue
		if err := c.getJSON(gctx, base+"/issues?sort=created&direction=asc&per_page=1", &issues); err != nil {
			return err
		}
		if len(issues) > 0 {
			data.OldestOpenIssue = &issues[0]
		}
		return nil
	})

	g.Go(func() error {
		var pulls []PullRequest
		if err := c.getJSON(gctx, base+"/pulls?sort=created&direction=asc&per_page=1", &pulls); err != nil {
			return err
		}
		if len(pulls) > 0 {
			data.OldestPR = &pulls[0]
		}
		return nil
	})

	g.Go(func() error {
		stats, err := c.participation(gctx, base+"/stats/participation")
		if err != nil {
			return err
		}
		data.CommitsStats = stats
		return nil
	})

	g.Go(func() error {
		var commits []Commit
		if err := c.getJSON(gctx, base+"/commits?per_page=1", &commits); err != nil {
			return err
		}
		if len(commits) > 0 {
			data.LastCommit = &commits[0]
		}
		return nil
	})

	g.Go(func() error {
		var closed []Issue
		endpoint := fmt.Sprintf("%s/issues?state=closed&sort=created&direction=desc&per_page=%d", base, closedIssuesPage)
		if err := c.getJSON(gctx, endpoint, &closed); err != nil {
			return err
		}
		data.LastClosedIssues = closed
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.cache.Add(key, data)
	return data, nil
}

// participation fetches weekly commit counts, retrying while GitHub is
// still computing them. A repository that never becomes ready has no data.
func (c *Client) participation(ctx context.Context, endpoint string) (*Participation, error) {
	for attempt := 1; ; attempt++ {
		body, status, err := c.do(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		if status == http.StatusAccepted || status == http.StatusNoContent {
			if attempt >= statsAttempts {
				c.logger.Debug("participation statistics not ready", "endpoint", endpoint)
				return &Participation{}, nil
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.statsDelay):
			}
			continue
		}

		var p Participation
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to decode participation: %w", err)
		}
		return &p, nil
	}
}

// getJSON fetches endpoint and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	body, status, err := c.do(ctx, endpoint)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d for %s", ErrAPI, status, endpoint)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

// apiError is the error payload GitHub returns.
type apiError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

// do performs a paced GET. Any 4xx/5xx status is turned into an error,
// other statuses are returned to the caller with the body.
func (c *Client) do(ctx context.Context, endpoint string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, resp.StatusCode, responseError(resp, body)
	}
	return body, resp.StatusCode, nil
}

// responseError converts an error response into ErrRateLimited or ErrAPI.
func responseError(resp *http.Response, body []byte) error {
	var payload apiError
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(body))
		if payload.Message == "" {
			payload.Message = http.StatusText(resp.StatusCode)
		}
	}

	if isRateLimited(resp, payload) {
		return fmt.Errorf("%w: %s (%s)", model.ErrRateLimited, payload.Message, RateLimitHint)
	}

	msg := payload.Message
	if payload.DocumentationURL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, payload.DocumentationURL)
	}
	return fmt.Errorf("%w: %s", ErrAPI, msg)
}

func isRateLimited(resp *http.Response, payload apiError) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	if strings.Contains(payload.DocumentationURL, "rate-limit") {
		return true
	}
	return strings.Contains(strings.ToLower(payload.Message), "rate limit")
}

// IsRateLimited reports whether err was caused by an exhausted quota.
func IsRateLimited(err error) bool {
	return errors.Is(err, model.ErrRateLimited)
}
