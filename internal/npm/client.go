// Package npm talks to the npm registry and the npm downloads API.
package npm

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

	"github.com/nao1215/depscout/internal/model"
)

const (
	// DefaultRegistryURL is the public npm registry.
	DefaultRegistryURL = "https://registry.npmjs.org"

	// DefaultDownloadsURL is the public npm downloads API.
	DefaultDownloadsURL = "https://api.npmjs.org"

	// dateLayout is the day format the downloads API expects.
	dateLayout = "2006-01-02"

	// maxBodySize caps registry documents. Packages with thousands of
	// versions produce documents of tens of megabytes.
	maxBodySize = 64 << 20
)

// ErrUnexpectedStatus is returned when an npm endpoint answers with a
// status code the client does not handle.
var ErrUnexpectedStatus = errors.New("unexpected response from npm")

// Client fetches package documents and download counts.
type Client struct {
	httpClient   *http.Client
	registryURL  string
	downloadsURL string
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRegistryURL overrides the registry base URL.
func WithRegistryURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.registryURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDownloadsURL overrides the downloads API base URL.
func WithDownloadsURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.downloadsURL = strings.TrimRight(u, "/")
		}
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

// WithClock sets the function used as "today" for download windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient returns a Client for the public npm endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   http.DefaultClient,
		registryURL:  DefaultRegistryURL,
		downloadsURL: DefaultDownloadsURL,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the registry document of name with its download counts.
func (c *Client) Fetch(ctx context.Context, name string) (*PackageInfo, error) {
	info, err := c.Package(ctx, name)
	if err != nil {
		return nil, err
	}

	downloads, err := c.Stats(ctx, info)
	if err != nil {
		return nil, err
	}
	info.Downloads = downloads

	c.logger.Debug("npm stats",
		"package", name,
		"lastMonth", downloads.LastMonth,
		"monthBefore", downloads.MonthBefore,
		"hasMonthBefore", downloads.HasMonthBefore,
		"all", downloads.All,
	)
	return info, nil
}

// Package fetches the registry document of name.
// An unknown package yields model.ErrPackageNotFound.
func (c *Client) Package(ctx context.Context, name string) (*PackageInfo, error) {
	endpoint := c.registryURL + "/" + url.PathEscape(name)

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", model.ErrPackageNotFound, name)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: registry returned %d for %s", ErrUnexpectedStatus, status, name)
	}

	var info PackageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode registry document of %s: %w", name, err)
	}
	if info.Name == "" {
		info.Name = name
	}
	return &info, nil
}

// Stats fetches the download counts of a package: the last month, the month
// before that when the package is at least two months old, and all time.
func (c *Client) Stats(ctx context.Context, info *PackageInfo) (Downloads, error) {
	today := c.now().UTC()
	lastMonth := today.AddDate(0, -1, 0)
	monthBefore := today.AddDate(0, -2, 0)

	created := info.Time.Created
	if created.IsZero() {
		created = today
	}

	var out Downloads
	var err error

	if out.LastMonth, err = c.Downloads(ctx, info.Name, lastMonth, today); err != nil {
		return Downloads{}, err
	}

	if !created.After(monthBefore) {
		if out.MonthBefore, err = c.Downloads(ctx, info.Name, monthBefore, lastMonth); err != nil {
			return Downloads{}, err
		}
		out.HasMonthBefore = true
	}

	if out.All, err = c.Downloads(ctx, info.Name, created, today); err != nil {
		return Downloads{}, err
	}
	return out, nil
}

// downloadPoint is the downloads API response.
type downloadPoint struct {
	Downloads float64 `json:"downloads"`
	Package   string  `json:"package"`
}

// Downloads returns the install count of name between from and to.
// Packages the API has no data for count as zero.
func (c *Client) Downloads(ctx context.Context, name string, from, to time.Time) (float64, error) {
	endpoint := fmt.Sprintf("%s/downloads/point/%s:%s/%s",
		c.downloadsURL, from.Format(dateLayout), to.Format(dateLayout), name)

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: downloads API returned %d for %s", ErrUnexpectedStatus, status, name)
	}

	var point downloadPoint
	if err := json.Unmarshal(body, &point); err != nil {
		return 0, fmt.Errorf("failed to decode download counts of %s: %w", name, err)
	}
	return point.Downloads, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	return body, resp.StatusCode, nil
}
