package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/depscout/internal/model"
)

// Default configuration values.
const (
	// DefaultRanges is the score band used by study and check, written the
	// way the --ranges flag accepts it. Only the first two values are used.
	DefaultRanges = "300,500,1000"

	// DefaultConcurrency is the number of packages analyzed at once.
	// GitHub secondary rate limits start to bite well above this.
	DefaultConcurrency = 4

	// DefaultTimeout bounds each upstream HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultGitHubRPS paces GitHub API calls across all workers.
	DefaultGitHubRPS = 10.0

	// AppName is the application name used for XDG directory paths.
	AppName = "depscout"

	// DefaultUserAgent identifies depscout in HTTP requests.
	DefaultUserAgent = "depscout (+https://github.com/nao1215/depscout)"

	// DefaultRegistryURL is the public npm registry.
	DefaultRegistryURL = "https://registry.npmjs.org"

	// DefaultDownloadsURL is the public npm downloads API.
	DefaultDownloadsURL = "https://api.npmjs.org"

	// DefaultGitHubAPIURL is the public GitHub REST API.
	DefaultGitHubAPIURL = "https://api.github.com"
)

// Report formats accepted by Format.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Config holds all configuration options for depscout.
// This struct is populated from defaults, the configuration file, the
// environment and CLI flags, in that order, and passed through the
// application rather than kept in global state.
//
// The koanf tags name the keys of .depscout.yaml. Environment variables use
// the same keys upper-cased with a DEPSCOUT_ prefix, e.g. DEPSCOUT_STRICT.
type Config struct {
	// Ranges holds the low and good score thresholds, in that order.
	// Extra values are accepted and ignored.
	Ranges []int `koanf:"ranges" yaml:"ranges"`

	// Strict turns warnings into failures: packages must reach the good
	// score to pass.
	Strict bool `koanf:"strict" yaml:"strict"`

	// Allowed lists pre-approved packages. They pass regardless of score.
	Allowed []string `koanf:"allowed" yaml:"allowed"`

	// Banned lists packages that always fail.
	Banned []string `koanf:"banned" yaml:"banned"`

	// Concurrency is the number of packages analyzed at once.
	Concurrency int `koanf:"concurrency" yaml:"concurrency"`

	// GitHubToken authenticates GitHub API calls. GITHUB_TOKEN is used
	// when this is empty.
	GitHubToken string `koanf:"github_token" yaml:"github_token"`

	// GitHubRPS is the GitHub request rate. Zero or less disables pacing.
	GitHubRPS float64 `koanf:"github_rps" yaml:"github_rps"`

	// Timeout bounds each upstream HTTP request.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	// Proxy is an optional http, https, socks5 or socks5h proxy URL.
	Proxy string `koanf:"proxy" yaml:"proxy"`

	// UserAgent is sent with every upstream request.
	UserAgent string `koanf:"user_agent" yaml:"user_agent"`

	// RegistryURL, DownloadsURL and GitHubAPIURL select the upstream
	// endpoints, for mirrors and GitHub Enterprise.
	RegistryURL  string `koanf:"registry_url" yaml:"registry_url"`
	DownloadsURL string `koanf:"downloads_url" yaml:"downloads_url"`
	GitHubAPIURL string `koanf:"github_api_url" yaml:"github_api_url"`

	// Format is the report format: text, json, yaml or markdown.
	Format string `koanf:"format" yaml:"format"`

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string `koanf:"report_file" yaml:"report_file"`

	// DBDir is the directory path for storing the SQLite history database.
	// Defaults to XDG data directory (~/.local/share/depscout on Linux).
	DBDir string `koanf:"db_dir" yaml:"db_dir"`

	// SaveToDB records every run in the history database.
	SaveToDB bool `koanf:"save_to_db" yaml:"save_to_db"`

	// MetricsFile, when set, receives run telemetry in the Prometheus
	// text exposition format.
	MetricsFile string `koanf:"metrics_file" yaml:"metrics_file"`

	// RawDir, when set, receives the raw upstream data of every package
	// as JSON.
	RawDir string `koanf:"raw_dir" yaml:"raw_dir"`

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool `koanf:"verbose" yaml:"verbose"`
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	ranges, _ := ParseRanges(DefaultRanges)
	return &Config{
		Ranges:       ranges,
		Concurrency:  DefaultConcurrency,
		GitHubRPS:    DefaultGitHubRPS,
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		RegistryURL:  DefaultRegistryURL,
		DownloadsURL: DefaultDownloadsURL,
		GitHubAPIURL: DefaultGitHubAPIURL,
		Format:       FormatText,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// ParseRanges parses a comma separated list of integer scores such as
// "300,500,1000". Whitespace around values is ignored.
func ParseRanges(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidRanges, f)
		}
		out = append(out, n)
	}
	return out, nil
}

// Band returns the score thresholds. It assumes Validate succeeded.
func (c *Config) Band() model.Band {
	return model.Band{Low: c.Ranges[0], Good: c.Ranges[1]}
}

// IsAllowed reports whether name is on the allow-list.
func (c *Config) IsAllowed(name string) bool {
	return slices.Contains(c.Allowed, name)
}

// IsBanned reports whether name is on the ban-list.
func (c *Config) IsBanned(name string) bool {
	return slices.Contains(c.Banned, name)
}

// XDGDataDir returns the XDG data directory for depscout.
// On Linux: ~/.local/share/depscout
// On macOS: ~/Library/Application Support/depscout
// On Windows: %LOCALAPPDATA%\depscout
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for depscout.
// On Linux: ~/.config/depscout
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.Ranges) < 2 {
		return fmt.Errorf("%w: need a low and a good score", ErrInvalidRanges)
	}
	if c.Ranges[0] < 0 || c.Ranges[0] > c.Ranges[1] {
		return fmt.Errorf("%w: low %d must be between 0 and good %d", ErrInvalidRanges, c.Ranges[0], c.Ranges[1])
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	switch c.Format {
	case FormatText, FormatJSON, FormatYAML, FormatMarkdown:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}

	for _, name := range c.Allowed {
		if c.IsBanned(name) {
			return fmt.Errorf("%w: %s", ErrConflictingLists, name)
		}
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}
