package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/depscout/internal/config"
	"github.com/nao1215/depscout/internal/database"
	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/github"
	seclog "github.com/nao1215/depscout/internal/log"
	"github.com/nao1215/depscout/internal/metric"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/npm"
	"github.com/nao1215/depscout/internal/pipeline"
	"github.com/nao1215/depscout/internal/report"
	"github.com/nao1215/depscout/internal/scraper"
	"github.com/nao1215/depscout/internal/telemetry"
	"github.com/nao1215/depscout/internal/transport"
)

// errQuietFailure makes the process exit with status 1 without printing
// anything more: the report already explains the failure.
var errQuietFailure = errors.New("depscout: failure reported")

// progressBuffer is the capacity of the merged progress stream.
const progressBuffer = 64

// addAnalysisFlags registers the flags shared by study and check.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("ranges", "r", config.DefaultRanges,
		"Score band as low,good[,...]: below low fails, from low up to good warns")
	cmd.Flags().Bool("strict", false,
		"Reject packages in the warning band as well")
	cmd.Flags().StringP("token", "t", "",
		"GitHub API token (default: $GITHUB_TOKEN)")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of packages analyzed at once")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout of each upstream request")
	cmd.Flags().String("proxy", "",
		"HTTP or SOCKS5 proxy URL for upstream requests")
	cmd.Flags().Bool("debug-raw", false,
		"Write the raw upstream data of each package to <package>.raw.json in the current directory")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --yaml and --markdown)")
	cmd.Flags().BoolP("yaml", "y", false,
		"Output YAML report (mutually exclusive with --json and --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --yaml)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print progress lines")

	// Bookkeeping flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the score history")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics of this run to the given textfile")
}

// loadConfig builds the Config of cmd: defaults, configuration file,
// environment, then the flags the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flagString(cmd, "config")
	if path == "" {
		path = config.FindConfigFile("")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag changed on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}

	if changed("ranges") {
		ranges, err := config.ParseRanges(flagString(cmd, "ranges"))
		if err != nil {
			return err
		}
		cfg.Ranges = ranges
	}

	if changed("strict") {
		v, err := flags.GetBool("strict")
		if err != nil {
			return err
		}
		cfg.Strict = v
	}

	if changed("token") {
		cfg.GitHubToken = flagString(cmd, "token")
	}

	if changed("concurrency") {
		v, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = v
	}

	if changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = v
	}

	if changed("proxy") {
		cfg.Proxy = flagString(cmd, "proxy")
	}

	if changed("debug-raw") {
		v, err := flags.GetBool("debug-raw")
		if err != nil {
			return err
		}
		if v {
			cfg.RawDir = "."
		}
	}

	if changed("output") {
		cfg.ReportFile = flagString(cmd, "output")
	}

	if changed("no-history") {
		v, err := flags.GetBool("no-history")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !v
	}

	if changed("metrics-file") {
		cfg.MetricsFile = flagString(cmd, "metrics-file")
	}

	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}

	return applyFormatFlags(cmd, cfg)
}

// applyFormatFlags maps --json, --yaml and --markdown onto cfg.Format.
func applyFormatFlags(cmd *cobra.Command, cfg *config.Config) error {
	formats := map[string]string{
		"json":     config.FormatJSON,
		"yaml":     config.FormatYAML,
		"markdown": config.FormatMarkdown,
	}

	selected := ""
	for name, format := range formats {
		f := cmd.Flags().Lookup(name)
		if f == nil || f.Value.String() != "true" {
			continue
		}
		if selected != "" {
			return config.ErrConflictingReportFormats
		}
		selected = format
	}

	if selected != "" {
		cfg.Format = selected
	}
	return nil
}

// flagString returns the value of a local or inherited string flag, or ""
// when the command has no such flag.
func flagString(cmd *cobra.Command, name string) string {
	f := cmd.Flag(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// quietFlag reports whether progress lines are suppressed.
func quietFlag(flags *pflag.FlagSet) bool {
	quiet, err := flags.GetBool("quiet")
	return err == nil && quiet
}

// setupLogger creates the structured logger. Secrets such as GitHub
// tokens are redacted before anything is written.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return seclog.NewSecureLogger(w, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// runner drives one batch of package analyses and everything that follows
// it: progress display, telemetry and the score history.
type runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	progress io.Writer
	recorder *telemetry.Recorder
}

// newRunner creates a runner. progress receives one line per event;
// nil discards them.
func newRunner(cfg *config.Config, logger *slog.Logger, progress io.Writer) *runner {
	r := &runner{
		cfg:      cfg,
		logger:   logger,
		progress: progress,
	}
	if cfg.MetricsFile != "" {
		r.recorder = telemetry.New()
	}
	return r
}

// newBatchProcessor wires the HTTP clients, scrapers and metrics into a
// batch processor reporting to mux.
func (r *runner) newBatchProcessor(mux *event.Multiplexer) (*pipeline.BatchProcessor, error) {
	cfg := r.cfg

	httpClient, err := transport.New(transport.Options{
		Timeout:   cfg.Timeout,
		ProxyURL:  cfg.Proxy,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	npmClient := npm.NewClient(
		npm.WithHTTPClient(httpClient),
		npm.WithRegistryURL(cfg.RegistryURL),
		npm.WithDownloadsURL(cfg.DownloadsURL),
		npm.WithLogger(r.logger),
	)

	ghClient, err := github.NewClient(
		github.WithHTTPClient(httpClient),
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithToken(cfg.GitHubToken),
		github.WithRateLimit(cfg.GitHubRPS, max(1, int(cfg.GitHubRPS))),
		github.WithLogger(r.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	if !ghClient.Authenticated() {
		r.logger.Debug("no GitHub token configured", "hint", github.RateLimitHint)
	}

	registry, err := scraper.NewRegistry(scraper.NewNPM(npmClient), scraper.NewGitHub(ghClient))
	if err != nil {
		return nil, err
	}

	factory := pipeline.StandardFactory(
		scraper.NewPipeline(registry, scraper.WithLogger(r.logger)),
		metric.NewPipeline(metric.DefaultRegistry(time.Now), metric.WithLogger(r.logger)),
		cfg.RawDir,
		pipeline.WithLogger(r.logger),
	)

	analyzer := pipeline.NewAnalyzer(factory,
		pipeline.WithAllowed(cfg.Allowed...),
		pipeline.WithBanned(cfg.Banned...),
		pipeline.WithAnalyzerLogger(r.logger),
	)

	return pipeline.NewBatchProcessor(analyzer,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(r.logger),
		pipeline.WithEvents(mux),
	), nil
}

// analyze runs the analysis of names and returns the packages in the
// same order. Failed analyses are returned with their error set.
func (r *runner) analyze(ctx context.Context, names []string) ([]*model.Package, error) {
	mux := event.NewMultiplexer(progressBuffer)

	bp, err := r.newBatchProcessor(mux)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.listen(mux.Events())
	}()

	r.logger.Info("starting analysis",
		"packages", len(names),
		"concurrency", r.cfg.Concurrency,
	)

	pkgs := make([]*model.Package, len(names))
	batchErr := bp.ProcessBatchWithCallback(ctx, names, func(res pipeline.Result, index int) {
		pkgs[index] = res.Package
		if res.Err != nil {
			res.Package.SetError(res.Err)
		}
		if r.recorder != nil {
			r.recorder.ObservePackage(res.Package, time.Since(res.Package.AnalyzedAt))
		}
	})

	mux.Close()
	<-done

	if batchErr != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", batchErr)
	}

	for _, p := range pkgs {
		if p != nil && github.IsRateLimited(p.Err) {
			r.logger.Warn("GitHub API rate limit exceeded", "hint", github.RateLimitHint)
			break
		}
	}

	return pkgs, nil
}

// listen prints the merged progress stream until it is closed.
func (r *runner) listen(events <-chan event.Event) {
	for ev := range events {
		if r.progress == nil {
			continue
		}
		switch ev.Kind {
		case event.KindStarted:
			fmt.Fprintf(r.progress, "%s: analyzing\n", ev.Package)
		case event.KindProgress:
			fmt.Fprintf(r.progress, "%s: %s\n", ev.Package, ev.Text)
		case event.KindCompleted:
			if ev.Err != nil {
				fmt.Fprintf(r.progress, "%s: failed\n", ev.Package)
			} else {
				fmt.Fprintf(r.progress, "%s: done\n", ev.Package)
			}
		}
	}
}

// finish records the outcome of the run in the telemetry textfile and the
// score history. Failures are logged, never returned: the report is the
// product of the run.
func (r *runner) finish(ctx context.Context, command string, pkgs []*model.Package, success bool) {
	if r.recorder != nil {
		r.recorder.ObserveRun(success, time.Now())
		if err := r.recorder.WriteTextfile(r.cfg.MetricsFile); err != nil {
			r.logger.Warn("failed to write metrics file", "path", r.cfg.MetricsFile, "error", err)
		}
	}

	if !r.cfg.SaveToDB {
		return
	}

	db, err := database.Open(r.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		r.logger.Warn("failed to open history database", "dir", r.cfg.DBDir, "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, &database.Run{
		Command:  command,
		Band:     r.cfg.Band(),
		Strict:   r.cfg.Strict,
		Success:  success,
		Packages: pkgs,
	})
	if err != nil {
		r.logger.Warn("failed to save run", "error", err)
		return
	}
	r.logger.Info("run saved to history", "id", id, "path", db.Path())
}

// openOutput returns the report destination: path when set, stdout
// otherwise. The returned close function must be called.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may carry repository details of private packages, keep them
	// readable by the owner only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newWriter returns the report writer for cfg.Format. textOpts only apply
// to the text format.
func newWriter(cfg *config.Config, out io.Writer, textOpts ...report.SimpleWriterOption) report.Writer {
	band := cfg.Band()

	switch cfg.Format {
	case config.FormatJSON:
		return report.NewFullJSONWriter(out, getVersion(),
			report.WithPrettyPrint(),
			report.WithJSONBand(band),
		)
	case config.FormatYAML:
		return report.NewYAMLWriter(out, band)
	case config.FormatMarkdown:
		return report.NewMarkdownWriter(out, band)
	default:
		return report.NewSimpleWriter(out, append([]report.SimpleWriterOption{report.WithBand(band)}, textOpts...)...)
	}
}

// reportWriter returns the writer of the report of cmd. When a structured
// report goes to a file, a text summary is also printed to stdout unless
// --quiet was given.
func reportWriter(cmd *cobra.Command, cfg *config.Config, out io.Writer, textOpts ...report.SimpleWriterOption) report.Writer {
	w := newWriter(cfg, out, textOpts...)
	if cfg.ReportFile == "" || cfg.Format == config.FormatText || quietFlag(cmd.Flags()) {
		return w
	}

	opts := append([]report.SimpleWriterOption{report.WithBand(cfg.Band())}, textOpts...)
	return report.NewMultiWriter(w, report.NewSimpleWriter(cmd.OutOrStdout(), opts...))
}

// progressWriter returns where progress lines go for cmd, nil when quiet.
func progressWriter(cmd *cobra.Command) io.Writer {
	if quietFlag(cmd.Flags()) {
		return nil
	}
	return cmd.ErrOrStderr()
}
