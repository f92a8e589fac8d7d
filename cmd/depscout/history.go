package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/depscout/internal/database"
)

// Score trend labels.
const (
	trendImproved  = "improved"
	trendDeclined  = "declined"
	trendUnchanged = "unchanged"
	trendNew       = "new"
	trendFailed    = "failed"
)

// defaultHistoryLimit bounds the listings of the history command.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command shows the runs and package scores stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [package]",
		Short: "Show past runs and score trends",
		Long: `History displays the scores recorded by previous study and check runs.

Without arguments, the most recent runs are listed. With a package name,
the recorded scores of that package are listed with the change since the
previous record, so a declining package stands out before it fails.

Runs are recorded in the depscout database of the XDG data directory
unless --no-history was given. Use db_dir in the configuration file to
read another database.

Examples:
  # List recent runs
  depscout history

  # Show the score trend of a package
  depscout history express

  # Show the scores of one run
  depscout history --run 6f1c7a52-5bb4-4a8e-9d2e-1f0c3b2a9e11

  # List every package with recorded scores
  depscout history --list-packages

  # Output in JSON format
  depscout history --json express`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-packages", "L", false,
		"List all packages with recorded scores")
	cmd.Flags().StringP("run", "i", "",
		"Show the scores of the run with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of records to show (0 shows all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	listPackages bool
	runID        string
	limit        int
	jsonOutput   bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listPackages:
		return listPackages(ctx, out, db, opts)
	case opts.runID != "":
		return showRun(ctx, out, db, opts)
	case len(args) == 1:
		return showPackageHistory(ctx, out, db, args[0], opts)
	default:
		return listRuns(ctx, out, db, opts)
	}
}

// parseHistoryFlags reads the flags of the history command.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	var err error

	if opts.listPackages, err = cmd.Flags().GetBool("list-packages"); err != nil {
		return opts, err
	}
	if opts.runID, err = cmd.Flags().GetString("run"); err != nil {
		return opts, err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	return opts, nil
}

// listRuns lists the most recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'depscout study' or 'depscout check' to analyze packages.")
		return nil
	}

	fmt.Fprintf(out, "Recent runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-7s  %-19s  %-11s  %-8s  %s\n", "ID", "Command", "Date", "Band", "Packages", "Result")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-7s  %-19s  %-11s  %-8d  %s\n",
			run.ID,
			run.Command,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			formatBand(run.Band.Low, run.Band.Good, run.Strict),
			run.Packages,
			formatResult(run.Success),
		)
	}

	fmt.Fprintln(out, "\nUse 'depscout history --run <id>' to see the scores of a run.")
	return nil
}

// listPackages lists every package that has recorded scores.
func listPackages(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	names, err := db.ListPackages(ctx)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if names == nil {
			names = []string{}
		}
		return writeJSON(out, names)
	}

	if len(names) == 0 {
		fmt.Fprintln(out, "No packages found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Packages with recorded scores (%d):\n\n", len(names))
	for _, name := range names {
		fmt.Fprintf(out, "  • %s\n", name)
	}
	fmt.Fprintln(out, "\nUse 'depscout history <package>' to see the score trend of a package.")
	return nil
}

// showRun prints the scores of one run.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	records, err := db.RunScores(ctx, opts.runID)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return writeJSON(out, records)
	}

	fmt.Fprintf(out, "Run %s (%d packages):\n\n", opts.runID, len(records))
	fmt.Fprintf(out, "  %-40s  %-7s  %s\n", "Package", "Score", "Install")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, rec := range records {
		fmt.Fprintf(out, "  %-40s  %-7s  %s\n", rec.Package, formatScore(rec), formatInstall(rec))
	}
	return nil
}

// ScoreTrend is one stored score with the change since the record before it.
type ScoreTrend struct {
	database.ScoreRecord

	// Delta is the score change since the previous successful record.
	Delta int `json:"delta"`

	// Trend is improved, declined, unchanged, new or failed.
	Trend string `json:"trend"`
}

// showPackageHistory prints the score trend of one package.
func showPackageHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, name string, opts historyOptions) error {
	records, err := db.PackageHistory(ctx, name, opts.limit)
	if err != nil {
		return err
	}

	trends := scoreTrends(records)

	if opts.jsonOutput {
		return writeJSON(out, trends)
	}

	if len(trends) == 0 {
		fmt.Fprintf(out, "No history found for %s\n", name)
		fmt.Fprintln(out, "\nUse 'depscout study' to analyze this package.")
		return nil
	}

	fmt.Fprintf(out, "Score history for %s (%d records):\n\n", name, len(trends))
	fmt.Fprintf(out, "  %-19s  %-7s  %-7s  %-9s  %s\n", "Date", "Score", "Change", "Trend", "Install")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))

	for _, t := range trends {
		fmt.Fprintf(out, "  %-19s  %-7s  %-7s  %-9s  %s\n",
			t.Timestamp.Format("2006-01-02 15:04:05"),
			formatScore(t.ScoreRecord),
			formatDelta(t.Delta),
			t.Trend,
			formatInstall(t.ScoreRecord),
		)
	}
	return nil
}

// scoreTrends pairs each record, newest first, with the change since the
// next older successful record. Failed analyses carry no score and are
// skipped when looking for the previous one.
func scoreTrends(records []database.ScoreRecord) []ScoreTrend {
	trends := make([]ScoreTrend, len(records))
	for i, rec := range records {
		trends[i] = ScoreTrend{ScoreRecord: rec, Trend: trendNew}
		if rec.Error != "" {
			trends[i].Trend = trendFailed
			continue
		}

		for _, prev := range records[i+1:] {
			if prev.Error != "" {
				continue
			}
			trends[i].Delta = rec.Score - prev.Score
			trends[i].Trend = trendDirection(trends[i].Delta)
			break
		}
	}
	return trends
}

// trendDirection names the direction of a score change.
func trendDirection(delta int) string {
	switch {
	case delta > 0:
		return trendImproved
	case delta < 0:
		return trendDeclined
	default:
		return trendUnchanged
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatBand formats a score band for display.
func formatBand(low, good int, strict bool) string {
	band := strconv.Itoa(low) + "-" + strconv.Itoa(good)
	if strict {
		band += "!"
	}
	return band
}

// formatResult formats a run outcome for display.
func formatResult(success bool) string {
	if success {
		return "PASS"
	}
	return "FAIL"
}

// formatScore formats a stored score, or "error" for a failed analysis.
func formatScore(rec database.ScoreRecord) string {
	if rec.Error != "" {
		return "error"
	}
	return strconv.Itoa(rec.Score)
}

// formatInstall formats the install decision of a stored score.
func formatInstall(rec database.ScoreRecord) string {
	switch {
	case rec.Error != "":
		return rec.Error
	case rec.ShouldInstall:
		return "yes"
	default:
		return "no"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
