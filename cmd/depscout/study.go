package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/report"
)

// NewStudyCmd creates the study command.
func NewStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study [package...]",
		Short: "Score npm packages and tell whether to adopt them",
		Long: `Study analyzes npm packages and prints a verdict for each one.

Each package is scored from its npm metadata, its download counts and the
activity of its GitHub repository. Packages scoring below the low end of
the band should probably not be adopted, packages between low and good
are doubtful, packages above good are fine.

Without arguments, the dependencies and devDependencies of package.json
in the current directory are studied.

The command exits with status 1 when any studied package should not be
installed.

Examples:
  # Study a single package
  depscout study left-pad

  # Explain the score with pros, cons and notes
  depscout study --why express

  # Use a stricter band and reject doubtful packages
  depscout study --ranges 400,700 --strict lodash moment

  # Write a Markdown report
  depscout study -m -o report/deps.md react vue`,
		Args: cobra.ArbitraryArgs,
		RunE: runStudyCmd,
	}

	addAnalysisFlags(cmd)
	cmd.Flags().BoolP("why", "w", false,
		"Print the pros, cons and notes behind each score")

	return cmd
}

// runStudyCmd executes the study command.
func runStudyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names, err = readPackageJSON(defaultPackageJSON)
		if err != nil {
			return err
		}
	}
	if len(names) == 0 {
		return errors.New("no packages to study")
	}

	why, err := cmd.Flags().GetBool("why")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	ctx, cancel := signalContext(logger)
	defer cancel()

	r := newRunner(cfg, logger, progressWriter(cmd))
	pkgs, err := r.analyze(ctx, names)
	if err != nil {
		return err
	}

	success := allInstallable(pkgs, cfg.Band(), cfg.Strict)

	out, closeOut, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // Best effort, write errors are reported below

	if _, err := reportWriter(cmd, cfg, out, report.WithExplain(why)).WritePackages(pkgs); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.finish(ctx, "study", pkgs, success)

	if !success {
		return errQuietFailure
	}
	return nil
}

// allInstallable reports whether every package may be installed: not
// banned, and either pre-approved or analyzed with a passing score.
func allInstallable(pkgs []*model.Package, band model.Band, strict bool) bool {
	for _, p := range pkgs {
		if !p.Installable(band, strict) {
			return false
		}
	}
	return true
}
