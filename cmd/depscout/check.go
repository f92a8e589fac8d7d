package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/report"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [package...]",
		Short: "Classify the dependencies of a project",
		Long: `Check analyzes every dependency of a project and classifies it.

The dependencies and devDependencies of package.json are analyzed and
sorted into banned, failing, warning, good and pre-approved packages.
Packages listed as banned or allowed in the configuration file are
classified by those lists whatever their score.

The command exits with status 1 when any package is failing or banned,
or could not be analyzed, which makes it suitable as a CI gate.

Examples:
  # Check the project in the current directory
  depscout check

  # Check another project
  depscout check --package-json ../app/package.json

  # Fail on packages in the warning band as well
  depscout check --strict

  # Check explicit packages instead of package.json
  depscout check react react-dom`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	addAnalysisFlags(cmd)
	cmd.Flags().StringP("package-json", "p", defaultPackageJSON,
		"Path of the package.json whose dependencies are checked")
	cmd.Flags().Bool("show-empty", false,
		"List empty classification buckets in the text report")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		path, err := cmd.Flags().GetString("package-json")
		if err != nil {
			return err
		}
		names, err = readPackageJSON(path)
		if err != nil {
			return err
		}
	}
	if len(names) == 0 {
		return errors.New("no dependencies to check")
	}

	showEmpty, err := cmd.Flags().GetBool("show-empty")
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

	summary := model.Classify(pkgs, cfg.Band(), cfg.Strict)

	out, closeOut, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // Best effort, write errors are reported below

	if _, err := reportWriter(cmd, cfg, out, report.WithShowEmpty(showEmpty)).WriteSummary(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.finish(ctx, "check", pkgs, summary.Passed())

	if !summary.Passed() {
		return errQuietFailure
	}
	return nil
}
