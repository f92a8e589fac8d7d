package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// envFile is loaded from the working directory before any command runs.
const envFile = ".env"

// NewRootCmd creates the root command for depscout.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depscout",
		Short: "Quality scores for npm packages",
		Long: `depscout scores npm packages before you adopt them.

It reads the npm registry, the npm download counts and the GitHub
repository of each package, turns them into metrics such as release
frequency, issue closing time and download growth, and sums the partial
scores into one number judged against a score band.

Set GITHUB_TOKEN (or use --token) to raise the GitHub API quota.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(envFile)
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("config", "",
		"Configuration file path (default: .depscout.yaml in current, home or XDG config directory)")

	cmd.AddCommand(NewStudyCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadEnvFile exports the variables of path that are not already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errQuietFailure) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
