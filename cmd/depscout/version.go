package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata injected with
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLen is the length of the commit hash shown to users.
const shortCommitLen = 7

// buildInfo describes the running depscout binary.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
}

// currentBuild collects the build metadata. Values set through ldflags
// win over the module and VCS data recorded by the Go toolchain.
func currentBuild() buildInfo {
	info := buildInfo{
		Version:   "(devel)",
		Commit:    "unknown",
		Date:      "unknown",
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = shortCommit(s.Value)
			case "vcs.time":
				info.Date = s.Value
			}
		}
	}

	if version != "" {
		info.Version = version
	}
	if commit != "" {
		info.Commit = shortCommit(commit)
	}
	if date != "" {
		info.Date = date
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > shortCommitLen {
		return rev[:shortCommitLen]
	}
	return rev
}

// getVersion returns the version reported in --version and JSON reports.
func getVersion() string {
	return currentBuild().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the depscout build",
		Long: `Version prints the depscout release, the commit it was built from,
the build date and the Go toolchain.

Scores depend on the metric curves shipped with each release, so include
this output when comparing scores between machines or reporting a score
that looks wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return writeBuildInfo(cmd.OutOrStdout(), currentBuild(), asJSON)
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	return cmd
}

// writeBuildInfo prints info as text or as a JSON object.
func writeBuildInfo(w io.Writer, info buildInfo, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(info)
	}
	_, err := fmt.Fprintf(w, "depscout %s\n  commit: %s\n  built:  %s\n  go:     %s\n",
		info.Version, info.Commit, info.Date, info.GoVersion)
	return err
}
