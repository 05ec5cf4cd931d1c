package cli

import (
	"fmt"
	"os"

	"ownerscan/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ownerscan",
	Short: "Report CODEOWNERS coverage across a GitHub organization",
	Long: `ownerscan reports, for every repository in a GitHub organization, whether a
CODEOWNERS file exists, where it lives, and who its primary owner is.

ownerscan is read-only: it reads repository listings and file contents via the
GitHub API and never mutates state.

Examples:
	# Show available commands and global flags
	ownerscan --help

	# Analyze every repository in an organization
	ownerscan scan --org my-org --all

	# Print build info
	ownerscan version

Output:
	The report is written to a file (CSV by default). Progress and diagnostics
	go to stderr; stdout carries the run summary or an NDJSON event stream.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (logs every GitHub API call at debug level)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
