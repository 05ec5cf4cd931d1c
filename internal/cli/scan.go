package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ownerscan/internal/config"
	"ownerscan/internal/engine"
	"ownerscan/internal/flags"
	gh "ownerscan/internal/github"
	"ownerscan/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfg = config.New()

// dotEnvPath is loaded before the token is resolved. Variables already set in
// the environment win.
var dotEnvPath = ".env"

const scanHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  ownerscan authenticates to GitHub with an access token or a GitHub App
  installation.

  Sources (in order):
  0) GitHub App installation (--app-id, --app-installation-id, --app-private-key)
  1) --token
  2) GITHUB_TOKEN, then GH_TOKEN (a .env file in the working directory is loaded first)
  3) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

  Token guidance (brief):
  - PAT (classic): repo (to read private repositories) and read:org.
  - Fine-grained PAT: grant access to the organization's repositories with
    Metadata: Read and Contents: Read.

  Examples:
    # macOS/Linux
    export GITHUB_TOKEN="<your_token>"
    ownerscan scan --org my-org --all

    # GitHub CLI auth
    gh auth login
    ownerscan scan --org my-org --public

    # Windows PowerShell
    $env:GITHUB_TOKEN = "<your_token>"
    ownerscan scan --org my-org --all

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report CODEOWNERS coverage for a GitHub organization",
	Long: `Report CODEOWNERS coverage for every repository in a GitHub organization.

For each repository, ownerscan looks for a CODEOWNERS file in the locations
GitHub searches (.github/CODEOWNERS, CODEOWNERS, docs/CODEOWNERS, in that
order) and records where it was found and the primary owner named by the
first rule in the file.

The primary owner is a coarse signal: GitHub applies the last matching rule
for each path, while ownerscan reports the first rule in the file.

ownerscan is read-only: it never modifies repositories or settings.

Repository selection:
  --all selects every repository. Otherwise combine any of --public,
  --private and --archived. At least one is required, and --all cannot be
  combined with the others.

Output:
  The report is written to --output (default: codeowners_analysis.csv) with
  the columns repository_url, repository_name, has_codeowner_file,
  codeowners_file_location, primary_owner. The format follows the file
  extension (.json, .ndjson or .jsonl; anything else is CSV) unless
  --output-format is set.

  The report file only appears once every repository has been analyzed; an
  interrupted or failed run leaves no report behind.

  Console output is controlled by --console-format (default: text, a summary
  at the end). NDJSON mode emits one JSON object per line with a "type" field
  (run.started, repo.analyzed, run.finished). Events are written once every
  repository has been analyzed, together with the report.

Exit codes:
  0 = report written
  2 = no repositories found, nothing written
  3 = fatal error (invalid flags, authentication, API or file failure)
  130 = interrupted

Examples:
  # Every repository, CSV report
  ownerscan scan --org my-org --all

  # Public and archived repositories, JSON report
  ownerscan scan --org my-org --public --archived --output owners.json

  # Stream machine-readable events to stdout
  ownerscan scan --org my-org --all --console-format ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}
		os.Exit(runScan(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

// runScan validates cfg, runs one batch, and returns the process exit code.
// Validation happens before any network access.
func runScan(parent context.Context, cfg *config.Config, stdout, stderr io.Writer) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}

	logger, err := logging.New(stderr, cfg.Runtime.LogFormat, cfg.Runtime.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}
	logging.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancel()
	}
	ctx = logging.With(ctx, logger)

	logger.Debug("Effective configuration", slog.Any("config", cfg))

	client, code := newGitHubClient(ctx, cfg, logger, stderr)
	if client == nil {
		return code
	}

	eng := engine.NewEngine(client, cfg)
	eng.Stdout = stdout
	out := eng.Run(ctx, cfg)

	if q, ok := client.ObservedQuota(); ok {
		logger.Debug("Remaining API quota", slog.Int("remaining", q.Remaining), slog.Time("reset", q.Reset))
	}
	reportOutcome(logger, stderr, out)
	return out.ExitCode()
}

// newGitHubClient authenticates with a GitHub App installation when one is
// configured, otherwise with a resolved token. A nil client comes with the
// exit code to return.
func newGitHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, stderr io.Writer) (*gh.Client, int) {
	opts := []gh.Option{gh.WithVerbose(cfg.Runtime.Verbose, logger)}
	token := ""

	if cfg.Auth.UsesApp() {
		key, err := os.ReadFile(cfg.Auth.AppPrivateKeyPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to read GitHub App private key: %v\n", err)
			return nil, engine.ExitFatal
		}
		opts = append(opts, gh.WithAppInstallation(cfg.Auth.AppID, cfg.Auth.AppInstallationID, key))
		logger.Debug("Using GitHub App authentication",
			slog.Int64("app_id", cfg.Auth.AppID),
			slog.Int64("installation_id", cfg.Auth.AppInstallationID),
		)
	} else {
		if err := loadDotEnv(dotEnvPath); err != nil {
			logger.Warn("Failed to load .env file", slog.String("path", dotEnvPath), slog.Any("error", err))
		}

		resolved, source, err := gh.ResolveAuthToken(ctx, cfg.Auth.Token)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(stderr, "Operation cancelled by user")
				return nil, engine.ExitCancelled
			}
			fmt.Fprintf(stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
			return nil, engine.ExitFatal
		}
		if strings.TrimSpace(resolved) == "" {
			fmt.Fprintln(stderr, "Error: GitHub auth token is required (use --token, set GITHUB_TOKEN, or run 'gh auth login')")
			return nil, engine.ExitFatal
		}
		logger.Debug("Resolved GitHub token", slog.String("source", string(source)))
		token = resolved
	}

	client, err := gh.NewClient(ctx, token, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create GitHub client: %v\n", err)
		return nil, engine.ExitFatal
	}
	return client, engine.ExitSuccess
}

func reportOutcome(logger *slog.Logger, stderr io.Writer, out engine.Outcome) {
	switch out.Status {
	case engine.StatusSuccess:
	case engine.StatusEmpty:
		fmt.Fprintln(stderr, engine.NoRepositoriesMessage)
	case engine.StatusCancelled:
		fmt.Fprintln(stderr, "Operation cancelled by user")
	default:
		logger.Error("An error occurred", slog.Any("error", out.Err))
		fmt.Fprintf(stderr, "Error: %v\n", out.Err)
	}
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.SetHelpTemplate(scanHelpTemplate)

	// Targeting
	scanCmd.Flags().StringVar(&cfg.Targeting.Org, flags.FlagOrg, "", "GitHub organization to analyze (name or URL)")
	scanCmd.Flags().BoolVar(&cfg.Targeting.All, flags.FlagAll, false, "Analyze all repositories (public, private, and archived)")
	scanCmd.Flags().BoolVar(&cfg.Targeting.Public, flags.FlagPublic, false, "Include public repositories")
	scanCmd.Flags().BoolVar(&cfg.Targeting.Private, flags.FlagPrivate, false, "Include private repositories")
	scanCmd.Flags().BoolVar(&cfg.Targeting.Archived, flags.FlagArchived, false, "Include archived repositories")

	// Auth
	scanCmd.Flags().StringVar(&cfg.Auth.Token, flags.FlagToken, "", "GitHub access token (default: GITHUB_TOKEN, GH_TOKEN, or gh auth token)")
	scanCmd.Flags().Int64Var(&cfg.Auth.AppID, flags.FlagAppID, 0, "GitHub App ID (authenticate as an App installation instead of a token)")
	scanCmd.Flags().Int64Var(&cfg.Auth.AppInstallationID, flags.FlagAppInstallationID, 0, "GitHub App installation ID for the organization")
	scanCmd.Flags().StringVar(&cfg.Auth.AppPrivateKeyPath, flags.FlagAppPrivateKey, "", "Path to the GitHub App private key (PEM)")

	// Output
	scanCmd.Flags().StringVar(&cfg.Output.Path, flags.FlagOutput, config.DefaultOutputPath, "Report file path")
	scanCmd.Flags().StringVar(&cfg.Output.Format, flags.FlagOutputFormat, "", "Report format: csv|json|ndjson (default: inferred from file extension)")
	scanCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|ndjson")
	scanCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output")

	// Runtime
	scanCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Repositories analyzed at once")
	scanCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (0 = no limit)")
	scanCmd.Flags().IntVar(&cfg.Runtime.QuotaThreshold, flags.FlagQuotaThreshold, cfg.Runtime.QuotaThreshold, "Wait for the rate limit reset when fewer requests remain (0 = never wait)")
	scanCmd.Flags().IntVar(&cfg.Runtime.QuotaCheckEvery, flags.FlagQuotaCheckEvery, cfg.Runtime.QuotaCheckEvery, "Check the rate limit every N repositories")
	scanCmd.Flags().DurationVar(&cfg.Runtime.Pace, flags.FlagPace, cfg.Runtime.Pace, "Minimum delay between repositories (0 = no delay)")
	scanCmd.Flags().StringVar(&cfg.Runtime.LogFormat, flags.FlagLogFormat, cfg.Runtime.LogFormat, "Log format: text|json")
	scanCmd.Flags().StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, cfg.Runtime.LogLevel, "Log level: debug|info|warn|error")
}
