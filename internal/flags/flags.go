package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// tests. IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.Org, flags.FlagOrg, "", "...")
//	arg := "--" + flags.FlagOrg
const (
	// Targeting
	FlagOrg      = "org"
	FlagAll      = "all"
	FlagPublic   = "public"
	FlagPrivate  = "private"
	FlagArchived = "archived"

	// Auth
	FlagToken             = "token"
	FlagAppID             = "app-id"
	FlagAppInstallationID = "app-installation-id"
	FlagAppPrivateKey     = "app-private-key"

	// Output
	FlagOutput        = "output"
	FlagOutputFormat  = "output-format"
	FlagConsoleFormat = "console-format"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagConcurrency     = "concurrency"
	FlagTimeout         = "timeout"
	FlagQuotaThreshold  = "quota-threshold"
	FlagQuotaCheckEvery = "quota-check-every"
	FlagPace            = "pace"
	FlagVerbose         = "verbose"
	FlagLogFormat       = "log-format"
	FlagLogLevel        = "log-level"
)
