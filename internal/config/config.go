package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// DefaultOutputPath is where the report is written when --output is omitted.
const DefaultOutputPath = "codeowners_analysis.csv"

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI
	// flags in internal/cli/scan.go in sync.
	Targeting Targeting
	Auth      Auth
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Org is the GitHub organization to analyze (name or URL; see --org).
	Org string

	// All selects public, private, and archived repositories (see --all).
	// Mutually exclusive with Public, Private, and Archived.
	All bool

	// Public, Private, and Archived select repository classes and may be combined.
	Public   bool
	Private  bool
	Archived bool
}

type Auth struct {
	// Token is the GitHub access token from --token. Empty means resolve it
	// from the environment or the gh CLI.
	Token string `masq:"secret"`

	// GitHub App installation auth. All three are set together, and never
	// with Token.
	AppID             int64
	AppInstallationID int64
	AppPrivateKeyPath string
}

// UsesApp reports whether GitHub App installation auth is configured.
func (a Auth) UsesApp() bool {
	return a.AppID != 0 || a.AppInstallationID != 0 || a.AppPrivateKeyPath != ""
}

type Output struct {
	// Path is the report file (see --output).
	Path string

	// Format is csv, json, or ndjson. Inferred from Path's extension when empty;
	// unrecognized extensions get csv.
	Format string

	// ConsoleFormat is text (a summary when the run ends) or ndjson (every
	// event, written once the batch completes).
	ConsoleFormat string

	// NoConsole suppresses stdout output entirely.
	NoConsole bool
}

type Runtime struct {
	// Concurrency is how many repositories are analyzed at once. 1 keeps the
	// run strictly sequential.
	Concurrency int

	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration

	// QuotaThreshold is the remaining-request count below which the run waits
	// for the rate limit window to reset.
	QuotaThreshold int

	// QuotaCheckEvery is how many repositories are processed between quota checks.
	QuotaCheckEvery int

	// Pace is the minimum spacing between repositories. Zero disables pacing.
	Pace time.Duration

	// Verbose logs every GitHub API call and forces the debug log level.
	Verbose bool

	LogFormat string
	LogLevel  string
}

func New() *Config {
	return &Config{
		Output: Output{
			Path:          DefaultOutputPath,
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency:     1,
			Timeout:         0,
			QuotaThreshold:  10,
			QuotaCheckEvery: 50,
			Pace:            100 * time.Millisecond,
			LogFormat:       "text",
			LogLevel:        "info",
		},
	}
}

// ErrNoRepositoryClass is returned when none of --all, --public, --private,
// or --archived is set.
var ErrNoRepositoryClass = errors.New("you must specify which repositories to analyze: --all, or any combination of --public, --private, --archived")

// ErrAllWithClass is returned when --all is combined with a class flag.
var ErrAllWithClass = errors.New("--all cannot be used with --public, --private, or --archived")

// ErrIncompleteAppAuth is returned when only some of the GitHub App flags are set.
var ErrIncompleteAppAuth = errors.New("GitHub App authentication needs --app-id, --app-installation-id, and --app-private-key")

func (c *Config) Validate() error {
	// Repository class flags
	t := c.Targeting
	if !t.All && !t.Public && !t.Private && !t.Archived {
		return ErrNoRepositoryClass
	}
	if t.All && (t.Public || t.Private || t.Archived) {
		return ErrAllWithClass
	}

	// Organization
	org, err := normalizeAccountSelector(c.Targeting.Org)
	if err != nil {
		return fmt.Errorf("invalid --org value: %w", err)
	}
	if org == "" {
		return errors.New("--org is required")
	}
	c.Targeting.Org = org

	// Auth
	c.Auth.AppPrivateKeyPath = strings.TrimSpace(c.Auth.AppPrivateKeyPath)
	if c.Auth.UsesApp() {
		if c.Auth.AppID <= 0 || c.Auth.AppInstallationID <= 0 || c.Auth.AppPrivateKeyPath == "" {
			return ErrIncompleteAppAuth
		}
		if strings.TrimSpace(c.Auth.Token) != "" {
			return errors.New("--token cannot be combined with GitHub App authentication")
		}
	}

	// Output
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutputPath
	}
	c.Output.Format = normalizeEnumValue(c.Output.Format)
	if c.Output.Format == "" {
		c.Output.Format = inferFormat(c.Output.Path)
	}
	if c.Output.Format != "csv" && c.Output.Format != "json" && c.Output.Format != "ndjson" {
		return fmt.Errorf("unsupported --output-format: %s (must be one of: csv, json, ndjson)", c.Output.Format)
	}

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, ndjson)", c.Output.ConsoleFormat)
	}

	// Runtime
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout < 0 {
		return errors.New("--timeout must be >= 0")
	}
	if c.Runtime.QuotaThreshold < 0 {
		return errors.New("--quota-threshold must be >= 0")
	}
	if c.Runtime.QuotaCheckEvery <= 0 {
		return errors.New("--quota-check-every must be >= 1")
	}
	if c.Runtime.Pace < 0 {
		return errors.New("--pace must be >= 0")
	}

	c.Runtime.LogFormat = normalizeEnumValue(c.Runtime.LogFormat)
	if c.Runtime.LogFormat == "" {
		c.Runtime.LogFormat = "text"
	}
	if c.Runtime.LogFormat != "text" && c.Runtime.LogFormat != "json" {
		return fmt.Errorf("unsupported --log-format: %s (must be one of: text, json)", c.Runtime.LogFormat)
	}
	c.Runtime.LogLevel = normalizeEnumValue(c.Runtime.LogLevel)
	if c.Runtime.Verbose {
		c.Runtime.LogLevel = "debug"
	}
	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = "info"
	}
	switch c.Runtime.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported --log-level: %s (must be one of: debug, info, warn, error)", c.Runtime.LogLevel)
	}

	return nil
}

// IncludePublic, IncludePrivate, and IncludeArchived resolve --all against the
// individual class flags.
func (t Targeting) IncludePublic() bool   { return t.All || t.Public }
func (t Targeting) IncludePrivate() bool  { return t.All || t.Private }
func (t Targeting) IncludeArchived() bool { return t.All || t.Archived }

// inferFormat maps the report path's extension to a format. Any other name,
// including one without an extension, gets CSV.
func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".ndjson", ".jsonl":
		return "ndjson"
	default:
		return "csv"
	}
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw organization name, or a GitHub URL like:
	//   https://github.com/<name>
	//   https://github.com/orgs/<name>
	//   github.com/<name>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious owner/repo inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}
