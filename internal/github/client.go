package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
)

// UserAgent identifies this tool to the GitHub API.
const UserAgent = "GitHub-CodeOwners-Analyzer"

type Client struct {
	Client *github.Client
	HTTP   *http.Client

	quota *quotaTracker
}

type options struct {
	verbose bool
	// logger receives one record per request when verbose is enabled. Logs go
	// through slog so stdout stays free for console output.
	logger *slog.Logger

	app *appInstallation
}

type appInstallation struct {
	appID          int64
	installationID int64
	privateKey     []byte
}

type Option func(*options)

// WithAppInstallation authenticates as a GitHub App installation instead of
// with a token. The token passed to NewClient is then ignored.
func WithAppInstallation(appID, installationID int64, privateKey []byte) Option {
	return func(o *options) {
		o.app = &appInstallation{appID: appID, installationID: installationID, privateKey: privateKey}
	}
}

func WithVerbose(enabled bool, logger *slog.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.logger = logger
	}
}

// loggingRoundTripper wraps an underlying transport and emits one record per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("github api request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	)
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("github api error", slog.Duration("elapsed", dur), slog.Any("error", err))
	} else {
		t.logger.Debug("github api response",
			slog.Int("status", resp.StatusCode),
			slog.String("status_text", http.StatusText(resp.StatusCode)),
			slog.Duration("elapsed", dur),
		)
	}
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.logger == nil {
		o.logger = slog.Default()
	}

	quota := &quotaTracker{}

	var transport http.RoundTripper = &quotaRoundTripper{base: http.DefaultTransport, tracker: quota}
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	switch {
	case o.app != nil:
		itr, err := ghinstallation.New(transport, o.app.appID, o.app.installationID, o.app.privateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure GitHub App authentication",
				goerr.V("app_id", o.app.appID),
				goerr.V("installation_id", o.app.installationID),
			)
		}
		transport = itr
	case token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	// Always provide an http.Client so verbose logging works even without a token.
	tc := &http.Client{Transport: transport}

	client := github.NewClient(tc)
	client.UserAgent = UserAgent

	return &Client{
		Client: client,
		HTTP:   tc,
		quota:  quota,
	}, nil
}
