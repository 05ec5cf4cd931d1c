package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ownerscan/internal/codeowners"
	"ownerscan/internal/config"
	"ownerscan/internal/discovery"
	gh "ownerscan/internal/github"
	"ownerscan/internal/logging"
	"ownerscan/internal/output"
	"ownerscan/internal/ratelimit"
	"ownerscan/internal/report"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// NoRepositoriesMessage is logged when discovery keeps nothing.
const NoRepositoriesMessage = "No repositories found or error occurred"

// RepositoryLister enumerates the organization's repositories.
type RepositoryLister interface {
	ListRepositories(ctx context.Context, org string, filters discovery.Filters) ([]discovery.RepositoryDescriptor, error)
}

// CodeownersLocator finds a repository's CODEOWNERS file.
type CodeownersLocator interface {
	Locate(ctx context.Context, repoName string) (codeowners.Result, error)
}

// QuotaGuard keeps the batch inside the API quota.
type QuotaGuard interface {
	EnsureQuota(ctx context.Context) error
	Pace(ctx context.Context) error
}

// Engine runs one analysis batch: discover, analyze each repository, report.
type Engine struct {
	Repos   RepositoryLister
	Locator CodeownersLocator
	Guard   QuotaGuard

	// Stdout receives console output. Nil means os.Stdout.
	Stdout io.Writer
}

// NewEngine wires the engine to a GitHub client for the configured org.
func NewEngine(client *gh.Client, cfg *config.Config) *Engine {
	guard := ratelimit.NewGuard(client,
		ratelimit.WithThreshold(cfg.Runtime.QuotaThreshold),
		ratelimit.WithPace(cfg.Runtime.Pace),
	)
	return &Engine{
		Repos:   discovery.New(client.Client.Repositories, guard),
		Locator: codeowners.NewLocator(client.Client.Repositories, cfg.Targeting.Org),
		Guard:   guard,
	}
}

// Run executes the batch. It never panics; every failure is folded into the
// returned Outcome.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) (out Outcome) {
	runID := uuid.NewString()
	logger := logging.From(ctx).With(slog.String("run_id", runID))
	ctx = logging.With(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Status: StatusFatal,
				Err:    goerr.New("unexpected failure during analysis", goerr.V("panic", fmt.Sprint(r))),
			}
		}
	}()

	filters := discovery.Filters{
		IncludePublic:   cfg.Targeting.IncludePublic(),
		IncludePrivate:  cfg.Targeting.IncludePrivate(),
		IncludeArchived: cfg.Targeting.IncludeArchived(),
	}
	logger.Info("Fetching repositories",
		slog.String("org", cfg.Targeting.Org),
		slog.Bool("public", filters.IncludePublic),
		slog.Bool("private", filters.IncludePrivate),
		slog.Bool("archived", filters.IncludeArchived),
	)

	repos, err := e.Repos.ListRepositories(ctx, cfg.Targeting.Org, filters)
	if err != nil {
		return outcomeForError(err)
	}
	if len(repos) == 0 {
		logger.Warn(NoRepositoriesMessage, slog.String("org", cfg.Targeting.Org))
		return Outcome{Status: StatusEmpty}
	}

	records, err := e.analyze(ctx, cfg, repos)
	if err != nil {
		return outcomeForError(err)
	}
	summary := report.Summarize(records)

	if err := e.emit(cfg, runID, records, summary); err != nil {
		return Outcome{Status: StatusFatal, Records: records, Summary: summary, Err: err}
	}
	logger.Info("Analysis complete",
		slog.String("path", cfg.Output.Path),
		slog.Int("total", summary.Total),
		slog.Int("with_codeowners", summary.WithCodeowners),
	)
	return Outcome{Status: StatusSuccess, Records: records, Summary: summary}
}

// analyze produces one record per repository, in discovery order.
func (e *Engine) analyze(ctx context.Context, cfg *config.Config, repos []discovery.RepositoryDescriptor) ([]report.AnalysisRecord, error) {
	logger := logging.From(ctx)
	total := len(repos)
	logger.Info("Analyzing CODEOWNERS files", slog.Int("repos", total))

	every := cfg.Runtime.QuotaCheckEvery
	if every <= 0 {
		every = 1
	}
	limit := cfg.Runtime.Concurrency
	if limit <= 0 {
		limit = 1
	}

	records := make([]report.AnalysisRecord, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, repo := range repos {
		n := i + 1
		if n%every == 0 {
			if err := e.Guard.EnsureQuota(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = goerr.New("unexpected failure while analyzing repository",
						goerr.V("repo", repo.Name),
						goerr.V("panic", fmt.Sprint(r)),
					)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			logger.Info("Processing repository",
				slog.String("progress", fmt.Sprintf("%d/%d", n, total)),
				slog.String("repo", repo.Name),
			)
			rec, err := e.analyzeOne(gctx, repo)
			if err != nil {
				return err
			}
			records[i] = rec
			return e.Guard.Pace(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Engine) analyzeOne(ctx context.Context, repo discovery.RepositoryDescriptor) (report.AnalysisRecord, error) {
	res, err := e.Locator.Locate(ctx, repo.Name)
	if err != nil {
		return report.AnalysisRecord{}, err
	}
	var (
		owner string
		ok    bool
	)
	if res.Found {
		owner, ok = codeowners.ParsePrimaryOwner(res.Content)
	}
	return report.Assemble(repo, res, owner, ok), nil
}

// emit writes the finished batch to every sink. The report file only appears
// once every record has been written.
func (e *Engine) emit(cfg *config.Config, runID string, records []report.AnalysisRecord, summary report.Summary) error {
	outMgr, err := setupOutputManager(cfg, e.stdout())
	if err != nil {
		return err
	}

	writeAll := func() error {
		if err := outMgr.Write(output.Event{Type: output.EventRunStarted, RunID: runID, Org: cfg.Targeting.Org, Repos: len(records)}); err != nil {
			return err
		}
		for _, rec := range records {
			if err := outMgr.Write(output.Event{Type: output.EventRepoAnalyzed, RunID: runID, Record: &rec}); err != nil {
				return err
			}
		}
		return outMgr.Write(output.Event{
			Type:     output.EventRunFinished,
			RunID:    runID,
			Org:      cfg.Targeting.Org,
			Summary:  &summary,
			Path:     cfg.Output.Path,
			ExitCode: ExitSuccess,
		})
	}
	if err := writeAll(); err != nil {
		_ = outMgr.Abort()
		return goerr.Wrap(err, "failed to write report", goerr.V("path", cfg.Output.Path))
	}
	if err := outMgr.Close(); err != nil {
		return goerr.Wrap(err, "failed to save report", goerr.V("path", cfg.Output.Path))
	}
	return nil
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	// File Sink
	fs, err := output.NewFileSink(cfg.Output.Path, cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	if err := outMgr.AddSink(fs); err != nil {
		_ = fs.Abort()
		return nil, err
	}

	// Console Sink
	if !cfg.Output.NoConsole {
		cs, err := output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat)
		if err != nil {
			_ = outMgr.Abort()
			return nil, err
		}
		if err := outMgr.AddSink(cs); err != nil {
			_ = outMgr.Abort()
			return nil, err
		}
	}

	return outMgr, nil
}

func outcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, context.Canceled):
		return Outcome{Status: StatusCancelled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Status: StatusFatal, Err: goerr.Wrap(err, "analysis timed out")}
	default:
		return Outcome{Status: StatusFatal, Err: err}
	}
}
