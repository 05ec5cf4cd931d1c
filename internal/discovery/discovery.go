package discovery

import (
	"context"
	"log/slog"

	gh "ownerscan/internal/github"
	"ownerscan/internal/logging"

	"github.com/google/go-github/v81/github"
)

// PageSize is the largest page the organization listing endpoint serves.
const PageSize = 100

// RepositoryDescriptor is the part of a listing entry the report needs.
type RepositoryDescriptor struct {
	Name     string
	HTMLURL  string
	Private  bool
	Archived bool
}

// Filters selects which repository classes to keep.
type Filters struct {
	IncludePublic   bool
	IncludePrivate  bool
	IncludeArchived bool
}

// All keeps every repository.
func All() Filters {
	return Filters{IncludePublic: true, IncludePrivate: true, IncludeArchived: true}
}

// Keep reports whether a repository passes every filter.
func (f Filters) Keep(r RepositoryDescriptor) bool {
	if r.Archived && !f.IncludeArchived {
		return false
	}
	if r.Private && !f.IncludePrivate {
		return false
	}
	if !r.Private && !f.IncludePublic {
		return false
	}
	return true
}

// RepoLister is the slice of the GitHub repositories API discovery needs.
// *github.RepositoriesService satisfies it.
type RepoLister interface {
	ListByOrg(ctx context.Context, org string, opts *github.RepositoryListByOrgOptions) ([]*github.Repository, *github.Response, error)
}

// QuotaGuard is consulted before each page.
type QuotaGuard interface {
	EnsureQuota(ctx context.Context) error
}

type Discoverer struct {
	repos RepoLister
	guard QuotaGuard
}

func New(repos RepoLister, guard QuotaGuard) *Discoverer {
	return &Discoverer{repos: repos, guard: guard}
}

// ListRepositories pages through the organization's repositories sorted by
// name and returns those passing filters, in listing order.
//
// A failed page ends pagination without an error; whatever was gathered so
// far is returned. The error is non-nil only when ctx is done.
func (d *Discoverer) ListRepositories(ctx context.Context, org string, filters Filters) ([]RepositoryDescriptor, error) {
	logger := logging.From(ctx).With(slog.String("org", org))
	logger.Info("Fetching repositories for organization")

	var out []RepositoryDescriptor
	opts := &github.RepositoryListByOrgOptions{
		Type: "all",
		Sort: "name",
		ListOptions: github.ListOptions{
			Page:    1,
			PerPage: PageSize,
		},
	}

	for {
		if d.guard != nil {
			if err := d.guard.EnsureQuota(ctx); err != nil {
				return out, err
			}
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		repos, resp, err := d.repos.ListByOrg(ctx, org, opts)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.Error("Error fetching repositories",
				slog.Int("page", opts.Page),
				slog.Int("status", gh.StatusCode(resp)),
				slog.String("error", gh.DescribeError(err)),
				slog.String("body", gh.ErrorBody(err)),
			)
			break
		}
		if len(repos) == 0 {
			break
		}

		kept := 0
		for _, repo := range repos {
			desc := describe(repo)
			if !filters.Keep(desc) {
				continue
			}
			out = append(out, desc)
			kept++
		}
		logger.Info("Fetched page",
			slog.Int("page", opts.Page),
			slog.Int("kept", kept),
			slog.Int("fetched", len(repos)),
		)

		if len(repos) < PageSize {
			break
		}
		opts.Page++
	}

	logger.Info("Total repositories found", slog.Int("total", len(out)))
	return out, nil
}

func describe(repo *github.Repository) RepositoryDescriptor {
	return RepositoryDescriptor{
		Name:     repo.GetName(),
		HTMLURL:  repo.GetHTMLURL(),
		Private:  repo.GetPrivate(),
		Archived: repo.GetArchived(),
	}
}
