package codeowners

import (
	"context"
	"log/slog"

	gh "ownerscan/internal/github"
	"ownerscan/internal/logging"

	"github.com/google/go-github/v81/github"
)

// ContentsGetter is the slice of the GitHub repositories API the locator needs.
// *github.RepositoriesService satisfies it.
type ContentsGetter interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
}

// Locator searches a repository for its CODEOWNERS file.
type Locator struct {
	repos ContentsGetter
	owner string
}

func NewLocator(repos ContentsGetter, owner string) *Locator {
	return &Locator{repos: repos, owner: owner}
}

// Locate probes SearchOrder and returns the first file served with a
// non-empty payload, even if that payload decodes to empty text. A failed
// probe, whatever its status, only means the file is not at that path. The
// returned error is non-nil only when ctx is done.
func (l *Locator) Locate(ctx context.Context, repoName string) (Result, error) {
	logger := logging.From(ctx)

	for _, loc := range SearchOrder {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		content, ok := l.fetch(ctx, repoName, loc)
		if !ok {
			continue
		}
		logger.Debug("Found CODEOWNERS file",
			slog.String("repo", repoName),
			slog.String("path", loc.Path()),
		)
		return Result{Found: true, Location: loc, Content: content}, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	logger.Debug("No CODEOWNERS file found", slog.String("repo", repoName))
	return Result{}, nil
}

func (l *Locator) fetch(ctx context.Context, repoName string, loc Location) (string, bool) {
	file, _, resp, err := l.repos.GetContents(ctx, l.owner, repoName, loc.Path(), nil)
	if err != nil {
		logging.From(ctx).Debug("CODEOWNERS probe missed",
			slog.String("repo", repoName),
			slog.String("path", loc.Path()),
			slog.Int("status", gh.StatusCode(resp)),
			slog.String("error", gh.DescribeError(err)),
		)
		return "", false
	}
	// A directory at the candidate path comes back as a listing, not a file.
	if file == nil || file.Content == nil || *file.Content == "" {
		return "", false
	}

	text, err := file.GetContent()
	if err != nil {
		logging.From(ctx).Debug("CODEOWNERS content not decodable",
			slog.String("repo", repoName),
			slog.String("path", loc.Path()),
			slog.Any("error", err),
		)
		return "", false
	}
	return text, true
}
