package ratelimit

import (
	"context"
	"log/slog"
	"time"

	gh "ownerscan/internal/github"
	"ownerscan/internal/logging"

	"golang.org/x/time/rate"
)

const (
	// DefaultThreshold is the remaining-request count below which the guard waits for reset.
	DefaultThreshold = 10

	// DefaultResetMargin is added to the wait so requests resume after the window has rolled over.
	DefaultResetMargin = 10 * time.Second

	// DefaultPace is the minimum spacing between repositories.
	DefaultPace = 100 * time.Millisecond
)

// QuotaSource reports the current core API quota. *github.Client satisfies it.
type QuotaSource interface {
	Quota(ctx context.Context) (gh.Quota, error)
}

// Guard keeps a batch from exhausting the API quota. It only ever delays the
// caller: a failed quota probe is logged and ignored.
type Guard struct {
	source    QuotaSource
	threshold int
	margin    time.Duration
	pacer     *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Guard)

// WithThreshold sets the remaining-request floor. Zero never waits.
func WithThreshold(n int) Option {
	return func(g *Guard) {
		if n >= 0 {
			g.threshold = n
		}
	}
}

// WithPace sets the minimum interval between Pace calls. Zero or negative
// disables pacing.
func WithPace(d time.Duration) Option {
	return func(g *Guard) {
		if d <= 0 {
			g.pacer = nil
			return
		}
		g.pacer = rate.NewLimiter(rate.Every(d), 1)
	}
}

func NewGuard(source QuotaSource, opts ...Option) *Guard {
	g := &Guard{
		source:    source,
		threshold: DefaultThreshold,
		margin:    DefaultResetMargin,
		pacer:     rate.NewLimiter(rate.Every(DefaultPace), 1),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(g)
		}
	}
	return g
}

// EnsureQuota probes the quota and blocks until reset when fewer than the
// threshold requests remain. The returned error is non-nil only when ctx is
// done while waiting.
func (g *Guard) EnsureQuota(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := logging.From(ctx)

	if g.source == nil {
		return nil
	}
	q, err := g.source.Quota(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Rate limit check failed, continuing", slog.Any("error", err))
		return nil
	}

	logger.Info("Rate limit", slog.Int("remaining", q.Remaining))

	if q.Remaining >= g.threshold {
		return nil
	}

	// Whole seconds, like the reset epoch itself.
	wait := time.Duration(q.Reset.Unix()-g.now().Unix())*time.Second + g.margin
	if wait <= 0 {
		return nil
	}
	logger.Warn("Rate limit low, waiting for reset",
		slog.Int("remaining", q.Remaining),
		slog.Time("reset", q.Reset),
		slog.Duration("wait", wait),
	)
	return g.sleep(ctx, wait)
}

// Pace blocks until the next repository may start.
func (g *Guard) Pace(ctx context.Context) error {
	if g.pacer == nil {
		return ctx.Err()
	}
	return g.pacer.Wait(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
