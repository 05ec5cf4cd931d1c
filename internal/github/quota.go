package github

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// Quota is a snapshot of the core REST API rate limit.
type Quota struct {
	Remaining int
	Reset     time.Time
}

// Quota asks GET /rate_limit for the core quota.
func (c *Client) Quota(ctx context.Context) (Quota, error) {
	if c == nil || c.Client == nil {
		return Quota{}, errors.New("github client is nil")
	}
	limits, _, err := c.Client.RateLimit.Get(ctx)
	if err != nil {
		return Quota{}, err
	}
	if limits == nil || limits.Core == nil {
		return Quota{}, errors.New("rate limit response has no core resource")
	}
	q := Quota{
		Remaining: limits.Core.Remaining,
		Reset:     limits.Core.Reset.Time,
	}
	if c.quota != nil {
		c.quota.set(q)
	}
	return q, nil
}

// ObservedQuota returns the most recent quota seen on any response, without
// making a request. ok is false until a response carried rate limit headers.
func (c *Client) ObservedQuota() (q Quota, ok bool) {
	if c == nil || c.quota == nil {
		return Quota{}, false
	}
	return c.quota.get()
}

type quotaTracker struct {
	mu   sync.Mutex
	last Quota
	seen bool
}

func (t *quotaTracker) get() (Quota, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

func (t *quotaTracker) set(q Quota) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = q
	t.seen = true
}

func (t *quotaTracker) updateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	remaining := resp.Header.Get(headerRateRemaining)
	if remaining == "" {
		return
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil || rem < 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last.Remaining = rem
	if reset := resp.Header.Get(headerRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil && val > 0 {
			t.last.Reset = time.Unix(val, 0)
		}
	}
	t.seen = true
}

// quotaRoundTripper records rate limit headers from every response.
type quotaRoundTripper struct {
	base    http.RoundTripper
	tracker *quotaTracker
}

func (t *quotaRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		t.tracker.updateFromResponse(resp)
	}
	return resp, err
}
