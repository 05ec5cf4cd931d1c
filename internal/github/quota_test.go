package github

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClientQuota(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Unix()
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"resources":{"core":{"limit":5000,"remaining":42,"reset":%d}}}`, reset)
	})
	c := newTestServerClient(t, "", mux)

	q, err := c.Quota(context.Background())
	if err != nil {
		t.Fatalf("Quota failed: %v", err)
	}
	if q.Remaining != 42 {
		t.Fatalf("expected remaining 42, got %d", q.Remaining)
	}
	if q.Reset.Unix() != reset {
		t.Fatalf("expected reset %d, got %d", reset, q.Reset.Unix())
	}

	observed, ok := c.ObservedQuota()
	if !ok || observed.Remaining != 42 {
		t.Fatalf("expected observed quota 42, got %+v (ok=%v)", observed, ok)
	}
}

func TestClientQuota_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})
	c := newTestServerClient(t, "", mux)

	if _, err := c.Quota(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestObservedQuota_FromHeaders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerRateRemaining, "7")
		w.Header().Set(headerRateReset, "1700000000")
		fmt.Fprint(w, `[]`)
	})
	c := newTestServerClient(t, "", mux)

	if _, ok := c.ObservedQuota(); ok {
		t.Fatal("expected no observed quota before any request")
	}
	if _, _, err := c.Client.Repositories.ListByOrg(context.Background(), "acme", nil); err != nil {
		t.Fatalf("ListByOrg failed: %v", err)
	}

	q, ok := c.ObservedQuota()
	if !ok {
		t.Fatal("expected observed quota")
	}
	if q.Remaining != 7 {
		t.Fatalf("expected remaining 7, got %d", q.Remaining)
	}
	if q.Reset.Unix() != 1700000000 {
		t.Fatalf("unexpected reset %v", q.Reset)
	}
}

func TestQuotaTracker_IgnoresMalformedHeaders(t *testing.T) {
	tr := &quotaTracker{}
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(headerRateRemaining, "not-a-number")
	tr.updateFromResponse(resp)
	if _, ok := tr.get(); ok {
		t.Fatal("expected malformed header to be ignored")
	}
	tr.updateFromResponse(nil)
	if _, ok := tr.get(); ok {
		t.Fatal("expected nil response to be ignored")
	}
}

func TestObservedQuota_NilClient(t *testing.T) {
	var c *Client
	if _, ok := c.ObservedQuota(); ok {
		t.Fatal("expected nil client to report no quota")
	}
}
