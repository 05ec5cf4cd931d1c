package github

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v81/github"
)

// maxErrorBody caps how much of an error body is logged.
const maxErrorBody = 4 << 10

// DescribeError renders a GitHub API error for logs without the request URL.
func DescribeError(err error) string {
	if err == nil {
		return "unknown error"
	}

	var er *github.ErrorResponse
	if errors.As(err, &er) {
		msg := strings.TrimSpace(er.Message)
		if msg == "" {
			msg = "GitHub API request failed"
		}
		if er.Response != nil {
			code := er.Response.StatusCode
			return fmt.Sprintf("%d %s: %s", code, http.StatusText(code), msg)
		}
		return msg
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Sprintf("rate limit exceeded (resets %s)", rle.Rate.Reset.Time.Format("15:04:05 MST"))
	}

	full := err.Error()
	if s := scrubRequestFromErrorString(full); s != "" {
		return s
	}
	return full
}

// ErrorBody returns the raw body GitHub sent with a failed response, or ""
// when err carries none. The body stays readable for later callers.
func ErrorBody(err error) string {
	var resp *http.Response
	var er *github.ErrorResponse
	var rle *github.RateLimitError
	switch {
	case errors.As(err, &er):
		resp = er.Response
	case errors.As(err, &rle):
		resp = rle.Response
	}
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, rErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body = io.NopCloser(bytes.NewReader(b))
	if rErr != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// StatusCode returns the HTTP status carried by resp, or 0.
func StatusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func scrubRequestFromErrorString(s string) string {
	// Typical go-github error format:
	//   GET https://api.github.com/...: 404 Not Found []
	methods := []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "}
	for _, m := range methods {
		if !strings.HasPrefix(s, m) {
			continue
		}
		if i := strings.Index(s, "://"); i >= 0 {
			if j := strings.Index(s[i:], ": "); j >= 0 {
				return strings.TrimSpace(s[i+j+2:])
			}
		}
		if j := strings.Index(s, ": "); j >= 0 {
			return strings.TrimSpace(s[j+2:])
		}
		break
	}
	return ""
}
