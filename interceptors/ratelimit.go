package interceptors

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

// RateLimitInfo contains parsed rate limit information from response headers.
type RateLimitInfo struct {
	Limit      int           // Maximum requests allowed in the current window
	Remaining  int           // Remaining requests in the current window
	Reset      time.Duration // Time until the window resets
	RetryAfter time.Duration // Time to wait before retrying (from Retry-After header)
}

// String returns a human-readable representation of rate limit info.
func (r *RateLimitInfo) String() string {
	var parts []string

	if r.Limit > 0 || r.Remaining > 0 {
		parts = append(parts, "requests="+strconv.Itoa(r.Remaining)+"/"+strconv.Itoa(r.Limit))
	}
	if r.Reset > 0 {
		parts = append(parts, "reset="+r.Reset.String())
	}
	if r.RetryAfter > 0 {
		parts = append(parts, "retry_after="+r.RetryAfter.String())
	}

	return "RateLimit{" + strings.Join(parts, ", ") + "}"
}

// Header families in priority order. The first family with a parseable
// value wins for each field.
var (
	limitHeaders     = []string{"RateLimit-Limit", "X-RateLimit-Limit", "X-Ratelimit-Limit-Requests", "Anthropic-Ratelimit-Requests-Limit"}
	remainingHeaders = []string{"RateLimit-Remaining", "X-RateLimit-Remaining", "X-Ratelimit-Remaining-Requests", "Anthropic-Ratelimit-Requests-Remaining"}
	resetHeaders     = []string{"RateLimit-Reset", "X-RateLimit-Reset", "X-Ratelimit-Reset-Requests"}
)

// epochThreshold separates delta-seconds reset values from Unix timestamps
// (X-RateLimit-Reset is an epoch on some APIs).
const epochThreshold = 1_000_000_000

// ParseRateLimitHeaders extracts rate limit information from HTTP response headers.
// Returns nil if no rate limit headers are found.
//
// Supported header formats:
//   - IETF draft: RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset (seconds)
//   - Common: X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset (seconds or Unix time)
//   - OpenAI: X-Ratelimit-Limit-Requests, X-Ratelimit-Reset-Requests ("1s", "6m0s")
//   - Anthropic: Anthropic-Ratelimit-Requests-Limit, etc.
//   - Standard: Retry-After (seconds or HTTP date)
//
// Invalid values are silently skipped.
func ParseRateLimitHeaders(headers http.Header) *RateLimitInfo {
	return parseRateLimit(headers, time.Now())
}

func parseRateLimit(headers http.Header, now time.Time) *RateLimitInfo {
	info := &RateLimitInfo{}
	foundAny := false

	if n, ok := firstInt(headers, limitHeaders); ok {
		info.Limit = n
		foundAny = true
	}
	if n, ok := firstInt(headers, remainingHeaders); ok {
		info.Remaining = n
		foundAny = true
	}

	for _, key := range resetHeaders {
		if d, ok := parseReset(headers.Get(key), now); ok {
			info.Reset = d
			foundAny = true
			break
		}
	}

	if val := headers.Get("Retry-After"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
			foundAny = true
		} else if t, err := http.ParseTime(val); err == nil {
			info.RetryAfter = max(t.Sub(now), 0)
			foundAny = true
		}
	}

	if !foundAny {
		return nil
	}
	return info
}

func firstInt(headers http.Header, keys []string) (int, bool) {
	for _, key := range keys {
		val := headers.Get(key)
		if val == "" {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func parseReset(val string, now time.Time) (time.Duration, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		if n >= epochThreshold {
			return max(time.Unix(n, 0).Sub(now), 0), true
		}
		return time.Duration(n) * time.Second, true
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, true
	}
	return 0, false
}

// RateLimitFunc receives the parsed limits of a response.
type RateLimitFunc func(info *RateLimitInfo, resp *fetch.Response)

// RateLimit returns a response handler that reports rate limit headers to fn.
// It sees accepted responses and rejected statuses (429 in particular) and
// never changes the outcome of a call.
func RateLimit(fn RateLimitFunc) fetch.Handler[*fetch.Response] {
	return rateLimitHandler{fn: fn}
}

type rateLimitHandler struct {
	fn RateLimitFunc
}

func (h rateLimitHandler) Fulfill(_ context.Context, r *fetch.Response) (*fetch.Response, error) {
	h.observe(r)
	return r, nil
}

func (h rateLimitHandler) Reject(_ context.Context, err error) (*fetch.Response, error) {
	var se *fetch.StatusError
	if errors.As(err, &se) {
		h.observe(se.Response)
	}
	return nil, nil
}

func (h rateLimitHandler) observe(r *fetch.Response) {
	if r == nil || h.fn == nil {
		return
	}
	if info := ParseRateLimitHeaders(r.Headers); info != nil {
		h.fn(info, r)
	}
}
