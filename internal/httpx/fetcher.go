package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// FetchError reports a failed page fetch after retries were exhausted.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error (status %d)", e.Status)
	}
	return fmt.Sprintf("fetch error (status %d): %v", e.Status, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher wraps Colly for polite detail-page fetching: per-host rate
// limiting and a bounded retry with backoff on 429/5xx. Retry policy lives
// here; callers treat an error as final for that page.
type Fetcher struct {
	userAgent    string
	timeout      time.Duration
	maxAttempts  int
	defaultRate  rate.Limit
	defaultBurst int

	mu    sync.Mutex
	hosts map[string]*hostPolicy
}

type hostPolicy struct {
	limiter     *rate.Limiter
	mu          sync.Mutex
	nextAllowed time.Time
}

func NewFetcher(userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = "eujobs-scraper/1.0"
	}
	return &Fetcher{
		userAgent:    userAgent,
		timeout:      15 * time.Second,
		maxAttempts:  3,
		defaultRate:  rate.Every(time.Second),
		defaultBurst: 2,
		hosts:        make(map[string]*hostPolicy),
	}
}

// SetHostLimit overrides the politeness rate for one host.
func (f *Fetcher) SetHostLimit(host string, per time.Duration, burst int) {
	if host == "" || per <= 0 || burst <= 0 {
		return
	}
	policy := f.policyFor(normalizeHost(host))
	policy.mu.Lock()
	policy.limiter = rate.NewLimiter(rate.Every(per), burst)
	policy.mu.Unlock()
}

// FetchHTML retrieves one page body as a string.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	target, err := canonicalTarget(rawURL)
	if err != nil {
		return "", err
	}
	host := hostOf(target)

	var lastErr error
	var status int
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := f.waitForHost(ctx, host); err != nil {
			return "", err
		}

		var body string
		body, status, lastErr = f.fetchOnce(ctx, target)
		if lastErr == nil {
			return body, nil
		}
		if !retryable(status) {
			break
		}
		f.applyBackoff(host, attempt)
	}
	return "", &FetchError{Status: status, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (string, int, error) {
	c := colly.NewCollector(colly.UserAgent(f.userAgent))
	c.SetRequestTimeout(f.timeout)

	var body string
	status := 0
	var reqErr error

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	if err := c.Visit(target); err != nil {
		return "", status, err
	}
	if reqErr != nil {
		return "", status, reqErr
	}
	if status >= 400 {
		return "", status, fmt.Errorf("status %d", status)
	}
	return body, status, nil
}

func (f *Fetcher) waitForHost(ctx context.Context, host string) error {
	policy := f.policyFor(host)
	if err := policy.waitBackoff(ctx); err != nil {
		return err
	}
	return policy.limiter.Wait(ctx)
}

func (f *Fetcher) policyFor(host string) *hostPolicy {
	if host == "" {
		host = "default"
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if policy, ok := f.hosts[host]; ok {
		return policy
	}
	policy := &hostPolicy{limiter: rate.NewLimiter(f.defaultRate, f.defaultBurst)}
	f.hosts[host] = policy
	return policy
}

func (f *Fetcher) applyBackoff(host string, attempt int) {
	if attempt < 0 {
		attempt = 0
	}
	policy := f.policyFor(host)
	delay := time.Duration(500*(1<<attempt)) * time.Millisecond
	policy.mu.Lock()
	if next := time.Now().Add(delay); next.After(policy.nextAllowed) {
		policy.nextAllowed = next
	}
	policy.mu.Unlock()
}

func (p *hostPolicy) waitBackoff(ctx context.Context) error {
	for {
		p.mu.Lock()
		next := p.nextAllowed
		p.mu.Unlock()
		now := time.Now()
		if !now.Before(next) {
			return nil
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func canonicalTarget(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "default"
	}
	return normalizeHost(u.Hostname())
}
