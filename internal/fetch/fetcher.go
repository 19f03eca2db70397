// Package fetch performs HTTP retrieval with retry, backoff and failure
// classification against a portal that actively filters non-browser clients.
package fetch

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/douwatch/douwatch/internal/logger"
)

// browserHeaders imitates a regular Chrome session. The portal serves
// stripped-down or empty pages to clients without them, so this is a
// functional requirement rather than cosmetics.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"Cache-Control":             "max-age=0",
	"Sec-Ch-Ua":                 `"Not A(Brand";v="99", "Google Chrome";v="121", "Chromium";v="121"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

// Overridable in tests to avoid real sleeps.
var (
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
	jitterFunc = rand.Float64
)

// Options configures a Fetcher.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	MaxBodyBytes   int64
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// ThrottleMin/Max bound the randomized per-request delay. It applies
	// before every request, first attempt included, and is independent of
	// the retry backoff. Zero ThrottleMax disables it.
	ThrottleMin time.Duration
	ThrottleMax time.Duration

	RequestsPerSecond float64
	Burst             int
	RespectRobots     bool
	Proxy             string
}

// Fetcher retrieves pages with browser-like headers, politeness throttling
// and transient-failure retry.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBytes    int64
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	throttleMin time.Duration
	throttleMax time.Duration
	limiter     *rate.Limiter
	robots      *Robots
	log         logger.Interface
}

// New creates a Fetcher. Zero option fields fall back to safe minimums.
func New(opts Options, log logger.Interface) *Fetcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8_000_000
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}
	if opts.RetryMaxDelay < opts.RetryBaseDelay {
		opts.RetryMaxDelay = 10 * time.Second
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent:   opts.UserAgent,
		maxBytes:    opts.MaxBodyBytes,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.RetryBaseDelay,
		maxDelay:    opts.RetryMaxDelay,
		throttleMin: opts.ThrottleMin,
		throttleMax: opts.ThrottleMax,
		log:         log,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.RespectRobots {
		f.robots = NewRobots(opts.UserAgent, opts.Timeout)
	}
	return f
}

// Fetch retrieves the body of rawURL. Transient failures are retried up to
// the attempt ceiling with exponential backoff; permanent failures are
// returned on the first occurrence.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.robots != nil && !f.robots.Allowed(ctx, rawURL) {
		return "", &Error{URL: rawURL, Transient: false, Err: errRobotsDisallowed}
	}

	delay := f.baseDelay
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			f.log.Warn("retrying fetch", "url", rawURL, "attempt", attempt, "backoff", delay.String())
			if err := sleepFunc(ctx, delay); err != nil {
				return "", &Error{URL: rawURL, Err: err}
			}
			delay = min(delay*2, f.maxDelay)
		}

		if err := f.throttle(ctx, rawURL); err != nil {
			return "", &Error{URL: rawURL, Err: err}
		}

		body, err := f.doRequest(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

// throttle applies the randomized politeness delay and the rate limiter.
func (f *Fetcher) throttle(ctx context.Context, rawURL string) error {
	if f.throttleMax > 0 {
		d := f.throttleMin + time.Duration(jitterFunc()*float64(f.throttleMax-f.throttleMin))
		f.log.Debug("throttling request", "url", rawURL, "delay", d.String())
		if err := sleepFunc(ctx, d); err != nil {
			return err
		}
	}
	if f.limiter != nil {
		return f.limiter.Wait(ctx)
	}
	return nil
}

// doRequest performs a single attempt and classifies the outcome.
func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Transient: false, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", &Error{URL: rawURL, Transient: false, Err: ctx.Err()}
		}
		// Timeouts, DNS failures, resets: all worth another try.
		return "", &Error{URL: rawURL, Transient: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to the body read below.
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", &Error{URL: rawURL, StatusCode: resp.StatusCode, Transient: true}
	default:
		return "", &Error{URL: rawURL, StatusCode: resp.StatusCode, Transient: false}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", &Error{URL: rawURL, Transient: false, Err: err}
	}
	return string(body), nil
}
