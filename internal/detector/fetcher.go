package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher defines how the engine retrieves raw HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body io.ReadCloser, statusCode int, err error)
}

// limitedReadCloser reads from a LimitReader but closes the original body.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20
	browserUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// browserHeaders make static fetches look like a regular page load; several
// login pages serve a stripped document to unknown clients.
var browserHeaders = map[string]string{
	"User-Agent":                browserUA,
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

// HTTPFetcher implements Fetcher with a plain HTTP client and a per-host
// rate limit.
type HTTPFetcher struct {
	client    *http.Client
	rateLimit int

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// HTTPFetcherOptions configures NewHTTPFetcher.
type HTTPFetcherOptions struct {
	// RateLimit is the maximum requests per second per host; 0 disables it.
	RateLimit int
	// AllowPrivate disables the private-address dial guard. Local testing only.
	AllowPrivate bool
}

// NewHTTPFetcher returns a Fetcher backed by an http.Client with a 15s timeout,
// a dedicated transport that blocks connections to private/reserved IP ranges,
// and redirect validation that prevents SSRF via redirect chains.
func NewHTTPFetcher(opts HTTPFetcherOptions) *HTTPFetcher {
	dialer := newAddressGuard(opts.AllowPrivate).dialer()

	return newHTTPFetcher(&http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxConnsPerHost:     10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: safeRedirectPolicy,
	}, opts.RateLimit)
}

func newHTTPFetcher(client *http.Client, rateLimit int) *HTTPFetcher {
	return &HTTPFetcher{
		client:    client,
		rateLimit: rateLimit,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	if f.rateLimit <= 0 {
		return nil
	}

	f.limitersMu.Lock()
	defer f.limitersMu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.rateLimit), 1)
		f.limiters[host] = l
	}
	return l
}

// Fetch retrieves the page at targetURL and returns its body.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	if l := f.limiter(hostOnly(req.URL.Host)); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := f.client.Do(req) //nolint:bodyclose // body is returned to caller via limitedReadCloser
	if err != nil {
		return nil, 0, err
	}

	limited := &limitedReadCloser{
		Reader: io.LimitReader(resp.Body, maxResponseBody),
		Closer: resp.Body,
	}
	return limited, resp.StatusCode, nil
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
