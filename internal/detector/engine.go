// Package detector fetches web pages and locates their login forms.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/Bahjat/auth-insight-tool/internal/model"
)

const (
	// minMeaningfulHTML is the size below which a document is treated as a
	// placeholder (redirect stub, bot wall) rather than a real page.
	minMeaningfulHTML = 500
	suspiciousHTML    = 1000

	msgInvalidURL  = "Invalid URL format"
	msgTimeout     = "Request timeout"
	msgBothFailed  = "Both static HTTP and headless browser fetches failed"
	msgParseFailed = "Failed to parse the HTML content"
	msgUnreachable = "The provided URL could not be reached"
)

var loginURLKeywords = []string{"login", "signin", "sign-in", "sign_in", "auth", "authenticate", "log-in"}

// Engine runs the detection pipeline for one URL at a time. Concurrent calls
// for the same normalised URL share a single run.
type Engine struct {
	static   Fetcher
	rendered Fetcher // optional
	logger   *slog.Logger
	group    singleflight.Group
}

// NewEngine returns an Engine. rendered may be nil, in which case only the
// static fetch is used.
func NewEngine(static, rendered Fetcher, logger *slog.Logger) *Engine {
	return &Engine{static: static, rendered: rendered, logger: logger}
}

// Detect returns the detection result for rawURL. It never fails: every
// problem is reported as a ResultRecord with Success=false.
func (e *Engine) Detect(ctx context.Context, rawURL string) model.ResultRecord {
	target, base, ok := normalizeURL(rawURL)
	if !ok {
		return model.Failed(target, msgInvalidURL)
	}

	v, _, _ := e.group.Do(target, func() (any, error) {
		return e.detect(ctx, target, base), nil
	})
	return v.(model.ResultRecord)
}

func (e *Engine) detect(ctx context.Context, target string, base *url.URL) model.ResultRecord {
	logger := e.logger.With("url", target)

	page, staticErr := e.fetchHTML(ctx, e.static, target)
	staticOK := staticErr == nil

	needsRendered := !staticOK
	if staticOK && len(page) > minMeaningfulHTML {
		comp, err := DetectAuth(strings.NewReader(page), base)
		if err == nil && comp.Found {
			return found(target, comp)
		}
		needsRendered = looksBlocked(page, target) || !isLoginURL(target)
		if !needsRendered && err == nil {
			return found(target, comp)
		}
	} else if staticOK {
		needsRendered = true
	}

	if staticErr != nil {
		logger.Debug("static fetch failed", "error", staticErr)
	}

	if needsRendered && e.rendered != nil {
		rendered, err := e.fetchHTML(ctx, e.rendered, target)
		if err == nil && len(rendered) > minMeaningfulHTML {
			comp, err := DetectAuth(strings.NewReader(rendered), base)
			if err == nil {
				return found(target, comp)
			}
		}
		if err != nil {
			logger.Debug("rendered fetch failed", "error", err)
		}
	}

	if !staticOK {
		switch {
		case isTimeout(staticErr) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return model.Failed(target, msgTimeout)
		case e.rendered != nil:
			return model.Failed(target, msgBothFailed)
		default:
			return model.Failed(target, msgUnreachable)
		}
	}

	comp, err := DetectAuth(strings.NewReader(page), base)
	if err != nil {
		return model.Failed(target, msgParseFailed)
	}
	return found(target, comp)
}

func (e *Engine) fetchHTML(ctx context.Context, f Fetcher, target string) (string, error) {
	body, status, err := f.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	if status < 200 || status > 299 {
		return "", &statusError{code: status}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func found(target string, comp model.AuthComponent) model.ResultRecord {
	return model.ResultRecord{URL: target, Success: true, AuthComponent: &comp}
}

// normalizeURL trims rawURL, adds an https scheme when none is given, and
// rejects URLs without a host or with a non-http(s) scheme.
func normalizeURL(rawURL string) (string, *url.URL, bool) {
	target := strings.TrimSpace(rawURL)
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target, nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return target, nil, false
	}
	return target, u, true
}

func isLoginURL(target string) bool {
	return containsAny(strings.ToLower(target), loginURLKeywords)
}

// looksBlocked reports whether a static page is likely a bot wall or a
// JavaScript shell that only a real browser would get past.
func looksBlocked(page, target string) bool {
	if len(page) < suspiciousHTML {
		return true
	}
	low := strings.ToLower(page)
	switch {
	case strings.Contains(low, "captcha"),
		strings.Contains(low, "robot") && strings.Contains(low, "detected"),
		strings.Contains(low, "access denied"),
		strings.Contains(low, "please enable javascript"):
		return true
	}
	return strings.Contains(strings.ToLower(target), "amazon.com") &&
		strings.Contains(low, "ap_error") && len(page) < 5000
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
