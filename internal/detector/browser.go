package detector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	homepageTimeout   = 15 * time.Second
	navigateTimeout   = 20 * time.Second
	formWaitTimeout   = 8 * time.Second
	loginFormSelector = `input[type="password"], input[type="email"], input[name*="email"], input[name*="user"], input[id*="email"]`
)

var (
	commonLoginPaths = []string{"/login", "/signin", "/sign-in", "/auth/login"}

	loginLinkSelectors = []string{
		`a[href*="login"]`,
		`a[href*="signin"]`,
		`a[href*="sign-in"]`,
		`a[href*="auth"]`,
	}

	// Extra selectors for sites whose login entry point is not a plain link.
	siteLoginSelectors = map[string][]string{
		"amazon.com":   {"#nav-link-accountList", `a[href*="ap/signin"]`},
		"github.com":   {`a[href="/login"]`},
		"linkedin.com": {`a[href*="/login"]`},
	}
)

// loginTextPattern matches link and button captions, as a JavaScript regex.
type loginTextPattern struct {
	selector string
	regex    string
}

var loginTextPatterns = []loginTextPattern{
	{selector: "a", regex: `/^\s*(sign in|log ?in)\s*$/i`},
	{selector: "button", regex: `/^\s*(sign in|log ?in)\s*$/i`},
}

// BrowserOptions configures NewRenderedFetcher.
type BrowserOptions struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome. Empty
	// launches a local headless Chrome.
	RemoteURL string
	// AllowPrivate lets Chrome open private and reserved addresses.
	AllowPrivate bool
	Logger       *slog.Logger
}

// RenderedFetcher implements Fetcher with a headless Chrome, for pages that
// only show their login form after JavaScript has run. When the target is not
// itself a login URL it starts from the site's homepage and tries to reach the
// login page from there.
type RenderedFetcher struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	guard   *addressGuard
	logger  *slog.Logger
}

// NewRenderedFetcher launches (or connects to) Chrome.
func NewRenderedFetcher(opts BrowserOptions) (*RenderedFetcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &RenderedFetcher{guard: newAddressGuard(opts.AllowPrivate), logger: logger}

	wsURL := opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		f.lnch = l
		logger.Info("browser: launched local chrome")
	} else {
		logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		f.cleanupLauncher()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	f.browser = b
	return f, nil
}

// Fetch renders targetURL and returns the resulting document. The status code
// is always 200 on success: a rendered page has no single HTTP status.
// Targets on private or reserved addresses are refused before Chrome sees
// them, and so is a page that ends up on such a host after navigation.
func (f *RenderedFetcher) Fetch(ctx context.Context, targetURL string) (io.ReadCloser, int, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, 0, err
	}
	if err := f.guard.checkHost(ctx, u.Hostname()); err != nil {
		return nil, 0, err
	}

	tab, err := stealth.Page(f.browser)
	if err != nil {
		return nil, 0, fmt.Errorf("browser: create tab: %w", err)
	}
	defer func() { _ = tab.Close() }()

	page := tab.Context(ctx)
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      browserUA,
		AcceptLanguage: "en-US",
	}); err != nil {
		f.logger.Debug("browser: set user agent failed", "error", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		f.logger.Debug("browser: set viewport failed", "error", err)
	}

	if isLoginURL(targetURL) {
		if err := navigate(ctx, page, targetURL, navigateTimeout); err != nil {
			return nil, 0, err
		}
	} else if err := f.reachLoginPage(ctx, page, u); err != nil {
		f.logger.Debug("browser: homepage route failed, trying target", "url", targetURL, "error", err)
		if err := navigate(ctx, page, targetURL, navigateTimeout); err != nil {
			return nil, 0, err
		}
	}

	if err := f.checkLanding(ctx, page); err != nil {
		return nil, 0, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, formWaitTimeout)
	if _, err := page.Context(waitCtx).Element(loginFormSelector); err != nil {
		f.logger.Debug("browser: no login field appeared", "url", targetURL)
	}
	cancel()

	doc, err := page.HTML()
	if err != nil {
		return nil, 0, fmt.Errorf("browser: read DOM: %w", err)
	}
	return io.NopCloser(strings.NewReader(doc)), http.StatusOK, nil
}

// reachLoginPage opens the homepage of u, clicks the first visible login link
// and otherwise walks the common login paths.
func (f *RenderedFetcher) reachLoginPage(ctx context.Context, page *rod.Page, u *url.URL) error {
	home := originOf(u)
	if err := navigate(ctx, page, home, homepageTimeout); err != nil {
		return err
	}

	if f.clickLoginLink(page, u.Hostname()) {
		waitCtx, cancel := context.WithTimeout(ctx, homepageTimeout)
		defer cancel()
		_ = page.Context(waitCtx).WaitLoad()
		return nil
	}

	for _, candidate := range loginPathCandidates(home) {
		if err := navigate(ctx, page, candidate, homepageTimeout); err != nil {
			continue
		}
		doc, err := page.HTML()
		if err == nil && looksLikeLoginPage(doc) {
			f.logger.Debug("browser: reached login page", "url", candidate)
			return nil
		}
	}
	return nil
}

func (f *RenderedFetcher) clickLoginLink(page *rod.Page, host string) bool {
	for _, sel := range loginSelectorsFor(host) {
		ok, el, err := page.Has(sel)
		if err != nil || !ok {
			continue
		}
		if clickVisible(el) {
			f.logger.Debug("browser: clicked login link", "selector", sel)
			return true
		}
	}
	for _, p := range loginTextPatterns {
		ok, el, err := page.HasR(p.selector, p.regex)
		if err != nil || !ok {
			continue
		}
		if clickVisible(el) {
			f.logger.Debug("browser: clicked login link", "selector", p.selector, "text", p.regex)
			return true
		}
	}
	return false
}

// checkLanding applies the address guard to wherever clicks and redirects
// took the page.
func (f *RenderedFetcher) checkLanding(ctx context.Context, page *rod.Page) error {
	info, err := page.Info()
	if err != nil {
		return fmt.Errorf("browser: page info: %w", err)
	}
	landed, err := url.Parse(info.URL)
	if err != nil || landed.Hostname() == "" {
		return nil
	}
	return f.guard.checkHost(ctx, landed.Hostname())
}

func clickVisible(el *rod.Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	return el.Click(proto.InputMouseButtonLeft, 1) == nil
}

func navigate(ctx context.Context, page *rod.Page, target string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(target); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", target, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", target, err)
	}
	return nil
}

// Close shuts Chrome down.
func (f *RenderedFetcher) Close() error {
	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	f.cleanupLauncher()
	return err
}

func (f *RenderedFetcher) cleanupLauncher() {
	if f.lnch != nil {
		f.lnch.Cleanup()
		f.lnch = nil
	}
}

func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

func loginPathCandidates(origin string) []string {
	out := make([]string, 0, len(commonLoginPaths))
	for _, p := range commonLoginPaths {
		out = append(out, origin+p)
	}
	return out
}

func loginSelectorsFor(host string) []string {
	out := append([]string(nil), loginLinkSelectors...)
	host = strings.ToLower(host)
	for site, extra := range siteLoginSelectors {
		if host == site || strings.HasSuffix(host, "."+site) {
			out = append(out, extra...)
		}
	}
	return out
}
