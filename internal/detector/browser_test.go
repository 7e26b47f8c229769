package detector

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
)

func TestLoginSelectorsFor(t *testing.T) {
	tests := []struct {
		host     string
		extra    string
		wantSize int
	}{
		{host: "github.com", extra: `a[href="/login"]`, wantSize: len(loginLinkSelectors) + 1},
		{host: "www.amazon.com", extra: "#nav-link-accountList", wantSize: len(loginLinkSelectors) + 2},
		{host: "WWW.LinkedIn.com", extra: `a[href*="/login"]`, wantSize: len(loginLinkSelectors) + 1},
		{host: "example.com", wantSize: len(loginLinkSelectors)},
		{host: "notgithub.com", wantSize: len(loginLinkSelectors)},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := loginSelectorsFor(tt.host)
			if len(got) != tt.wantSize {
				t.Errorf("len = %d, want %d: %v", len(got), tt.wantSize, got)
			}
			if tt.extra != "" && !slices.Contains(got, tt.extra) {
				t.Errorf("selectors %v missing %q", got, tt.extra)
			}
			if !slices.Equal(got[:len(loginLinkSelectors)], loginLinkSelectors) {
				t.Errorf("generic selectors must come first, got %v", got)
			}
		})
	}
}

func TestLoginSelectorsFor_DoesNotMutateDefaults(t *testing.T) {
	before := slices.Clone(loginLinkSelectors)
	_ = loginSelectorsFor("github.com")
	_ = loginSelectorsFor("amazon.com")
	if !slices.Equal(before, loginLinkSelectors) {
		t.Errorf("loginLinkSelectors changed: %v", loginLinkSelectors)
	}
}

func TestLoginPathCandidates(t *testing.T) {
	u := mustParseURL("https://example.com:8443/some/page?q=1")
	got := loginPathCandidates(originOf(u))
	want := []string{
		"https://example.com:8443/login",
		"https://example.com:8443/signin",
		"https://example.com:8443/sign-in",
		"https://example.com:8443/auth/login",
	}
	if !slices.Equal(got, want) {
		t.Errorf("loginPathCandidates() = %v, want %v", got, want)
	}
}

func TestRenderedFetcher_RefusesPrivateTargets(t *testing.T) {
	// No browser is attached: the guard must reject before Chrome is used.
	f := &RenderedFetcher{guard: newAddressGuard(false), logger: slog.New(slog.DiscardHandler)}

	for _, target := range []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://127.0.0.1:8080/login",
		"http://[::1]/",
		"http://10.0.0.7/signin",
	} {
		t.Run(target, func(t *testing.T) {
			body, _, err := f.Fetch(context.Background(), target)
			if body != nil {
				_ = body.Close()
			}
			if !errors.Is(err, errBlockedAddress) {
				t.Errorf("Fetch(%q) error = %v, want errBlockedAddress", target, err)
			}
		})
	}
}

func TestEngine_Detect_BlockedTargetNotRendered(t *testing.T) {
	static := NewHTTPFetcher(HTTPFetcherOptions{})
	rendered := &RenderedFetcher{guard: newAddressGuard(false), logger: slog.New(slog.DiscardHandler)}

	rec := newTestEngine(static, rendered).Detect(context.Background(), "http://169.254.169.254/")
	if rec.Success {
		t.Fatalf("rec = %+v, want a failure", rec)
	}
	if rec.Error != msgBothFailed {
		t.Errorf("Error = %q, want %q", rec.Error, msgBothFailed)
	}
}
